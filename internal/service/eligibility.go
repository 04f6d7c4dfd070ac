package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
	"github.com/pa-workflow-server/internal/llm"
)

// Eligibility calls run at low temperature so repeated evaluations of the
// same case reason consistently.
const (
	eligibilityTemperature = 0.1
	eligibilityMaxTokens   = 1000
)

// EligibilityService determines whether a patient meets clinical criteria for
// a drug using LLM reasoning, optionally augmented with retrieved policy
// context.
type EligibilityService struct {
	patients  domain.PatientStore
	retriever *PolicyRetriever
	model     domain.LanguageModel
	log       *logrus.Logger
}

// NewEligibilityService creates the clinical eligibility service.
func NewEligibilityService(patients domain.PatientStore, retriever *PolicyRetriever, model domain.LanguageModel, logger *logrus.Logger) *EligibilityService {
	return &EligibilityService{
		patients:  patients,
		retriever: retriever,
		model:     model,
		log:       logger,
	}
}

// CheckEligibility evaluates a patient's clinical eligibility for a drug.
// A missing patient is a hard error.
func (s *EligibilityService) CheckEligibility(ctx context.Context, patientID, drug, policyCriteria string, useRAG bool) (*domain.EligibilityVerdict, error) {
	patient, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.CheckEligibilityForPatient(ctx, patient, drug, policyCriteria, useRAG)
}

// CheckEligibilityForPatient evaluates eligibility for an already-loaded
// patient record. The model reply is parsed as strict JSON after a fenced
// code block unwrap; absent fields take conservative defaults.
func (s *EligibilityService) CheckEligibilityForPatient(ctx context.Context, patient *domain.Patient, drug, policyCriteria string, useRAG bool) (*domain.EligibilityVerdict, error) {
	s.log.WithFields(logrus.Fields{
		"patient_id": patient.PatientID,
		"drug":       drug,
	}).Info("Checking clinical eligibility")

	policyContext := ""
	if useRAG {
		query := fmt.Sprintf("%s %s treatment criteria requirements", drug, formatDiagnoses(patient.Diagnoses))
		chunks, err := s.retriever.Search(ctx, query, defaultTopK, defaultMinSimilarity)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"drug":  drug,
				"error": err,
			}).Warn("Policy context retrieval failed, proceeding without context")
		} else if len(chunks) > 0 {
			policyContext = formatPolicyContext(chunks)
			s.log.WithField("chunks", len(chunks)).Info("Retrieved policy context")
		}
	}

	prompt := buildEligibilityPrompt(policyContext, policyCriteria, patient, drug)

	resp, err := s.model.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{
			{Role: "system", Content: reviewerSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: eligibilityTemperature,
		MaxTokens:   eligibilityMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("eligibility reasoning: %w", err)
	}

	parsed, err := llm.ParseJSONResponse(resp.Content)
	if err != nil {
		return nil, err
	}

	verdict := verdictFromParsed(parsed)
	verdict.LLMMetadata = domain.LLMMetadata{
		Model:      resp.Model,
		LatencyMS:  resp.LatencyMS,
		TokensUsed: resp.TokensUsed,
		Cost:       resp.Cost,
	}

	s.log.WithFields(logrus.Fields{
		"patient_id":     patient.PatientID,
		"drug":           drug,
		"recommendation": verdict.Recommendation,
		"confidence":     verdict.ConfidenceScore,
	}).Info("Eligibility check complete")

	return verdict, nil
}

// verdictFromParsed maps the parsed model payload to a verdict, applying the
// documented defaults for absent or mistyped fields.
func verdictFromParsed(parsed map[string]interface{}) *domain.EligibilityVerdict {
	verdict := &domain.EligibilityVerdict{
		MeetsCriteria:    false,
		ConfidenceScore:  0.0,
		Recommendation:   domain.NEEDS_REVIEW,
		ReasoningDetails: parsed,
	}

	if v, ok := parsed["meets_criteria"].(bool); ok {
		verdict.MeetsCriteria = v
	}
	if v, ok := parsed["confidence_score"].(float64); ok {
		verdict.ConfidenceScore = v
	}
	if v, ok := parsed["clinical_justification"].(string); ok {
		verdict.ClinicalJustification = v
	}
	if v, ok := parsed["recommendation"].(string); ok {
		if rec := domain.Recommendation(v); rec.IsValid() {
			verdict.Recommendation = rec
		}
	}

	return verdict
}
