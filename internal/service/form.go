package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
)

// Narrative generation runs warmer than eligibility reasoning so the prose
// reads naturally.
const (
	narrativeTemperature = 0.7
	narrativeMaxTokens   = 500
)

const (
	defaultProviderName = "Dr. Unknown"
	defaultNPI          = "0000000000"
)

// FormService assembles prior-authorization forms with LLM-generated clinical
// narratives. Forms are immutable once generated.
type FormService struct {
	patients domain.PatientStore
	model    domain.LanguageModel
	log      *logrus.Logger
	now      func() time.Time
}

// NewFormService creates the PA form service.
func NewFormService(patients domain.PatientStore, model domain.LanguageModel, logger *logrus.Logger) *FormService {
	return &FormService{
		patients: patients,
		model:    model,
		log:      logger,
		now:      time.Now,
	}
}

// GeneratePAForm builds a complete PA form for a patient and drug. A missing
// patient is a hard error, unlike coverage checks where it is a tagged
// negative result. FormID is deterministic for a given (day, patient, drug).
func (s *FormService) GeneratePAForm(ctx context.Context, patientID, drug string, verdict *domain.EligibilityVerdict, providerName, npi string) (*domain.PAFormRecord, error) {
	if providerName == "" {
		providerName = defaultProviderName
	}
	if npi == "" {
		npi = defaultNPI
	}
	if verdict == nil {
		verdict = &domain.EligibilityVerdict{Recommendation: domain.REVIEW}
	}

	s.log.WithFields(logrus.Fields{
		"patient_id": patientID,
		"drug":       drug,
	}).Info("Generating PA form")

	patient, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	prompt := buildNarrativePrompt(patient, drug, verdict.ClinicalJustification)

	resp, err := s.model.Complete(ctx, domain.CompletionRequest{
		Messages: []domain.Message{
			{Role: "system", Content: narrativeSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: narrativeTemperature,
		MaxTokens:   narrativeMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generating clinical narrative: %w", err)
	}

	submitted := s.now()
	formID := fmt.Sprintf("PA_%s_%s_%s", submitted.Format("20060102"), patientID, strings.ToUpper(drug))

	diagnosisCode := "N/A"
	if len(patient.Diagnoses) > 0 && patient.Diagnoses[0].ICD10 != "" {
		diagnosisCode = patient.Diagnoses[0].ICD10
	}

	form := &domain.PAFormRecord{
		FormID:               formID,
		SubmissionDate:       submitted,
		RequestingProvider:   providerName,
		NPI:                  npi,
		PatientName:          patient.Name,
		DateOfBirth:          patient.DateOfBirth,
		PatientID:            patientID,
		MemberID:             patient.MemberID,
		InsurancePlan:        patient.InsurancePlan,
		DrugName:             drug,
		Dosage:               "As prescribed",
		Frequency:            "As prescribed",
		Duration:             "3 months",
		DiagnosisDescription: formatDiagnoses(patient.Diagnoses),
		DiagnosisCode:        diagnosisCode,
		ClinicalNarrative:    resp.Content,
		FailedTreatments:     "See medical record",
		ClinicalFindings:     formatDiagnoses(patient.Diagnoses),
		SupportingEvidence:   "Clinical determination and policy compliance verified",
		Contraindications:    "None noted",
		LLMMetadata: domain.LLMMetadata{
			Model:      resp.Model,
			LatencyMS:  resp.LatencyMS,
			TokensUsed: resp.TokensUsed,
			Cost:       resp.Cost,
		},
		EligibilityResult: domain.VerdictSnapshot{
			MeetsCriteria:   verdict.MeetsCriteria,
			ConfidenceScore: verdict.ConfidenceScore,
			Recommendation:  verdict.Recommendation,
		},
	}

	s.log.WithField("form_id", formID).Info("PA form generated")
	return form, nil
}

// RenderMarkdown produces the markdown representation of a PA form. Pure
// transform, no side effects.
func (s *FormService) RenderMarkdown(form *domain.PAFormRecord) string {
	return fmt.Sprintf(`# PRIOR AUTHORIZATION REQUEST

## Form Information
- **Form ID**: %s
- **Submission Date**: %s
- **Requesting Provider**: %s

## Patient Information
- **Name**: %s
- **Date of Birth**: %s
- **Member ID**: %s
- **Insurance Plan**: %s

## Clinical Information
- **Requested Drug**: %s
- **Dosage**: %s
- **Frequency**: %s
- **Expected Duration**: %s
- **Primary Diagnosis**: %s

## Clinical Justification

%s

### Clinical Findings
%s

### Supporting Evidence
%s

---
**Confidential - For Insurance Use Only**
`,
		form.FormID,
		form.SubmissionDate.Format(time.RFC3339),
		form.RequestingProvider,
		form.PatientName,
		form.DateOfBirth,
		form.MemberID,
		form.InsurancePlan,
		form.DrugName,
		form.Dosage,
		form.Frequency,
		form.Duration,
		form.DiagnosisDescription,
		form.ClinicalNarrative,
		form.ClinicalFindings,
		form.SupportingEvidence,
	)
}
