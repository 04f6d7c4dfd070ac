package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
)

// Orchestrator chains the workflow phases into a single end-to-end
// prescription process: coverage verification, policy search, clinical
// eligibility, PA form generation.
type Orchestrator struct {
	patients    domain.PatientStore
	coverage    *CoverageService
	retriever   *PolicyRetriever
	eligibility *EligibilityService
	forms       *FormService
	log         *logrus.Logger
	now         func() time.Time
}

// NewOrchestrator creates the workflow orchestrator.
func NewOrchestrator(
	patients domain.PatientStore,
	coverage *CoverageService,
	retriever *PolicyRetriever,
	eligibility *EligibilityService,
	forms *FormService,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		patients:    patients,
		coverage:    coverage,
		retriever:   retriever,
		eligibility: eligibility,
		forms:       forms,
		log:         logger,
		now:         time.Now,
	}
}

// ProcessPrescription runs the end-to-end workflow for one (patient, drug)
// request. A patient that cannot be loaded aborts the workflow with an error
// result; every later phase failure degrades to a phase-level "error" status
// and the workflow still reaches a final recommendation. An uncovered drug
// short-circuits with recommendation DENY and phases 3 to 5 explicitly nil.
func (o *Orchestrator) ProcessPrescription(ctx context.Context, patientID, drug, providerName, npi string) *domain.WorkflowResult {
	workflowID := fmt.Sprintf("WF_%s_%s_%s", o.now().Format("20060102150405"), patientID, strings.ToUpper(drug))
	state := domain.StateStarted

	wlog := o.log.WithFields(logrus.Fields{
		"workflow_id": workflowID,
		"patient_id":  patientID,
		"drug":        drug,
	})
	wlog.WithField("state", state).Info("Workflow started")

	patient, err := o.patients.GetPatient(ctx, patientID)
	if err != nil {
		if domain.IsNotFound(err) {
			return o.errorResult(workflowID, fmt.Sprintf("Patient %s not found", patientID))
		}
		return o.errorResult(workflowID, err.Error())
	}

	// Phase 2: coverage verification.
	coveragePhase := o.runCoveragePhase(ctx, patient, drug)
	state = domain.StateCoverageChecked
	wlog.WithField("state", state).Info("Coverage checked")

	if !coveragePhase.Covered {
		state = domain.StateNotCovered
		wlog.WithField("state", state).Info("Drug not covered, workflow complete")
		return &domain.WorkflowResult{
			WorkflowID: workflowID,
			Status:     domain.WorkflowCompleted,
			Result:     "not_covered",
			Timestamp:  o.now(),
			Phases: domain.WorkflowPhases{
				Coverage: coveragePhase,
			},
			Recommendation: domain.DENY,
			Reason:         fmt.Sprintf("%s is not covered under %s", drug, patient.InsurancePlan),
		}
	}

	// Phase 3: policy search.
	policyPhase := o.runPolicySearchPhase(ctx, drug)
	state = domain.StatePolicySearched
	wlog.WithField("state", state).Info("Policies searched")

	policyCriteria := o.retriever.ExtractCriteria(policyPhase.Results)
	if policyPhase.Status != domain.PhaseSuccess {
		policyCriteria = "Standard medical necessity criteria"
	}

	// Phase 4: clinical eligibility.
	eligibilityPhase, verdict := o.runEligibilityPhase(ctx, patient, drug, policyCriteria)
	state = domain.StateEligibilityChecked
	wlog.WithField("state", state).Info("Eligibility checked")

	// Phase 5: PA form generation. Runs even when eligibility errored so a
	// reviewer has a form to work from.
	formPhase := o.runFormPhase(ctx, patientID, drug, verdict, providerName, npi)
	state = domain.StateFormGenerated
	wlog.WithField("state", state).Info("PA form phase complete")

	recommendation := determineRecommendation(coveragePhase, eligibilityPhase)
	state = domain.StateCompleted
	wlog.WithFields(logrus.Fields{
		"state":          state,
		"recommendation": recommendation,
	}).Info("Workflow complete")

	return &domain.WorkflowResult{
		WorkflowID: workflowID,
		Status:     domain.WorkflowCompleted,
		Result:     "success",
		Timestamp:  o.now(),
		Patient: &domain.WorkflowPatient{
			ID:            patientID,
			Name:          patient.Name,
			Age:           patient.Age,
			InsurancePlan: patient.InsurancePlan,
		},
		Phases: domain.WorkflowPhases{
			Coverage:     coveragePhase,
			PolicySearch: policyPhase,
			Eligibility:  eligibilityPhase,
			PAForm:       formPhase,
		},
		Recommendation: recommendation,
		Summary:        buildSummary(coveragePhase, eligibilityPhase, recommendation),
	}
}

func (o *Orchestrator) runCoveragePhase(ctx context.Context, patient *domain.Patient, drug string) *domain.CoveragePhase {
	result, err := o.coverage.CheckCoverageByPlan(ctx, patient.InsurancePlan, drug)
	if err != nil {
		o.log.WithField("error", err).Error("Coverage phase failed")
		return &domain.CoveragePhase{
			Covered: false,
			Status:  domain.PhaseError,
			Error:   err.Error(),
		}
	}

	return &domain.CoveragePhase{
		Covered:    result.Covered,
		PARequired: result.PARequired,
		Criteria:   result.Criteria,
		Status:     domain.PhaseSuccess,
	}
}

func (o *Orchestrator) runPolicySearchPhase(ctx context.Context, drug string) *domain.PolicySearchPhase {
	chunks, err := o.retriever.SearchByDrug(ctx, drug)
	if err != nil {
		o.log.WithField("error", err).Error("Policy search phase failed")
		return &domain.PolicySearchPhase{
			Drug:          drug,
			PoliciesFound: 0,
			Status:        domain.PhaseError,
			Error:         err.Error(),
		}
	}

	return &domain.PolicySearchPhase{
		Drug:          drug,
		PoliciesFound: len(chunks),
		Results:       chunks,
		Status:        domain.PhaseSuccess,
	}
}

func (o *Orchestrator) runEligibilityPhase(ctx context.Context, patient *domain.Patient, drug, policyCriteria string) (*domain.EligibilityPhase, *domain.EligibilityVerdict) {
	verdict, err := o.eligibility.CheckEligibilityForPatient(ctx, patient, drug, policyCriteria, true)
	if err != nil {
		o.log.WithField("error", err).Error("Eligibility phase failed")
		return &domain.EligibilityPhase{
			MeetsCriteria: false,
			Status:        domain.PhaseError,
			Error:         err.Error(),
		}, nil
	}

	return &domain.EligibilityPhase{
		MeetsCriteria:         verdict.MeetsCriteria,
		ConfidenceScore:       verdict.ConfidenceScore,
		ClinicalJustification: verdict.ClinicalJustification,
		Recommendation:        verdict.Recommendation,
		Status:                domain.PhaseSuccess,
	}, verdict
}

func (o *Orchestrator) runFormPhase(ctx context.Context, patientID, drug string, verdict *domain.EligibilityVerdict, providerName, npi string) *domain.PAFormPhase {
	form, err := o.forms.GeneratePAForm(ctx, patientID, drug, verdict, providerName, npi)
	if err != nil {
		o.log.WithField("error", err).Error("PA form phase failed")
		return &domain.PAFormPhase{
			Status: domain.PhaseError,
			Error:  err.Error(),
		}
	}

	preview := ""
	if form.ClinicalNarrative != "" {
		preview = truncateRunes(form.ClinicalNarrative, 100) + "..."
	}

	return &domain.PAFormPhase{
		FormID:               form.FormID,
		Status:               "ready_for_submission",
		HasClinicalNarrative: form.ClinicalNarrative != "",
		NarrativePreview:     preview,
		FullForm:             form,
	}
}

// determineRecommendation applies the decision rule: DENY when coverage
// failed or the drug is uncovered, REVIEW when the eligibility phase itself
// errored, APPROVE when criteria are met, DENY otherwise.
func determineRecommendation(coverage *domain.CoveragePhase, eligibility *domain.EligibilityPhase) domain.Recommendation {
	if coverage.Status != domain.PhaseSuccess || !coverage.Covered {
		return domain.DENY
	}
	if eligibility.Status != domain.PhaseSuccess {
		return domain.REVIEW
	}
	if eligibility.MeetsCriteria {
		return domain.APPROVE
	}
	return domain.DENY
}

// buildSummary renders a human-readable digest of the workflow outcome,
// derived purely from the phase outputs.
func buildSummary(coverage *domain.CoveragePhase, eligibility *domain.EligibilityPhase, recommendation domain.Recommendation) string {
	lines := []string{fmt.Sprintf("Recommendation: %s", recommendation)}

	if coverage.Status == domain.PhaseSuccess {
		coverageStatus := "Not Covered"
		if coverage.Covered {
			coverageStatus = "Covered"
		}
		paReq := "No PA Required"
		if coverage.PARequired {
			paReq = "PA Required"
		}
		lines = append(lines, fmt.Sprintf("Coverage: %s (%s)", coverageStatus, paReq))
	}

	if eligibility.Status == domain.PhaseSuccess {
		criteriaStatus := "Does Not Meet"
		if eligibility.MeetsCriteria {
			criteriaStatus = "Meets"
		}
		lines = append(lines, fmt.Sprintf("Eligibility: %s criteria (Confidence: %.0f%%)", criteriaStatus, eligibility.ConfidenceScore*100))

		justification := eligibility.ClinicalJustification
		if justification == "" {
			justification = "N/A"
		} else {
			justification = truncateRunes(justification, 150)
		}
		lines = append(lines, fmt.Sprintf("Clinical Justification: %s...", justification))
	}

	return strings.Join(lines, "\n")
}

func (o *Orchestrator) errorResult(workflowID, message string) *domain.WorkflowResult {
	o.log.WithFields(logrus.Fields{
		"workflow_id": workflowID,
		"error":       message,
		"state":       domain.StateErrored,
	}).Error("Workflow failed")

	return &domain.WorkflowResult{
		WorkflowID: workflowID,
		Status:     domain.WorkflowErrored,
		Error:      message,
		Timestamp:  o.now(),
	}
}
