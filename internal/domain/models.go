package domain

import (
	"fmt"
	"time"
)

// Patient Models

// Diagnosis is a single coded diagnosis on a patient record.
type Diagnosis struct {
	Name  string `json:"name"`
	ICD10 string `json:"icd10"`
}

// LabResults holds the named lab values the eligibility reasoner cites.
// Zero means "not recorded"; prompts still render a literal label for each.
type LabResults struct {
	HbA1c      float64 `json:"HbA1c,omitempty"`
	BMI        float64 `json:"BMI,omitempty"`
	WeightLbs  float64 `json:"weight_lbs,omitempty"`
	Creatinine float64 `json:"creatinine,omitempty"`
	EGFR       float64 `json:"eGFR,omitempty"`
}

// Treatment is one entry in a patient's prior treatment history.
type Treatment struct {
	Drug           string `json:"drug"`
	DurationMonths int    `json:"duration_months"`
	Outcome        string `json:"outcome"`
	Dosage         string `json:"dosage,omitempty"`
}

// Patient represents a patient record as stored. The core workflow assumes
// records have passed Validate at the data-entry boundary.
type Patient struct {
	PatientID        string            `json:"patient_id"`
	Name             string            `json:"name"`
	DateOfBirth      string            `json:"date_of_birth"`
	Age              int               `json:"age"`
	Gender           string            `json:"gender"`
	Address          map[string]string `json:"address,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	Email            string            `json:"email,omitempty"`
	InsurancePlan    string            `json:"insurance_plan"`
	MemberID         string            `json:"member_id"`
	Diagnoses        []Diagnosis       `json:"diagnoses"`
	Labs             LabResults        `json:"labs"`
	TreatmentHistory []Treatment       `json:"treatment_history"`
	Allergies        []string          `json:"allergies,omitempty"`
	CreatedAt        time.Time         `json:"created_at,omitempty"`
}

// Validate enforces boundary invariants on a patient record: at least one
// diagnosis, age within human bounds, lab values clinically plausible,
// treatment durations positive. Malformed records never reach the workflow.
func (p *Patient) Validate() error {
	if p.PatientID == "" {
		return NewValidationError("patient_id", "patient ID is required", p.PatientID)
	}
	if p.Age < MinAge || p.Age > MaxAge {
		return NewValidationError("age", fmt.Sprintf("age must be within [%d, %d]", MinAge, MaxAge), p.Age)
	}
	if len(p.Diagnoses) == 0 {
		return NewValidationError("diagnoses", "at least one diagnosis is required", nil)
	}
	for _, d := range p.Diagnoses {
		if d.Name == "" {
			return NewValidationError("diagnoses", "diagnosis name is required", d)
		}
	}
	if p.Labs.BMI != 0 && (p.Labs.BMI < MinBMI || p.Labs.BMI > MaxBMI) {
		return NewValidationError("labs.BMI", fmt.Sprintf("BMI must be within [%.0f, %.0f]", MinBMI, MaxBMI), p.Labs.BMI)
	}
	if p.Labs.HbA1c != 0 && (p.Labs.HbA1c < MinHbA1c || p.Labs.HbA1c > MaxHbA1c) {
		return NewValidationError("labs.HbA1c", fmt.Sprintf("HbA1c must be within [%.0f, %.0f]", MinHbA1c, MaxHbA1c), p.Labs.HbA1c)
	}
	for _, t := range p.TreatmentHistory {
		if t.DurationMonths <= 0 {
			return NewValidationError("treatment_history", "treatment duration must be positive", t)
		}
	}
	return nil
}

// Coverage Models

// CoverageRecord is immutable reference data keyed by (plan, drug); the
// coverage store holds at most one record per pair.
type CoverageRecord struct {
	Plan                string    `json:"plan"`
	Drug                string    `json:"drug"`
	Covered             bool      `json:"covered"`
	PARequired          bool      `json:"pa_required"`
	Criteria            string    `json:"criteria,omitempty"`
	Tier                int       `json:"tier,omitempty"`
	EstimatedCopay      float64   `json:"estimated_copay,omitempty"`
	StepTherapyRequired bool      `json:"step_therapy_required"`
	QuantityLimit       string    `json:"quantity_limit,omitempty"`
	CreatedAt           time.Time `json:"created_at,omitempty"`
}

// CoverageResult is the typed outcome of a coverage check. Reason is mandatory
// for every negative outcome and set for positive outcomes as well.
type CoverageResult struct {
	Covered             bool    `json:"covered"`
	PARequired          bool    `json:"pa_required"`
	Criteria            string  `json:"criteria,omitempty"`
	Tier                int     `json:"tier,omitempty"`
	EstimatedCopay      float64 `json:"estimated_copay,omitempty"`
	StepTherapyRequired bool    `json:"step_therapy_required"`
	QuantityLimit       string  `json:"quantity_limit,omitempty"`
	Reason              string  `json:"reason,omitempty"`
}

// CoveredAlternative is one formulary alternative under a plan.
type CoveredAlternative struct {
	Drug           string  `json:"drug"`
	Tier           int     `json:"tier"`
	EstimatedCopay float64 `json:"estimated_copay"`
	PARequired     bool    `json:"pa_required"`
}

// InsuranceInfo is the patient's insurance header block.
type InsuranceInfo struct {
	PatientID     string `json:"patient_id"`
	Name          string `json:"name"`
	InsurancePlan string `json:"insurance_plan"`
	MemberID      string `json:"member_id"`
}

// Policy Retrieval Models

// PolicyMetadata annotates an indexed policy fragment with its origin.
type PolicyMetadata struct {
	Plan     string `json:"plan,omitempty"`
	Drug     string `json:"drug,omitempty"`
	Source   string `json:"source,omitempty"`
	Criteria string `json:"criteria,omitempty"`
}

// PolicyChunk is an indexed policy text fragment returned by semantic search.
// Similarity is 1 - cosine distance, rounded to 4 decimals for reproducibility.
type PolicyChunk struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Metadata   PolicyMetadata `json:"metadata"`
	Similarity float64        `json:"similarity"`
	Distance   float64        `json:"distance"`
}

// PolicyDocument is the input shape for indexing policy text.
type PolicyDocument struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata PolicyMetadata `json:"metadata"`
}

// IndexStats reports the state of the policy index.
type IndexStats struct {
	CollectionName string `json:"collection_name"`
	DocumentCount  int    `json:"document_count"`
}

// Eligibility Models

// TokenUsage is the token accounting of a single model call.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// LLMMetadata records provenance of a model call for audit trails.
type LLMMetadata struct {
	Model      string     `json:"model"`
	LatencyMS  float64    `json:"latency_ms"`
	TokensUsed TokenUsage `json:"tokens_used"`
	Cost       float64    `json:"cost"`
}

// EligibilityVerdict is the structured eligibility determination produced once
// per (patient, drug, criteria) evaluation. Immutable after creation. Absent
// model fields take explicit defaults: MeetsCriteria false, ConfidenceScore 0,
// Recommendation NEEDS_REVIEW.
type EligibilityVerdict struct {
	MeetsCriteria         bool           `json:"meets_criteria"`
	ConfidenceScore       float64        `json:"confidence_score"`
	ClinicalJustification string         `json:"clinical_justification"`
	Recommendation        Recommendation `json:"recommendation"`
	ReasoningDetails      map[string]any `json:"reasoning_details,omitempty"`
	LLMMetadata           LLMMetadata    `json:"llm_metadata,omitempty"`
}

// PA Form Models

// VerdictSnapshot is the copy of the eligibility verdict's key fields carried
// on a PA form.
type VerdictSnapshot struct {
	MeetsCriteria   bool           `json:"meets_criteria"`
	ConfidenceScore float64        `json:"confidence_score"`
	Recommendation  Recommendation `json:"recommendation"`
}

// PAFormRecord is a complete prior-authorization form. Created once per
// successful form generation, never mutated afterwards.
type PAFormRecord struct {
	FormID               string          `json:"form_id"`
	SubmissionDate       time.Time       `json:"submission_date"`
	RequestingProvider   string          `json:"requesting_provider"`
	NPI                  string          `json:"npi"`
	PatientName          string          `json:"patient_name"`
	DateOfBirth          string          `json:"date_of_birth"`
	PatientID            string          `json:"patient_id"`
	MemberID             string          `json:"member_id"`
	InsurancePlan        string          `json:"insurance_plan"`
	DrugName             string          `json:"drug_name"`
	Dosage               string          `json:"dosage"`
	Frequency            string          `json:"frequency"`
	Duration             string          `json:"duration"`
	DiagnosisDescription string          `json:"diagnosis_description"`
	DiagnosisCode        string          `json:"diagnosis_code"`
	ClinicalNarrative    string          `json:"clinical_narrative"`
	FailedTreatments     string          `json:"failed_treatments"`
	ClinicalFindings     string          `json:"clinical_findings"`
	SupportingEvidence   string          `json:"supporting_evidence"`
	Contraindications    string          `json:"contraindications"`
	LLMMetadata          LLMMetadata     `json:"llm_metadata,omitempty"`
	EligibilityResult    VerdictSnapshot `json:"eligibility_result"`
}

// Workflow Models

// CoveragePhase is the coverage-check phase output on a workflow result.
type CoveragePhase struct {
	Covered    bool   `json:"covered"`
	PARequired bool   `json:"pa_required"`
	Criteria   string `json:"criteria,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// PolicySearchPhase is the policy-retrieval phase output.
type PolicySearchPhase struct {
	Drug           string        `json:"drug"`
	PoliciesFound  int           `json:"policies_found"`
	Results        []PolicyChunk `json:"results,omitempty"`
	Status         string        `json:"status"`
	Error          string        `json:"error,omitempty"`
}

// EligibilityPhase is the clinical-eligibility phase output.
type EligibilityPhase struct {
	MeetsCriteria         bool           `json:"meets_criteria"`
	ConfidenceScore       float64        `json:"confidence_score"`
	ClinicalJustification string         `json:"clinical_justification,omitempty"`
	Recommendation        Recommendation `json:"recommendation,omitempty"`
	Status                string         `json:"status"`
	Error                 string         `json:"error,omitempty"`
}

// PAFormPhase is the form-generation phase output.
type PAFormPhase struct {
	FormID               string        `json:"form_id,omitempty"`
	Status               string        `json:"status"`
	HasClinicalNarrative bool          `json:"has_clinical_narrative"`
	NarrativePreview     string        `json:"narrative_preview,omitempty"`
	FullForm             *PAFormRecord `json:"full_form,omitempty"`
	Error                string        `json:"error,omitempty"`
}

// WorkflowPhases groups per-phase outputs. Skipped phases are explicitly nil
// so the result object makes the short-circuit visible, never silent.
type WorkflowPhases struct {
	Coverage     *CoveragePhase     `json:"phase2_coverage"`
	PolicySearch *PolicySearchPhase `json:"phase3_policy_search"`
	Eligibility  *EligibilityPhase  `json:"phase4_eligibility"`
	PAForm       *PAFormPhase       `json:"phase5_pa_form"`
}

// WorkflowPatient is the patient header block on a workflow result.
type WorkflowPatient struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	InsurancePlan string `json:"insurance_plan"`
}

// WorkflowResult is the unit of output from one orchestration run.
type WorkflowResult struct {
	WorkflowID     string           `json:"workflow_id"`
	Status         string           `json:"status"`
	Result         string           `json:"result,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	Patient        *WorkflowPatient `json:"patient,omitempty"`
	Phases         WorkflowPhases   `json:"phases"`
	Recommendation Recommendation   `json:"recommendation,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	Summary        string           `json:"summary,omitempty"`
	Error          string           `json:"error,omitempty"`
}
