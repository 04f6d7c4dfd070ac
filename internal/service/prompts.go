// Package service implements the prior-authorization workflow: coverage
// verification, policy retrieval, LLM-based clinical eligibility review,
// PA form generation and the orchestrator chaining them end to end.
package service

import (
	"fmt"
	"strings"

	"github.com/pa-workflow-server/internal/domain"
)

// reviewerSystemPrompt frames the model as a utilization review specialist
// and pins the JSON output contract for eligibility determinations.
const reviewerSystemPrompt = `You are an expert medical utilization review specialist with 15+ years of experience evaluating prior authorization requests for insurance companies.

Your role is to:
1. Carefully analyze patient clinical data
2. Compare against insurance policy criteria
3. Make evidence-based eligibility determinations
4. Provide clear, concise reasoning citing specific data points

Always:
- Use clinical terminology accurately
- Reference specific lab values, diagnosis codes, and treatment history
- Distinguish between medical necessity and coverage policy
- Flag missing data that could affect the determination
- Provide JSON-formatted responses for system integration`

const ragEnhancedTemplate = `
Analyze the following patient case using policy context retrieved from our document system:

=== RETRIEVED POLICY CONTEXT ===
%s

=== INSURANCE POLICY CRITERIA ===
%s

=== PATIENT CLINICAL DATA ===
Patient ID: %s
Age: %d
Gender: %s
Diagnoses: %s
Lab Values:
  - HbA1c: %v%%
  - BMI: %v kg/m²
  - Weight: %v lbs
  - Creatinine: %v
  - eGFR: %v

Treatment History:
%s

Current Request: Authorization for %s

=== SPECIFIC POLICY REQUIREMENTS TO EVALUATE ===
%s

=== TASK ===
Using the retrieved policy context and clinical data:
1. Verify patient meets EACH requirement
2. Identify any clinical contraindications
3. Note strength of evidence for each criterion
4. Provide specific recommendations

Respond ONLY with valid JSON:
{
  "meets_criteria": true/false,
  "criteria_analysis": {
    "requirement_1": {"met": true/false, "evidence": "specific data"},
    "requirement_2": {"met": true/false, "evidence": "specific data"},
    ...
  },
  "clinical_justification": "Comprehensive reasoning tying together all criteria",
  "contraindications": ["list any red flags"],
  "confidence_score": 0.0-1.0,
  "missing_data": ["what's needed for stronger evidence"],
  "recommendation": "APPROVE/DENY/NEEDS_REVIEW",
  "estimated_pa_approval_probability": 0.0-1.0
}
`

// narrativeSystemPrompt frames the model as a clinical documentation
// specialist for PA form narratives.
const narrativeSystemPrompt = `You are a clinical documentation specialist who writes professional medical justifications for insurance prior authorization requests. Your narratives must be:

- Clinically accurate and evidence-based
- Concise but comprehensive (150-250 words)
- Written in professional medical language
- Focused on why the requested drug is medically necessary for this specific patient
- Include relevant clinical history, failed treatments, and clinical reasoning

Output format: A single cohesive paragraph suitable for submission to insurance companies.`

const narrativeUserTemplate = `Generate a clinical justification paragraph for a Prior Authorization request:

PATIENT: %s, Age %d, %s
DIAGNOSIS: %s
DRUG: %s
POLICY CRITERIA: %s

Create a professional 150-250 word clinical justification narrative.`

// buildEligibilityPrompt renders the RAG-enhanced eligibility prompt for one
// patient case.
func buildEligibilityPrompt(policyContext, policyCriteria string, patient *domain.Patient, drug string) string {
	return fmt.Sprintf(ragEnhancedTemplate,
		policyContext,
		policyCriteria,
		patient.PatientID,
		patient.Age,
		patient.Gender,
		formatDiagnoses(patient.Diagnoses),
		patient.Labs.HbA1c,
		patient.Labs.BMI,
		patient.Labs.WeightLbs,
		patient.Labs.Creatinine,
		patient.Labs.EGFR,
		formatTreatmentHistory(patient.TreatmentHistory),
		drug,
		policyCriteria,
	)
}

// buildNarrativePrompt renders the PA narrative prompt for one form request.
func buildNarrativePrompt(patient *domain.Patient, drug, policyCriteria string) string {
	if policyCriteria == "" {
		policyCriteria = "Standard medical necessity"
	}
	return fmt.Sprintf(narrativeUserTemplate,
		patient.Name,
		patient.Age,
		patient.Gender,
		formatDiagnoses(patient.Diagnoses),
		drug,
		policyCriteria,
	)
}

// formatDiagnoses renders diagnoses as "name (icd10)" pairs for prompts.
func formatDiagnoses(diagnoses []domain.Diagnosis) string {
	if len(diagnoses) == 0 {
		return "No diagnoses recorded"
	}

	parts := make([]string, 0, len(diagnoses))
	for _, d := range diagnoses {
		icd10 := d.ICD10
		if icd10 == "" {
			icd10 = "N/A"
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", d.Name, icd10))
	}
	return strings.Join(parts, ", ")
}

// formatTreatmentHistory renders prior treatments as a numbered list.
func formatTreatmentHistory(history []domain.Treatment) string {
	if len(history) == 0 {
		return "No prior treatment history available"
	}

	lines := make([]string, 0, len(history))
	for i, t := range history {
		lines = append(lines, fmt.Sprintf("%d. %s: %d months, outcome: %s", i+1, t.Drug, t.DurationMonths, t.Outcome))
	}
	return strings.Join(lines, "\n")
}

// formatPolicyContext renders retrieved policy chunks as an annotated context
// block, truncating each chunk to 300 characters.
func formatPolicyContext(chunks []domain.PolicyChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	lines := []string{"Retrieved Policy Context:"}
	for i, chunk := range chunks {
		text := truncateRunes(chunk.Text, 300)
		plan := chunk.Metadata.Plan
		if plan == "" {
			plan = "Unknown"
		}
		drug := chunk.Metadata.Drug
		if drug == "" {
			drug = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("\n[Context %d - %s/%s (%.2f%% match)]", i+1, plan, drug, chunk.Similarity*100))
		lines = append(lines, text+"...")
	}
	return strings.Join(lines, "\n")
}

// truncateRunes shortens s to at most n runes. Policy text and model output
// can carry multi-byte characters, so byte slicing is not safe here.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
