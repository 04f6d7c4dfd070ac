package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
)

// In-memory fakes for the capability interfaces. Each fake supports forced
// failures so degraded phases can be exercised.

type fakePatientStore struct {
	patients map[string]*domain.Patient
	err      error
	calls    int
}

func (f *fakePatientStore) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.patients[patientID]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", patientID, domain.ErrNotFound)
	}
	return p, nil
}

type fakeCoverageStore struct {
	records map[string]*domain.CoverageRecord
	err     error
	lookups int
}

func coverageKey(plan, drug string) string { return plan + "|" + drug }

func (f *fakeCoverageStore) GetCoverage(ctx context.Context, plan, drug string) (*domain.CoverageRecord, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[coverageKey(plan, drug)]
	if !ok {
		return nil, fmt.Errorf("coverage for (%s, %s): %w", plan, drug, domain.ErrNotFound)
	}
	return rec, nil
}

func (f *fakeCoverageStore) ListPlans(ctx context.Context) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCoverageStore) ListDrugs(ctx context.Context, plan string) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCoverageStore) ListCoveredAlternatives(ctx context.Context, plan string, limit int) ([]domain.CoveredAlternative, error) {
	var alternatives []domain.CoveredAlternative
	for _, rec := range f.records {
		if rec.Plan == plan && rec.Covered {
			alternatives = append(alternatives, domain.CoveredAlternative{
				Drug:           rec.Drug,
				Tier:           rec.Tier,
				EstimatedCopay: rec.EstimatedCopay,
				PARequired:     rec.PARequired,
			})
		}
		if len(alternatives) >= limit {
			break
		}
	}
	return alternatives, nil
}

type fakePolicyIndex struct {
	chunks []domain.PolicyChunk
	err    error
}

func (f *fakePolicyIndex) Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]domain.PolicyChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.chunks) > topK {
		return f.chunks[:topK], nil
	}
	return f.chunks, nil
}

func (f *fakePolicyIndex) AddDocuments(ctx context.Context, docs []domain.PolicyDocument) error {
	return f.err
}

func (f *fakePolicyIndex) Stats(ctx context.Context) (*domain.IndexStats, error) {
	return &domain.IndexStats{CollectionName: "test", DocumentCount: len(f.chunks)}, nil
}

// fakeModel returns scripted responses in order, then repeats the last one.
type fakeModel struct {
	responses []string
	err       error
	requests  []domain.CompletionRequest
}

func (f *fakeModel) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}

	idx := len(f.requests) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}

	return &domain.CompletionResponse{
		Content:    f.responses[idx],
		Model:      "fake-model",
		LatencyMS:  12.5,
		TokensUsed: domain.TokenUsage{Input: 100, Output: 50, Total: 150},
		Cost:       0.001,
	}, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testPatient() *domain.Patient {
	return &domain.Patient{
		PatientID:     "P001",
		Name:          "Sarah Chen",
		DateOfBirth:   "1985-03-14",
		Age:           40,
		Gender:        "Female",
		InsurancePlan: "Aetna Gold PPO",
		MemberID:      "AET123456",
		Diagnoses: []domain.Diagnosis{
			{Name: "Type 2 Diabetes", ICD10: "E11.9"},
			{Name: "Obesity", ICD10: "E66.9"},
		},
		Labs: domain.LabResults{
			HbA1c:      8.2,
			BMI:        32.5,
			WeightLbs:  198,
			Creatinine: 0.9,
			EGFR:       95,
		},
		TreatmentHistory: []domain.Treatment{
			{Drug: "Metformin", DurationMonths: 12, Outcome: "inadequate response"},
			{Drug: "Glipizide", DurationMonths: 6, Outcome: "discontinued due to hypoglycemia"},
		},
	}
}

func testCoverageStore() *fakeCoverageStore {
	return &fakeCoverageStore{
		records: map[string]*domain.CoverageRecord{
			coverageKey("Aetna Gold PPO", "Ozempic"): {
				Plan:           "Aetna Gold PPO",
				Drug:           "Ozempic",
				Covered:        true,
				PARequired:     true,
				Criteria:       "T2DM diagnosis; HbA1c > 7.0; metformin trial >= 3 months",
				Tier:           2,
				EstimatedCopay: 45.0,
				QuantityLimit:  "1 pen per 28 days",
			},
			coverageKey("Aetna Gold PPO", "Metformin"): {
				Plan:           "Aetna Gold PPO",
				Drug:           "Metformin",
				Covered:        true,
				PARequired:     false,
				Tier:           1,
				EstimatedCopay: 10.0,
			},
			coverageKey("BlueCross Silver HMO", "Trulicity"): {
				Plan:    "BlueCross Silver HMO",
				Drug:    "Trulicity",
				Covered: false,
			},
		},
	}
}
