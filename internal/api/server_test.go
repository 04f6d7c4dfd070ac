package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pa-workflow-server/internal/domain"
	"github.com/pa-workflow-server/internal/service"
)

type stubPatientStore struct {
	patients map[string]*domain.Patient
}

func (s *stubPatientStore) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	p, ok := s.patients[patientID]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", patientID, domain.ErrNotFound)
	}
	return p, nil
}

type stubCoverageStore struct {
	records map[string]*domain.CoverageRecord
}

func (s *stubCoverageStore) GetCoverage(ctx context.Context, plan, drug string) (*domain.CoverageRecord, error) {
	rec, ok := s.records[plan+"|"+drug]
	if !ok {
		return nil, fmt.Errorf("coverage for (%s, %s): %w", plan, drug, domain.ErrNotFound)
	}
	return rec, nil
}

func (s *stubCoverageStore) ListPlans(ctx context.Context) ([]string, error) {
	return []string{"Aetna Gold PPO"}, nil
}

func (s *stubCoverageStore) ListDrugs(ctx context.Context, plan string) ([]string, error) {
	return []string{"Ozempic"}, nil
}

func (s *stubCoverageStore) ListCoveredAlternatives(ctx context.Context, plan string, limit int) ([]domain.CoveredAlternative, error) {
	return nil, nil
}

type stubPolicyIndex struct {
	docs []domain.PolicyDocument
}

func (s *stubPolicyIndex) Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]domain.PolicyChunk, error) {
	return []domain.PolicyChunk{}, nil
}

func (s *stubPolicyIndex) AddDocuments(ctx context.Context, docs []domain.PolicyDocument) error {
	s.docs = append(s.docs, docs...)
	return nil
}

func (s *stubPolicyIndex) Stats(ctx context.Context) (*domain.IndexStats, error) {
	return &domain.IndexStats{CollectionName: "pa_policies", DocumentCount: len(s.docs)}, nil
}

type stubModel struct{}

func (s *stubModel) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	return &domain.CompletionResponse{
		Content: `{"meets_criteria": true, "recommendation": "APPROVE", "confidence_score": 0.9}`,
		Model:   "stub",
	}, nil
}

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	patients := &stubPatientStore{patients: map[string]*domain.Patient{
		"P001": {
			PatientID:     "P001",
			Name:          "Sarah Chen",
			Age:           40,
			InsurancePlan: "Aetna Gold PPO",
			MemberID:      "AET123456",
			Diagnoses:     []domain.Diagnosis{{Name: "Type 2 Diabetes", ICD10: "E11.9"}},
		},
	}}
	coverageStore := &stubCoverageStore{records: map[string]*domain.CoverageRecord{
		"Aetna Gold PPO|Ozempic": {
			Plan: "Aetna Gold PPO", Drug: "Ozempic",
			Covered: true, PARequired: true,
		},
	}}

	coverageSvc, err := service.NewCoverageService(patients, coverageStore, 16, logger)
	require.NoError(t, err)
	retriever := service.NewPolicyRetriever(&stubPolicyIndex{}, logger)
	eligibilitySvc := service.NewEligibilityService(patients, retriever, &stubModel{}, logger)
	formSvc := service.NewFormService(patients, &stubModel{}, logger)
	orch := service.NewOrchestrator(patients, coverageSvc, retriever, eligibilitySvc, formSvc, logger)

	cfg := &domain.Config{
		Logging: domain.LoggingConfig{Level: "error"},
		Auth:    domain.AuthConfig{APIKey: apiKey},
	}

	return NewServer(cfg, coverageSvc, retriever, eligibilitySvc, formSvc, orch, logger)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestCoverageCheckEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	body := strings.NewReader(`{"patient_id": "P001", "drug": "Ozempic"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/coverage/check", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"covered":true`)
	assert.Contains(t, w.Body.String(), `"reason":"Coverage found"`)
}

func TestCoverageCheckEndpoint_MissingFields(t *testing.T) {
	server := newTestServer(t, "")

	body := strings.NewReader(`{"patient_id": "P001"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/coverage/check", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInsuranceInfoEndpoint_NotFound(t *testing.T) {
	server := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/P999/insurance", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	server := newTestServer(t, "secret-key")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/coverage/plans", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/coverage/plans", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w = httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Health stays open for probes.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIndexPolicyDocumentEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	body := strings.NewReader(`{
		"id": "aetna_ozempic",
		"text": "Ozempic requires documented Type 2 Diabetes, HbA1c above 7.0, and a prior metformin trial.",
		"metadata": {"plan": "Aetna Gold PPO", "drug": "Ozempic", "criteria": "T2DM; HbA1c > 7.0"}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/policies/documents", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"document":"aetna_ozempic"`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/policies/stats", nil)
	w = httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"document_count":1`, "indexed documents must be visible to later requests")
}

func TestIndexPolicyDocumentEndpoint_MissingText(t *testing.T) {
	server := newTestServer(t, "")

	body := strings.NewReader(`{"id": "aetna_ozempic"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/policies/documents", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkflowEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	body := strings.NewReader(`{"patient_id": "P001", "drug": "Ozempic"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflow/process", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"recommendation":"APPROVE"`)
	assert.Contains(t, w.Body.String(), `"phase2_coverage"`)
}
