package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pa-workflow-server/internal/domain"
)

func newCoverageService(t *testing.T, patients *fakePatientStore, store *fakeCoverageStore) *CoverageService {
	t.Helper()
	svc, err := NewCoverageService(patients, store, 16, testLogger())
	require.NoError(t, err)
	return svc
}

func TestCheckCoverage_PatientNotFound(t *testing.T) {
	svc := newCoverageService(t, &fakePatientStore{patients: map[string]*domain.Patient{}}, testCoverageStore())

	result, err := svc.CheckCoverage(context.Background(), "P999", "Ozempic")
	require.NoError(t, err, "missing patient is a negative result, not an error")

	assert.False(t, result.Covered)
	assert.False(t, result.PARequired)
	assert.Equal(t, "Patient not found: P999", result.Reason)
}

func TestCheckCoverage_DrugNotInFormulary(t *testing.T) {
	patients := &fakePatientStore{patients: map[string]*domain.Patient{"P001": testPatient()}}
	svc := newCoverageService(t, patients, testCoverageStore())

	result, err := svc.CheckCoverage(context.Background(), "P001", "Wegovy")
	require.NoError(t, err)

	assert.False(t, result.Covered)
	assert.Equal(t, "Drug not in formulary for Aetna Gold PPO", result.Reason)
}

func TestCheckCoverage_DrugNotCovered(t *testing.T) {
	svc := newCoverageService(t, &fakePatientStore{}, testCoverageStore())

	result, err := svc.CheckCoverageByPlan(context.Background(), "BlueCross Silver HMO", "Trulicity")
	require.NoError(t, err)

	assert.False(t, result.Covered)
	assert.Equal(t, "Drug not covered under BlueCross Silver HMO", result.Reason)
}

func TestCheckCoverage_CoveredWithPA(t *testing.T) {
	patients := &fakePatientStore{patients: map[string]*domain.Patient{"P001": testPatient()}}
	svc := newCoverageService(t, patients, testCoverageStore())

	result, err := svc.CheckCoverage(context.Background(), "P001", "Ozempic")
	require.NoError(t, err)

	assert.True(t, result.Covered)
	assert.True(t, result.PARequired)
	assert.Equal(t, "Coverage found", result.Reason)
	assert.Equal(t, 2, result.Tier)
	assert.InDelta(t, 45.0, result.EstimatedCopay, 1e-9)
	assert.Equal(t, "1 pen per 28 days", result.QuantityLimit)
}

func TestCheckCoverage_CoveredNoPA(t *testing.T) {
	svc := newCoverageService(t, &fakePatientStore{}, testCoverageStore())

	result, err := svc.CheckCoverageByPlan(context.Background(), "Aetna Gold PPO", "Metformin")
	require.NoError(t, err)

	assert.True(t, result.Covered)
	assert.False(t, result.PARequired)
	assert.Equal(t, "Covered, no PA required", result.Reason)
}

func TestCheckCoverage_CaseSensitiveDrugMatch(t *testing.T) {
	svc := newCoverageService(t, &fakePatientStore{}, testCoverageStore())

	result, err := svc.CheckCoverageByPlan(context.Background(), "Aetna Gold PPO", "ozempic")
	require.NoError(t, err)

	assert.False(t, result.Covered, "drug matching is case-sensitive exact match")
	assert.Equal(t, "Drug not in formulary for Aetna Gold PPO", result.Reason)
}

func TestCheckCoverage_Idempotent(t *testing.T) {
	svc := newCoverageService(t, &fakePatientStore{}, testCoverageStore())

	first, err := svc.CheckCoverageByPlan(context.Background(), "Aetna Gold PPO", "Ozempic")
	require.NoError(t, err)
	second, err := svc.CheckCoverageByPlan(context.Background(), "Aetna Gold PPO", "Ozempic")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCheckCoverage_CacheAvoidsRepeatLookups(t *testing.T) {
	store := testCoverageStore()
	svc := newCoverageService(t, &fakePatientStore{}, store)

	for i := 0; i < 5; i++ {
		_, err := svc.CheckCoverageByPlan(context.Background(), "Aetna Gold PPO", "Ozempic")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, store.lookups, "repeated lookups for immutable reference data must hit the cache")
}

func TestGetPatientInsuranceInfo(t *testing.T) {
	patients := &fakePatientStore{patients: map[string]*domain.Patient{"P001": testPatient()}}
	svc := newCoverageService(t, patients, testCoverageStore())

	info, err := svc.GetPatientInsuranceInfo(context.Background(), "P001")
	require.NoError(t, err)

	assert.Equal(t, "P001", info.PatientID)
	assert.Equal(t, "Sarah Chen", info.Name)
	assert.Equal(t, "Aetna Gold PPO", info.InsurancePlan)
	assert.Equal(t, "AET123456", info.MemberID)
}

func TestGetPatientInsuranceInfo_NotFound(t *testing.T) {
	svc := newCoverageService(t, &fakePatientStore{patients: map[string]*domain.Patient{}}, testCoverageStore())

	_, err := svc.GetPatientInsuranceInfo(context.Background(), "P999")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}
