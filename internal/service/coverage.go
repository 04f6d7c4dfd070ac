package service

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
)

// CoverageService verifies drug coverage against a patient's insurance plan.
// Coverage reference data is immutable, so (plan, drug) lookups go through an
// LRU read-through cache.
type CoverageService struct {
	patients domain.PatientStore
	coverage domain.CoverageStore
	cache    *lru.Cache[string, *domain.CoverageRecord]
	log      *logrus.Logger
}

// NewCoverageService creates the coverage verification service.
func NewCoverageService(patients domain.PatientStore, coverage domain.CoverageStore, cacheSize int, logger *logrus.Logger) (*CoverageService, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	cache, err := lru.New[string, *domain.CoverageRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating coverage cache: %w", err)
	}

	return &CoverageService{
		patients: patients,
		coverage: coverage,
		cache:    cache,
		log:      logger,
	}, nil
}

// CheckCoverage verifies coverage for a patient's requested drug. A missing
// patient or formulary record is a negative result with a reason, never an
// error. Only infrastructure failures return an error.
func (s *CoverageService) CheckCoverage(ctx context.Context, patientID, drug string) (*domain.CoverageResult, error) {
	s.log.WithFields(logrus.Fields{
		"patient_id": patientID,
		"drug":       drug,
	}).Info("Checking coverage")

	patient, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		if domain.IsNotFound(err) {
			s.log.WithField("patient_id", patientID).Warn("Patient not found")
			return &domain.CoverageResult{
				Covered:    false,
				PARequired: false,
				Reason:     fmt.Sprintf("Patient not found: %s", patientID),
			}, nil
		}
		return nil, err
	}

	return s.CheckCoverageByPlan(ctx, patient.InsurancePlan, drug)
}

// CheckCoverageByPlan verifies coverage for a (plan, drug) pair directly.
func (s *CoverageService) CheckCoverageByPlan(ctx context.Context, plan, drug string) (*domain.CoverageResult, error) {
	record, err := s.lookupCoverage(ctx, plan, drug)
	if err != nil {
		if domain.IsNotFound(err) {
			s.log.WithFields(logrus.Fields{
				"plan": plan,
				"drug": drug,
			}).Warn("Drug not in formulary")
			return &domain.CoverageResult{
				Covered:    false,
				PARequired: false,
				Reason:     fmt.Sprintf("Drug not in formulary for %s", plan),
			}, nil
		}
		return nil, err
	}

	if !record.Covered {
		return &domain.CoverageResult{
			Covered:    false,
			PARequired: false,
			Reason:     fmt.Sprintf("Drug not covered under %s", plan),
		}, nil
	}

	s.log.WithFields(logrus.Fields{
		"drug":        drug,
		"pa_required": record.PARequired,
	}).Info("Drug covered")

	reason := "Covered, no PA required"
	if record.PARequired {
		reason = "Coverage found"
	}

	return &domain.CoverageResult{
		Covered:             true,
		PARequired:          record.PARequired,
		Criteria:            record.Criteria,
		Tier:                record.Tier,
		EstimatedCopay:      record.EstimatedCopay,
		StepTherapyRequired: record.StepTherapyRequired,
		QuantityLimit:       record.QuantityLimit,
		Reason:              reason,
	}, nil
}

// GetCoveredAlternatives returns up to ten covered drugs under a plan.
func (s *CoverageService) GetCoveredAlternatives(ctx context.Context, plan string) ([]domain.CoveredAlternative, error) {
	return s.coverage.ListCoveredAlternatives(ctx, plan, 10)
}

// GetPatientInsuranceInfo returns the patient's insurance header block.
func (s *CoverageService) GetPatientInsuranceInfo(ctx context.Context, patientID string) (*domain.InsuranceInfo, error) {
	patient, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	return &domain.InsuranceInfo{
		PatientID:     patient.PatientID,
		Name:          patient.Name,
		InsurancePlan: patient.InsurancePlan,
		MemberID:      patient.MemberID,
	}, nil
}

// ListPlans returns the distinct plan names with formulary data.
func (s *CoverageService) ListPlans(ctx context.Context) ([]string, error) {
	return s.coverage.ListPlans(ctx)
}

// ListDrugs returns the drugs on a plan's formulary.
func (s *CoverageService) ListDrugs(ctx context.Context, plan string) ([]string, error) {
	return s.coverage.ListDrugs(ctx, plan)
}

func (s *CoverageService) lookupCoverage(ctx context.Context, plan, drug string) (*domain.CoverageRecord, error) {
	key := plan + "|" + drug

	if record, ok := s.cache.Get(key); ok {
		s.log.WithField("key", key).Debug("Coverage cache hit")
		return record, nil
	}

	record, err := s.coverage.GetCoverage(ctx, plan, drug)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, record)
	return record, nil
}
