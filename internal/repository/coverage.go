package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/database"
	"github.com/pa-workflow-server/internal/domain"
)

// CoverageRepository handles the immutable (plan, drug) coverage reference
// data. At most one record exists per pair.
type CoverageRepository struct {
	db  *database.DB
	log *logrus.Logger
}

// NewCoverageRepository creates a new coverage repository
func NewCoverageRepository(db *database.DB, logger *logrus.Logger) *CoverageRepository {
	return &CoverageRepository{
		db:  db,
		log: logger,
	}
}

// GetCoverage retrieves the coverage record for a (plan, drug) pair. Drug
// matching is case-sensitive exact match against the stored formulary. A
// missing record yields domain.ErrNotFound.
func (r *CoverageRepository) GetCoverage(ctx context.Context, plan, drug string) (*domain.CoverageRecord, error) {
	query := r.db.Rebind(`
		SELECT plan, drug, covered, pa_required, criteria, tier, estimated_copay,
		       step_therapy_required, quantity_limit
		FROM insurance_plans
		WHERE plan = ? AND drug = ?`)

	var (
		record        domain.CoverageRecord
		criteria      sql.NullString
		tier          sql.NullInt64
		copay         sql.NullFloat64
		quantityLimit sql.NullString
	)

	err := r.db.SQL.QueryRowContext(ctx, query, plan, drug).Scan(
		&record.Plan,
		&record.Drug,
		&record.Covered,
		&record.PARequired,
		&criteria,
		&tier,
		&copay,
		&record.StepTherapyRequired,
		&quantityLimit,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("coverage for (%s, %s): %w", plan, drug, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"plan":  plan,
			"drug":  drug,
			"error": err,
		}).Error("Failed to get coverage record")
		return nil, fmt.Errorf("getting coverage record: %w", err)
	}

	record.Criteria = criteria.String
	record.Tier = int(tier.Int64)
	record.EstimatedCopay = copay.Float64
	record.QuantityLimit = quantityLimit.String

	return &record, nil
}

// ListPlans returns the distinct plan names with formulary data.
func (r *CoverageRepository) ListPlans(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT plan FROM insurance_plans ORDER BY plan`

	rows, err := r.db.SQL.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []string
	for rows.Next() {
		var plan string
		if err := rows.Scan(&plan); err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan rows: %w", err)
	}

	return plans, nil
}

// ListDrugs returns the drugs on a plan's formulary.
func (r *CoverageRepository) ListDrugs(ctx context.Context, plan string) ([]string, error) {
	query := r.db.Rebind(`SELECT drug FROM insurance_plans WHERE plan = ? ORDER BY drug`)

	rows, err := r.db.SQL.QueryContext(ctx, query, plan)
	if err != nil {
		return nil, fmt.Errorf("listing drugs: %w", err)
	}
	defer rows.Close()

	var drugs []string
	for rows.Next() {
		var drug string
		if err := rows.Scan(&drug); err != nil {
			return nil, fmt.Errorf("scanning drug row: %w", err)
		}
		drugs = append(drugs, drug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating drug rows: %w", err)
	}

	return drugs, nil
}

// ListCoveredAlternatives returns up to limit covered drugs under a plan.
func (r *CoverageRepository) ListCoveredAlternatives(ctx context.Context, plan string, limit int) ([]domain.CoveredAlternative, error) {
	query := r.db.Rebind(`
		SELECT drug, tier, estimated_copay, pa_required
		FROM insurance_plans
		WHERE plan = ? AND covered = TRUE
		ORDER BY tier, drug
		LIMIT ?`)

	rows, err := r.db.SQL.QueryContext(ctx, query, plan, limit)
	if err != nil {
		return nil, fmt.Errorf("listing covered alternatives: %w", err)
	}
	defer rows.Close()

	var alternatives []domain.CoveredAlternative
	for rows.Next() {
		var (
			alt   domain.CoveredAlternative
			tier  sql.NullInt64
			copay sql.NullFloat64
		)
		if err := rows.Scan(&alt.Drug, &tier, &copay, &alt.PARequired); err != nil {
			return nil, fmt.Errorf("scanning alternative row: %w", err)
		}
		alt.Tier = int(tier.Int64)
		alt.EstimatedCopay = copay.Float64
		alternatives = append(alternatives, alt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alternative rows: %w", err)
	}

	return alternatives, nil
}

// CreateCoverage inserts a coverage record. Reference data is loaded once at
// import time and treated as immutable afterwards.
func (r *CoverageRepository) CreateCoverage(ctx context.Context, record *domain.CoverageRecord) error {
	query := r.db.Rebind(`
		INSERT INTO insurance_plans (
			plan, drug, covered, pa_required, criteria, tier, estimated_copay,
			step_therapy_required, quantity_limit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.SQL.ExecContext(ctx, query,
		record.Plan,
		record.Drug,
		record.Covered,
		record.PARequired,
		record.Criteria,
		record.Tier,
		record.EstimatedCopay,
		record.StepTherapyRequired,
		record.QuantityLimit,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"plan":  record.Plan,
			"drug":  record.Drug,
			"error": err,
		}).Error("Failed to create coverage record")
		return fmt.Errorf("creating coverage record: %w", err)
	}

	return nil
}
