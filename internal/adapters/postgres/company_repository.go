package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/internal/domain/ports"
)

// CompanyRepository implements ports.CompanyRepository
type CompanyRepository struct {
	base
	getSnapshotSQL       string
	startSubscriptionSQL string
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db ports.DBPort, cols SchemaColumns, queryTimeout time.Duration) *CompanyRepository {
	plan := ident(cols.CompanyPlan)
	return &CompanyRepository{
		base: newBase(db, queryTimeout),
		getSnapshotSQL: fmt.Sprintf(`
SELECT id, %s, billing_cadence, is_active,
       trial_started_at, trial_ends_at,
       current_period_start, current_period_end, grace_expires_at
FROM companies
WHERE id = $1`, plan),
		startSubscriptionSQL: fmt.Sprintf(`
UPDATE companies
SET %s = $2,
    billing_cadence = $3,
    is_active = TRUE,
    trial_started_at = $4,
    trial_ends_at = $5,
    current_period_start = $6,
    current_period_end = $7,
    grace_expires_at = $8,
    updated_at = NOW()
WHERE id = $1`, plan),
	}
}

const applyPaymentWindowSQL = `
UPDATE companies
SET current_period_start = $2,
    current_period_end = $3,
    grace_expires_at = $4,
    billing_cadence = $5,
    trial_started_at = NULL,
    trial_ends_at = NULL,
    is_active = TRUE,
    updated_at = NOW()
WHERE id = $1`

const applyOverdueWindowSQL = `
UPDATE companies
SET grace_expires_at = $2,
    current_period_end = COALESCE(current_period_end, $3),
    billing_cadence = COALESCE(billing_cadence, $4),
    updated_at = NOW()
WHERE id = $1`

// GetSnapshot loads the subscription columns of a company
func (r *CompanyRepository) GetSnapshot(ctx context.Context, db ports.DBTX, companyID int64) (*domain.SubscriptionSnapshot, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var (
		id                                     int64
		planID                                 pgtype.Int8
		cadence                                pgtype.Text
		isActive                               pgtype.Bool
		trialStarted, trialEnds                pgtype.Timestamptz
		periodStart, periodEnd, graceExpiresAt pgtype.Timestamptz
	)

	err := r.conn(db).QueryRow(ctx, r.getSnapshotSQL, companyID).Scan(
		&id, &planID, &cadence, &isActive,
		&trialStarted, &trialEnds,
		&periodStart, &periodEnd, &graceExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCompanyNotFound.WithDetail("company_id", companyID)
		}
		return nil, fmt.Errorf("get company snapshot: %w", err)
	}

	snap := &domain.SubscriptionSnapshot{
		CompanyID:          id,
		PlanID:             int8Ptr(planID),
		IsActive:           isActive.Valid && isActive.Bool,
		TrialStartedAt:     timestamptzPtr(trialStarted),
		TrialEndsAt:        timestamptzPtr(trialEnds),
		CurrentPeriodStart: timestamptzPtr(periodStart),
		CurrentPeriodEnd:   timestamptzPtr(periodEnd),
		GraceExpiresAt:     timestamptzPtr(graceExpiresAt),
	}
	if cadence.Valid {
		// Unknown values read as unset
		snap.Cadence, _ = domain.ParseCadence(cadence.String)
	}
	return snap, nil
}

// ApplyPaymentWindow stores a fresh billing period and clears the trial
func (r *CompanyRepository) ApplyPaymentWindow(ctx context.Context, tx ports.DBTX, companyID int64, window domain.PaymentWindow) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	tag, err := r.conn(tx).Exec(ctx, applyPaymentWindowSQL,
		companyID,
		window.PeriodStart,
		window.PeriodEnd,
		window.GraceExpiresAt,
		nullText(string(window.Cadence)),
	)
	if err != nil {
		return fmt.Errorf("apply payment window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCompanyNotFound.WithDetail("company_id", companyID)
	}
	return nil
}

// ApplyOverdueWindow stores the grace deadline and fills period end and
// cadence only when they are NULL
func (r *CompanyRepository) ApplyOverdueWindow(ctx context.Context, tx ports.DBTX, companyID int64, window domain.OverdueWindow) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	tag, err := r.conn(tx).Exec(ctx, applyOverdueWindowSQL,
		companyID,
		window.GraceExpiresAt,
		window.PeriodEnd,
		nullText(string(window.Cadence)),
	)
	if err != nil {
		return fmt.Errorf("apply overdue window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCompanyNotFound.WithDetail("company_id", companyID)
	}
	return nil
}

// StartSubscription attaches a plan and overwrites every window column
func (r *CompanyRepository) StartSubscription(ctx context.Context, tx ports.DBTX, companyID int64, start domain.SubscriptionStart) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	tag, err := r.conn(tx).Exec(ctx, r.startSubscriptionSQL,
		companyID,
		start.PlanID,
		nullText(string(start.Cadence)),
		start.TrialStartedAt,
		start.TrialEndsAt,
		start.PeriodStart,
		start.PeriodEnd,
		start.GraceExpiresAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrPlanNotFound.WithDetail("plan_id", start.PlanID)
		}
		return fmt.Errorf("start subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCompanyNotFound.WithDetail("company_id", companyID)
	}
	return nil
}
