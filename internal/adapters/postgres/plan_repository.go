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

// PlanRepository implements ports.PlanRepository
type PlanRepository struct {
	base
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db ports.DBPort, queryTimeout time.Duration) *PlanRepository {
	return &PlanRepository{base: newBase(db, queryTimeout)}
}

const getPlanSQL = `
SELECT id, name, monthly_price, annual_price
FROM plans
WHERE id = $1`

// GetPlan loads a plan's price tiers
func (r *PlanRepository) GetPlan(ctx context.Context, db ports.DBTX, planID int64) (*domain.Plan, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var (
		plan            domain.Plan
		monthly, annual pgtype.Numeric
	)
	err := r.conn(db).QueryRow(ctx, getPlanSQL, planID).Scan(&plan.ID, &plan.Name, &monthly, &annual)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlanNotFound.WithDetail("plan_id", planID)
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}

	if plan.MonthlyPrice, err = pgNumericToDecimal(monthly); err != nil {
		return nil, fmt.Errorf("convert monthly price: %w", err)
	}
	if plan.AnnualPrice, err = pgNumericToDecimal(annual); err != nil {
		return nil, fmt.Errorf("convert annual price: %w", err)
	}
	return &plan, nil
}
