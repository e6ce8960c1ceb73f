package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/internal/domain/ports"
	"github.com/kevin07696/lawdesk/pkg/observability"
	"github.com/kevin07696/lawdesk/pkg/timeutil"
)

// Service persists subscription windows for companies
type Service struct {
	db        ports.DBPort
	companies ports.CompanyRepository
	plans     ports.PlanRepository
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new lifecycle service
func NewService(
	db ports.DBPort,
	companies ports.CompanyRepository,
	plans ports.PlanRepository,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		db:        db,
		companies: companies,
		plans:     plans,
		logger:    logger,
		now:       timeutil.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolvePlanCadence picks the cadence a plan can be billed at. A preferred
// cadence is honored when its price tier is positive; otherwise a plan that
// sells a single tier decides; otherwise preferred, else monthly.
// Unknown plans fail with domain.ErrPlanNotFound.
func (s *Service) ResolvePlanCadence(ctx context.Context, planID int64, preferred domain.Cadence) (domain.Cadence, error) {
	plan, err := s.plans.GetPlan(ctx, nil, planID)
	if err != nil {
		return "", err
	}

	monthly := plan.HasMonthlyPrice()
	annual := plan.HasAnnualPrice()

	switch {
	case preferred == domain.CadenceMonthly && monthly:
		return domain.CadenceMonthly, nil
	case preferred == domain.CadenceAnnual && annual:
		return domain.CadenceAnnual, nil
	case monthly && !annual:
		return domain.CadenceMonthly, nil
	case annual && !monthly:
		return domain.CadenceAnnual, nil
	case preferred.Valid():
		return preferred, nil
	default:
		return domain.CadenceMonthly, nil
	}
}

// effectiveCadence resolves hint > stored > plan-derived > monthly
func (s *Service) effectiveCadence(ctx context.Context, snap *domain.SubscriptionSnapshot, hint domain.Cadence) domain.Cadence {
	if hint.Valid() {
		return hint
	}
	if snap.Cadence.Valid() {
		return snap.Cadence
	}
	if snap.PlanID != nil {
		cadence, err := s.ResolvePlanCadence(ctx, *snap.PlanID, "")
		if err == nil {
			return cadence
		}
		s.logger.Warn("Failed to derive cadence from plan",
			zap.Int64("company_id", snap.CompanyID),
			zap.Int64("plan_id", *snap.PlanID),
			zap.Error(err))
	}

	s.logger.Warn("Subscription cadence unknown, defaulting to monthly",
		zap.Int64("company_id", snap.CompanyID))
	observability.RecordCadenceFallback()
	return domain.CadenceMonthly
}

// loadSnapshot returns nil without error for unknown companies
func (s *Service) loadSnapshot(ctx context.Context, db ports.DBTX, companyID int64) (*domain.SubscriptionSnapshot, error) {
	snap, err := s.companies.GetSnapshot(ctx, db, companyID)
	if err != nil {
		if errors.Is(err, domain.ErrCompanyNotFound) {
			s.logger.Warn("Company not found for subscription update",
				zap.Int64("company_id", companyID))
			return nil, nil
		}
		return nil, fmt.Errorf("load subscription snapshot: %w", err)
	}
	return snap, nil
}

// ApplyPayment starts a fresh billing period at paymentDate, clears the trial
// and reactivates the company. It is a no-op (nil window, nil error) for an
// unknown company or a zero paymentDate. Calling it twice with the same
// input writes the same values.
func (s *Service) ApplyPayment(ctx context.Context, tx ports.DBTX, companyID int64, paymentDate time.Time, hint domain.Cadence) (*domain.PaymentWindow, error) {
	if paymentDate.IsZero() {
		s.logger.Warn("Ignoring payment with invalid date",
			zap.Int64("company_id", companyID))
		return nil, nil
	}

	snap, err := s.loadSnapshot(ctx, tx, companyID)
	if err != nil || snap == nil {
		return nil, err
	}

	cadence := s.effectiveCadence(ctx, snap, hint)
	period := CalculateBillingPeriod(paymentDate.UTC(), cadence)
	window := domain.PaymentWindow{
		PeriodStart:    period.Start,
		PeriodEnd:      period.End,
		GraceExpiresAt: CalculateGraceDeadline(period.End, cadence),
		Cadence:        cadence,
	}

	if err := s.companies.ApplyPaymentWindow(ctx, tx, companyID, window); err != nil {
		return nil, fmt.Errorf("apply payment window: %w", err)
	}

	observability.RecordSubscriptionTransition("payment", string(cadence))
	s.logger.Info("Subscription payment applied",
		zap.Int64("company_id", companyID),
		zap.String("cadence", string(cadence)),
		zap.Time("period_start", window.PeriodStart),
		zap.Time("period_end", window.PeriodEnd),
		zap.Time("grace_expires_at", window.GraceExpiresAt))

	return &window, nil
}

// ApplyOverdue opens the grace window after a missed payment. The anchor is
// referenceDate, else the stored period end, else now. Only the grace
// deadline is overwritten; period end and cadence are filled when unset.
func (s *Service) ApplyOverdue(ctx context.Context, tx ports.DBTX, companyID int64, referenceDate *time.Time, hint domain.Cadence) (*domain.OverdueWindow, error) {
	snap, err := s.loadSnapshot(ctx, tx, companyID)
	if err != nil || snap == nil {
		return nil, err
	}

	var base time.Time
	switch {
	case referenceDate != nil && !referenceDate.IsZero():
		base = referenceDate.UTC()
	case present(snap.CurrentPeriodEnd):
		base = snap.CurrentPeriodEnd.UTC()
	default:
		base = s.now()
	}

	cadence := s.effectiveCadence(ctx, snap, hint)
	window := domain.OverdueWindow{
		GraceExpiresAt: CalculateGraceDeadline(base, cadence),
		PeriodEnd:      base,
		Cadence:        cadence,
	}

	if err := s.companies.ApplyOverdueWindow(ctx, tx, companyID, window); err != nil {
		return nil, fmt.Errorf("apply overdue window: %w", err)
	}

	observability.RecordSubscriptionTransition("overdue", string(cadence))
	s.logger.Info("Subscription overdue applied",
		zap.Int64("company_id", companyID),
		zap.String("cadence", string(cadence)),
		zap.Time("grace_expires_at", window.GraceExpiresAt))

	return &window, nil
}

// CreateSubscriptionRequest is the admin input for attaching a plan
type CreateSubscriptionRequest struct {
	Cadence   string
	CompanyID int64
	PlanID    int64
	WithTrial bool
}

// CreateSubscription attaches a plan to a company and opens either a trial
// or an immediate billing period starting now.
func (s *Service) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*StatusPayload, error) {
	if req.CompanyID <= 0 {
		return nil, domain.ErrValidationInvalidID.WithDetail("field", "companyId")
	}
	if req.PlanID <= 0 {
		return nil, domain.ErrValidationInvalidID.WithDetail("field", "planId")
	}

	var preferred domain.Cadence
	if req.Cadence != "" {
		c, ok := domain.ParseCadence(req.Cadence)
		if !ok {
			return nil, domain.ErrValidationInvalidEnum.
				WithDetail("field", "cadence").
				WithDetail("value", req.Cadence)
		}
		preferred = c
	}

	cadence, err := s.ResolvePlanCadence(ctx, req.PlanID, preferred)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := domain.SubscriptionStart{PlanID: req.PlanID, Cadence: cadence}
	if req.WithTrial {
		trialEnd := CalculateTrialEnd(now)
		start.TrialStartedAt = &now
		start.TrialEndsAt = &trialEnd
	} else {
		period := CalculateBillingPeriod(now, cadence)
		grace := CalculateGraceDeadline(period.End, cadence)
		start.PeriodStart = &period.Start
		start.PeriodEnd = &period.End
		start.GraceExpiresAt = &grace
	}

	var snap *domain.SubscriptionSnapshot
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.companies.StartSubscription(ctx, tx, req.CompanyID, start); err != nil {
			return err
		}
		loaded, err := s.companies.GetSnapshot(ctx, tx, req.CompanyID)
		if err != nil {
			return err
		}
		snap = loaded
		return nil
	})
	if err != nil {
		s.logger.Error("Create subscription failed",
			zap.Int64("company_id", req.CompanyID),
			zap.Int64("plan_id", req.PlanID),
			zap.Error(err))
		return nil, err
	}

	observability.RecordSubscriptionTransition("created", string(cadence))
	s.logger.Info("Subscription created",
		zap.Int64("company_id", req.CompanyID),
		zap.Int64("plan_id", req.PlanID),
		zap.String("cadence", string(cadence)),
		zap.Bool("trial", req.WithTrial))

	payload := ResolveStatusPayload(snap, now)
	return &payload, nil
}

// GetStatus renders the company's current subscription status
func (s *Service) GetStatus(ctx context.Context, companyID int64) (*StatusPayload, error) {
	if companyID <= 0 {
		return nil, domain.ErrValidationInvalidID.WithDetail("field", "companyId")
	}

	snap, err := s.companies.GetSnapshot(ctx, nil, companyID)
	if err != nil {
		return nil, err
	}

	payload := ResolveStatusPayload(snap, s.now())
	return &payload, nil
}
