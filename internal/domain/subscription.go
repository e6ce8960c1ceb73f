package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cadence is the billing recurrence of a company subscription.
// The empty value means "not set" and is stored as NULL.
type Cadence string

const (
	CadenceMonthly Cadence = "monthly"
	CadenceAnnual  Cadence = "annual"
)

const (
	TrialDays = 14

	monthlyPeriodDays = 30
	annualPeriodDays  = 365
	monthlyGraceDays  = 7
	annualGraceDays   = 30
)

// ParseCadence normalizes a cadence string. Legacy rows written by the
// Portuguese admin screens use "mensal"/"anual".
func ParseCadence(value string) (Cadence, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "monthly", "mensal", "month":
		return CadenceMonthly, true
	case "annual", "anual", "yearly", "year":
		return CadenceAnnual, true
	default:
		return "", false
	}
}

// Valid reports whether c is one of the known cadences
func (c Cadence) Valid() bool {
	return c == CadenceMonthly || c == CadenceAnnual
}

// PeriodDays is the fixed length of a billing period. Calendar months are
// deliberately not used: stored dates depend on the fixed offsets.
func (c Cadence) PeriodDays() int {
	if c == CadenceAnnual {
		return annualPeriodDays
	}
	return monthlyPeriodDays
}

// GraceDays is how long a company keeps access after its period ends
func (c Cadence) GraceDays() int {
	if c == CadenceAnnual {
		return annualGraceDays
	}
	return monthlyGraceDays
}

// SubscriptionStatus is the render-time status of a company subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing    SubscriptionStatus = "trialing"
	SubscriptionStatusActive      SubscriptionStatus = "active"
	SubscriptionStatusGracePeriod SubscriptionStatus = "grace_period"
	SubscriptionStatusPastDue     SubscriptionStatus = "past_due"
	SubscriptionStatusPending     SubscriptionStatus = "pending"
	SubscriptionStatusInactive    SubscriptionStatus = "inactive"
)

// SubscriptionSnapshot is the subscription state read from a company row.
// Nil timestamps are absent (or unreadable) values.
type SubscriptionSnapshot struct {
	TrialStartedAt     *time.Time
	TrialEndsAt        *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	GraceExpiresAt     *time.Time
	PlanID             *int64
	Cadence            Cadence
	CompanyID          int64
	IsActive           bool
}

// Plan holds the price tiers used to pick a cadence
type Plan struct {
	MonthlyPrice decimal.Decimal
	AnnualPrice  decimal.Decimal
	Name         string
	ID           int64
}

// HasMonthlyPrice reports whether the monthly tier is sold
func (p *Plan) HasMonthlyPrice() bool {
	return p.MonthlyPrice.IsPositive()
}

// HasAnnualPrice reports whether the annual tier is sold
func (p *Plan) HasAnnualPrice() bool {
	return p.AnnualPrice.IsPositive()
}

// BillingPeriod is a half-open billing window
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

// PaymentWindow is persisted when a payment is received
type PaymentWindow struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	GraceExpiresAt time.Time
	Cadence        Cadence
}

// OverdueWindow is persisted when a charge goes overdue. PeriodEnd and
// Cadence only fill columns that are still NULL.
type OverdueWindow struct {
	GraceExpiresAt time.Time
	PeriodEnd      time.Time
	Cadence        Cadence
}

// SubscriptionStart is persisted when an admin creates a subscription
type SubscriptionStart struct {
	TrialStartedAt *time.Time
	TrialEndsAt    *time.Time
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	GraceExpiresAt *time.Time
	Cadence        Cadence
	PlanID         int64
}
