// Package lifecycle derives and persists company subscription windows
// (trial, billing period, grace period) and renders their status.
package lifecycle

import (
	"time"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/pkg/timeutil"
)

// CalculateTrialEnd returns the end of a trial started at start
func CalculateTrialEnd(start time.Time) time.Time {
	return timeutil.AddDays(start, domain.TrialDays)
}

// CalculateBillingPeriod returns the period anchored at start. Periods are
// fixed day offsets (30 or 365 days), never calendar months: Jan 31 + monthly
// ends on Mar 2 and stored rows depend on it.
func CalculateBillingPeriod(start time.Time, cadence domain.Cadence) domain.BillingPeriod {
	return domain.BillingPeriod{
		Start: start,
		End:   timeutil.AddDays(start, cadence.PeriodDays()),
	}
}

// CalculateGraceDeadline returns when access ends after periodEnd
func CalculateGraceDeadline(periodEnd time.Time, cadence domain.Cadence) time.Time {
	return timeutil.AddDays(periodEnd, cadence.GraceDays())
}
