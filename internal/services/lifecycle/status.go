package lifecycle

import (
	"time"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/pkg/timeutil"
)

// StatusPayload is the JSON shape served to the admin UI. Dates are ISO-8601
// strings in UTC or null.
type StatusPayload struct {
	PlanID             *int64                    `json:"planId"`
	Status             domain.SubscriptionStatus `json:"status"`
	Cadence            *string                   `json:"cadence"`
	StartedAt          *string                   `json:"startedAt"`
	TrialEndsAt        *string                   `json:"trialEndsAt"`
	CurrentPeriodStart *string                   `json:"currentPeriodStart"`
	CurrentPeriodEnd   *string                   `json:"currentPeriodEnd"`
	GraceExpiresAt     *string                   `json:"graceExpiresAt"`
}

func present(t *time.Time) bool {
	return t != nil && !t.IsZero()
}

// ResolveStatus applies the status precedence; the first match wins:
// inactive, trialing, active, grace_period, pending, past_due.
func ResolveStatus(snap *domain.SubscriptionSnapshot, now time.Time) domain.SubscriptionStatus {
	if snap == nil || snap.PlanID == nil || !snap.IsActive {
		return domain.SubscriptionStatusInactive
	}

	if present(snap.TrialStartedAt) && present(snap.TrialEndsAt) && now.Before(*snap.TrialEndsAt) {
		return domain.SubscriptionStatusTrialing
	}

	// A running period wins over any grace deadline
	if present(snap.CurrentPeriodStart) && present(snap.CurrentPeriodEnd) && !now.After(*snap.CurrentPeriodEnd) {
		return domain.SubscriptionStatusActive
	}

	if present(snap.GraceExpiresAt) && !now.After(*snap.GraceExpiresAt) {
		return domain.SubscriptionStatusGracePeriod
	}

	if !present(snap.TrialEndsAt) && !present(snap.CurrentPeriodStart) &&
		!present(snap.CurrentPeriodEnd) && !present(snap.GraceExpiresAt) {
		return domain.SubscriptionStatusPending
	}

	return domain.SubscriptionStatusPastDue
}

// ResolveStatusPayload renders snap as seen at now
func ResolveStatusPayload(snap *domain.SubscriptionSnapshot, now time.Time) StatusPayload {
	payload := StatusPayload{Status: ResolveStatus(snap, now)}
	if snap == nil {
		return payload
	}

	payload.PlanID = snap.PlanID
	if snap.Cadence.Valid() {
		c := string(snap.Cadence)
		payload.Cadence = &c
	}

	startedAt := snap.TrialStartedAt
	if !present(startedAt) {
		startedAt = snap.CurrentPeriodStart
	}
	payload.StartedAt = timeutil.FormatISOPtr(startedAt)
	payload.TrialEndsAt = timeutil.FormatISOPtr(snap.TrialEndsAt)
	payload.CurrentPeriodStart = timeutil.FormatISOPtr(snap.CurrentPeriodStart)
	payload.CurrentPeriodEnd = timeutil.FormatISOPtr(snap.CurrentPeriodEnd)
	payload.GraceExpiresAt = timeutil.FormatISOPtr(snap.GraceExpiresAt)

	return payload
}
