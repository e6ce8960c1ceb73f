package domain

import "time"

// ChargeStatus mirrors the Asaas payment status stored on a charge row
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "PENDING"
	ChargeStatusReceived  ChargeStatus = "RECEIVED"
	ChargeStatusConfirmed ChargeStatus = "CONFIRMED"
	ChargeStatusOverdue   ChargeStatus = "OVERDUE"
)

// IsPaid reports whether the status settles the charge
func (s ChargeStatus) IsPaid() bool {
	return s == ChargeStatusReceived || s == ChargeStatusConfirmed
}

// Charge is one provider-side payment. CompanyID is set only for charges
// that bill the company's own subscription.
type Charge struct {
	PaidAt          *time.Time
	CredentialID    *int64
	FinancialFlowID *int64
	ClienteID       *int64
	CompanyID       *int64
	AsaasChargeID   string
	Status          ChargeStatus
	LastEvent       string
	Payload         []byte
	ID              int64
}

// ChargeUpdate is applied by the webhook handler. Updates overwrite
// (last write wins); PaidAt nil leaves the stored value untouched.
type ChargeUpdate struct {
	PaidAt        *time.Time
	AsaasChargeID string
	Status        ChargeStatus
	LastEvent     string
	Payload       []byte
}

// Credential is a tenant's Asaas integration
type Credential struct {
	CompanyID     *int64
	WebhookSecret string
	ID            int64
}

// WebhookEventRecord is one row of the optional delivery dedup ledger
type WebhookEventRecord struct {
	EventID       string
	AsaasChargeID string
	Event         string
}
