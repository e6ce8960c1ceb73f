package ports

import (
	"context"

	"github.com/kevin07696/lawdesk/internal/domain"
)

// CompanyRepository reads and writes the subscription columns of a company.
// GetSnapshot returns domain.ErrCompanyNotFound for unknown ids.
type CompanyRepository interface {
	GetSnapshot(ctx context.Context, db DBTX, companyID int64) (*domain.SubscriptionSnapshot, error)
	ApplyPaymentWindow(ctx context.Context, tx DBTX, companyID int64, window domain.PaymentWindow) error
	ApplyOverdueWindow(ctx context.Context, tx DBTX, companyID int64, window domain.OverdueWindow) error
	StartSubscription(ctx context.Context, tx DBTX, companyID int64, start domain.SubscriptionStart) error
}

// PlanRepository loads plan price tiers.
// GetPlan returns domain.ErrPlanNotFound for unknown ids.
type PlanRepository interface {
	GetPlan(ctx context.Context, db DBTX, planID int64) (*domain.Plan, error)
}

// ChargeRepository reads and mutates Asaas charge rows
type ChargeRepository interface {
	// GetByAsaasID returns domain.ErrChargeNotFound when no row matches
	GetByAsaasID(ctx context.Context, db DBTX, asaasChargeID string) (*domain.Charge, error)

	// ApplyUpdate overwrites status, last event and payload. It reports
	// domain.ErrChargeNotFound when no row was touched.
	ApplyUpdate(ctx context.Context, tx DBTX, update domain.ChargeUpdate) error
}

// CredentialRepository reads Asaas integrations and their webhook secrets
type CredentialRepository interface {
	// Get returns domain.ErrCredentialNotFound for unknown ids. A credential
	// without a secret comes back with an empty WebhookSecret.
	Get(ctx context.Context, db DBTX, credentialID int64) (*domain.Credential, error)

	// InsertWebhookSecret stores secret unless one already exists and reports
	// whether this call won.
	InsertWebhookSecret(ctx context.Context, tx DBTX, credentialID int64, secret string) (bool, error)
}

// WebhookEventRepository is the optional delivery dedup ledger
type WebhookEventRepository interface {
	// Record returns false when the event id was already recorded
	Record(ctx context.Context, tx DBTX, event domain.WebhookEventRecord) (bool, error)
}
