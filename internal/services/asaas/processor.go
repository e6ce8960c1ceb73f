package asaas

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

// Outcome describes what happened to one delivery. It feeds logs and
// metrics only; the provider always gets the same response.
type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeIgnored           Outcome = "ignored"
	OutcomeInvalidPayload    Outcome = "invalid_payload"
	OutcomeUnknownCharge     Outcome = "unknown_charge"
	OutcomeMissingSecret     Outcome = "missing_secret"
	OutcomeRejectedSignature Outcome = "rejected_signature"
	OutcomeDuplicate         Outcome = "duplicate"
	OutcomeLookupFailed      Outcome = "lookup_failed"
	OutcomeFailed            Outcome = "failed"
)

// LifecycleApplier recomputes a company's subscription window
type LifecycleApplier interface {
	ApplyPayment(ctx context.Context, tx ports.DBTX, companyID int64, paymentDate time.Time, hint domain.Cadence) (*domain.PaymentWindow, error)
	ApplyOverdue(ctx context.Context, tx ports.DBTX, companyID int64, referenceDate *time.Time, hint domain.Cadence) (*domain.OverdueWindow, error)
}

// Delivery is one inbound webhook request
type Delivery struct {
	// CredentialID comes from the callback URL when the tenant registered one
	CredentialID *int64
	Signature    string
	Body         []byte
}

// Processor verifies webhook deliveries and applies them to charges and
// subscriptions
type Processor struct {
	db          ports.DBPort
	charges     ports.ChargeRepository
	credentials ports.CredentialRepository
	events      ports.WebhookEventRepository
	lifecycle   LifecycleApplier
	logger      *zap.Logger
	now         func() time.Time
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithEventLedger turns on delivery dedup by event id
func WithEventLedger(events ports.WebhookEventRepository) ProcessorOption {
	return func(p *Processor) {
		p.events = events
	}
}

// WithProcessorClock overrides the time source
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates a new webhook processor. Without WithEventLedger,
// charge updates are last-write-wins.
func NewProcessor(
	db ports.DBPort,
	charges ports.ChargeRepository,
	credentials ports.CredentialRepository,
	lifecycle LifecycleApplier,
	logger *zap.Logger,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		db:          db,
		charges:     charges,
		credentials: credentials,
		lifecycle:   lifecycle,
		logger:      logger,
		now:         timeutil.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one delivery. A non-nil error is returned only when a
// verified event could not be persisted.
func (p *Processor) Process(ctx context.Context, d Delivery) (Outcome, error) {
	start := time.Now()
	event := ""

	outcome, err := p.process(ctx, d, &event)

	observability.RecordWebhookEvent(event, string(outcome), time.Since(start).Seconds())
	return outcome, err
}

func (p *Processor) process(ctx context.Context, d Delivery, event *string) (Outcome, error) {
	payload, err := ParsePayload(d.Body)
	if err != nil {
		p.logger.Warn("Rejected malformed Asaas webhook", zap.Error(err))
		return OutcomeInvalidPayload, nil
	}
	*event = payload.Event

	kind := payload.Kind()
	status, handled := kind.ChargeStatus()
	if !handled {
		p.logger.Info("Ignoring Asaas webhook event",
			zap.String("event", payload.Event))
		return OutcomeIgnored, nil
	}

	chargeID := payload.Payment.ExternalID()
	if chargeID == "" {
		p.logger.Warn("Asaas webhook without charge id",
			zap.String("event", payload.Event))
		return OutcomeInvalidPayload, nil
	}

	log := p.logger.With(
		zap.String("event", payload.Event),
		zap.String("charge_id", chargeID))

	charge, err := p.charges.GetByAsaasID(ctx, nil, chargeID)
	if err != nil {
		if errors.Is(err, domain.ErrChargeNotFound) {
			log.Warn("Asaas webhook for unknown charge")
			return OutcomeUnknownCharge, nil
		}
		log.Error("Failed to load charge for Asaas webhook", zap.Error(err))
		return OutcomeLookupFailed, nil
	}

	secret, outcome := p.resolveSecret(ctx, log, charge, d.CredentialID)
	if outcome != "" {
		return outcome, nil
	}

	if !Verify(d.Body, d.Signature, secret) {
		log.Warn("Asaas webhook signature rejected",
			zap.Bool("signature_present", d.Signature != ""))
		return OutcomeRejectedSignature, nil
	}

	update := domain.ChargeUpdate{
		AsaasChargeID: chargeID,
		Status:        status,
		LastEvent:     payload.Event,
		Payload:       d.Body,
	}
	var paidAt time.Time
	if status.IsPaid() {
		paidAt = payload.Payment.PaidAt(p.now())
		update.PaidAt = &paidAt
	}

	duplicate := false
	err = p.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if p.events != nil && payload.ID != "" {
			inserted, err := p.events.Record(ctx, tx, domain.WebhookEventRecord{
				EventID:       payload.ID,
				AsaasChargeID: chargeID,
				Event:         payload.Event,
			})
			if err != nil {
				return fmt.Errorf("record webhook event: %w", err)
			}
			if !inserted {
				duplicate = true
				return nil
			}
		}

		if err := p.charges.ApplyUpdate(ctx, tx, update); err != nil {
			return fmt.Errorf("update charge: %w", err)
		}

		if charge.CompanyID == nil {
			return nil
		}

		switch kind {
		case EventPaymentReceived, EventPaymentConfirmed:
			if _, err := p.lifecycle.ApplyPayment(ctx, tx, *charge.CompanyID, paidAt, ""); err != nil {
				return err
			}
		case EventPaymentOverdue:
			if _, err := p.lifecycle.ApplyOverdue(ctx, tx, *charge.CompanyID, payload.Payment.DueAt(), ""); err != nil {
				return err
			}
		case EventIgnored:
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to apply Asaas webhook", zap.Error(err))
		return OutcomeFailed, err
	}

	if duplicate {
		log.Info("Duplicate Asaas webhook delivery skipped",
			zap.String("event_id", payload.ID))
		return OutcomeDuplicate, nil
	}

	fields := []zap.Field{zap.String("status", string(status))}
	if charge.CompanyID != nil {
		fields = append(fields, zap.Int64("company_id", *charge.CompanyID))
	}
	log.Info("Asaas webhook applied", fields...)
	return OutcomeApplied, nil
}

// resolveSecret loads the webhook secret of the charge's credential, or of
// the credential named in the callback URL for charges without one. A
// non-empty Outcome means the delivery stops here.
func (p *Processor) resolveSecret(ctx context.Context, log *zap.Logger, charge *domain.Charge, urlCredentialID *int64) (string, Outcome) {
	credentialID := charge.CredentialID
	if credentialID == nil {
		credentialID = urlCredentialID
	} else if urlCredentialID != nil && *urlCredentialID != *credentialID {
		log.Warn("Callback credential differs from charge credential",
			zap.Int64("url_credential_id", *urlCredentialID),
			zap.Int64("charge_credential_id", *credentialID))
	}
	if credentialID == nil {
		log.Warn("No credential to verify Asaas webhook")
		return "", OutcomeMissingSecret
	}

	cred, err := p.credentials.Get(ctx, nil, *credentialID)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			log.Warn("Asaas webhook credential not found",
				zap.Int64("credential_id", *credentialID))
			return "", OutcomeMissingSecret
		}
		log.Error("Failed to load Asaas credential",
			zap.Int64("credential_id", *credentialID),
			zap.Error(err))
		return "", OutcomeLookupFailed
	}
	if cred.WebhookSecret == "" {
		log.Warn("Asaas credential has no webhook secret",
			zap.Int64("credential_id", *credentialID))
		return "", OutcomeMissingSecret
	}
	return cred.WebhookSecret, ""
}
