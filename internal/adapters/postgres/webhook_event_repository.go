package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/internal/domain/ports"
)

// WebhookEventRepository implements ports.WebhookEventRepository
type WebhookEventRepository struct {
	base
}

// NewWebhookEventRepository creates a new webhook event ledger
func NewWebhookEventRepository(db ports.DBPort, queryTimeout time.Duration) *WebhookEventRepository {
	return &WebhookEventRepository{base: newBase(db, queryTimeout)}
}

const recordWebhookEventSQL = `
INSERT INTO asaas_webhook_events (event_id, asaas_charge_id, event)
VALUES ($1, $2, $3)
ON CONFLICT (event_id) DO NOTHING`

// Record inserts the event id and reports whether it was new
func (r *WebhookEventRepository) Record(ctx context.Context, tx ports.DBTX, event domain.WebhookEventRecord) (bool, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	tag, err := r.conn(tx).Exec(ctx, recordWebhookEventSQL, event.EventID, event.AsaasChargeID, event.Event)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
