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

// ChargeRepository implements ports.ChargeRepository
type ChargeRepository struct {
	base
	getByAsaasIDSQL string
}

// NewChargeRepository creates a new charge repository
func NewChargeRepository(db ports.DBPort, cols SchemaColumns, queryTimeout time.Duration) *ChargeRepository {
	company := "NULL::BIGINT"
	if cols.ChargeCompany != "" {
		company = ident(cols.ChargeCompany)
	}
	return &ChargeRepository{
		base: newBase(db, queryTimeout),
		getByAsaasIDSQL: fmt.Sprintf(`
SELECT id, asaas_charge_id, credential_id, financial_flow_id, cliente_id, %s,
       status, COALESCE(last_event, ''), paid_at, payload
FROM asaas_charges
WHERE asaas_charge_id = $1`, company),
	}
}

// Last write wins; paid_at is kept when the update carries none
const applyChargeUpdateSQL = `
UPDATE asaas_charges
SET status = $2,
    last_event = $3,
    paid_at = COALESCE($4, paid_at),
    payload = $5,
    updated_at = NOW()
WHERE asaas_charge_id = $1`

// GetByAsaasID loads a charge by its provider id
func (r *ChargeRepository) GetByAsaasID(ctx context.Context, db ports.DBTX, asaasChargeID string) (*domain.Charge, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var (
		charge                                       domain.Charge
		credentialID, flowID, clienteID, companyID pgtype.Int8
		status                                       string
		paidAt                                       pgtype.Timestamptz
	)

	err := r.conn(db).QueryRow(ctx, r.getByAsaasIDSQL, asaasChargeID).Scan(
		&charge.ID, &charge.AsaasChargeID,
		&credentialID, &flowID, &clienteID, &companyID,
		&status, &charge.LastEvent, &paidAt, &charge.Payload,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChargeNotFound.WithDetail("asaas_charge_id", asaasChargeID)
		}
		return nil, fmt.Errorf("get charge by asaas id: %w", err)
	}

	charge.CredentialID = int8Ptr(credentialID)
	charge.FinancialFlowID = int8Ptr(flowID)
	charge.ClienteID = int8Ptr(clienteID)
	charge.CompanyID = int8Ptr(companyID)
	charge.Status = domain.ChargeStatus(status)
	charge.PaidAt = timestamptzPtr(paidAt)
	return &charge, nil
}

// ApplyUpdate overwrites the webhook-driven columns of a charge
func (r *ChargeRepository) ApplyUpdate(ctx context.Context, tx ports.DBTX, update domain.ChargeUpdate) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	tag, err := r.conn(tx).Exec(ctx, applyChargeUpdateSQL,
		update.AsaasChargeID,
		string(update.Status),
		nullText(update.LastEvent),
		update.PaidAt,
		update.Payload,
	)
	if err != nil {
		return fmt.Errorf("update charge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChargeNotFound.WithDetail("asaas_charge_id", update.AsaasChargeID)
	}
	return nil
}
