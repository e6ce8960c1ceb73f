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

// CredentialRepository implements ports.CredentialRepository
type CredentialRepository struct {
	base
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db ports.DBPort, queryTimeout time.Duration) *CredentialRepository {
	return &CredentialRepository{base: newBase(db, queryTimeout)}
}

const getCredentialSQL = `
SELECT c.id, c.company_id, COALESCE(s.secret, '')
FROM asaas_credentials c
LEFT JOIN asaas_webhook_secrets s ON s.credential_id = c.id
WHERE c.id = $1`

const insertWebhookSecretSQL = `
INSERT INTO asaas_webhook_secrets (credential_id, secret)
VALUES ($1, $2)
ON CONFLICT (credential_id) DO NOTHING`

// Get loads a credential and its webhook secret, if any
func (r *CredentialRepository) Get(ctx context.Context, db ports.DBTX, credentialID int64) (*domain.Credential, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var (
		cred      domain.Credential
		companyID pgtype.Int8
	)
	err := r.conn(db).QueryRow(ctx, getCredentialSQL, credentialID).Scan(&cred.ID, &companyID, &cred.WebhookSecret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound.WithDetail("credential_id", credentialID)
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	cred.CompanyID = int8Ptr(companyID)
	return &cred, nil
}

// InsertWebhookSecret stores secret unless the credential already has one
func (r *CredentialRepository) InsertWebhookSecret(ctx context.Context, tx ports.DBTX, credentialID int64, secret string) (bool, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	tag, err := r.conn(tx).Exec(ctx, insertWebhookSecretSQL, credentialID, secret)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, domain.ErrCredentialNotFound.WithDetail("credential_id", credentialID)
		}
		return false, fmt.Errorf("insert webhook secret: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
