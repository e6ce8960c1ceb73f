// Package credential manages the webhook secret shared with Asaas for each
// tenant integration.
package credential

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/internal/domain/ports"
	"github.com/kevin07696/lawdesk/pkg/observability"
)

const (
	secretBytes  = 32
	callbackPath = "/api/v1/webhooks/asaas/"
)

// URLConfig controls the callback URL shown to admins
type URLConfig struct {
	// PublicWebhookURL overrides the computed URL when set
	PublicWebhookURL string
	PublicBaseURL    string
}

// WebhookSettings is what an admin pastes into the Asaas dashboard
type WebhookSettings struct {
	URL    string `json:"url"`
	Secret string `json:"secret"`
}

// SecretService lazily creates webhook secrets
type SecretService struct {
	db          ports.DBPort
	credentials ports.CredentialRepository
	urls        URLConfig
	logger      *zap.Logger
	random      func([]byte) (int, error)
}

// NewSecretService creates a new secret service
func NewSecretService(db ports.DBPort, credentials ports.CredentialRepository, urls URLConfig, logger *zap.Logger) *SecretService {
	return &SecretService{
		db:          db,
		credentials: credentials,
		urls:        urls,
		logger:      logger,
		random:      rand.Read,
	}
}

func (s *SecretService) generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := s.random(buf); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// EnsureWebhookSecret returns the credential's secret, creating one on first
// use. Concurrent first calls all return the single stored value.
func (s *SecretService) EnsureWebhookSecret(ctx context.Context, credentialID int64) (string, error) {
	if credentialID <= 0 {
		return "", domain.ErrValidationInvalidID.WithDetail("field", "credentialId")
	}

	cred, err := s.credentials.Get(ctx, nil, credentialID)
	if err != nil {
		return "", err
	}
	if cred.WebhookSecret != "" {
		return cred.WebhookSecret, nil
	}

	candidate, err := s.generateSecret()
	if err != nil {
		return "", err
	}

	var secret string
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		inserted, err := s.credentials.InsertWebhookSecret(ctx, tx, credentialID, candidate)
		if err != nil {
			return fmt.Errorf("insert webhook secret: %w", err)
		}
		if inserted {
			observability.RecordWebhookSecretCreated()
			s.logger.Info("Webhook secret created",
				zap.Int64("credential_id", credentialID))
		}

		// Re-read so a concurrent winner's value is returned
		stored, err := s.credentials.Get(ctx, tx, credentialID)
		if err != nil {
			return err
		}
		secret = stored.WebhookSecret
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to ensure webhook secret",
			zap.Int64("credential_id", credentialID),
			zap.Error(err))
		return "", err
	}
	if secret == "" {
		return "", domain.ErrSecretMissing.WithDetail("credential_id", credentialID)
	}
	return secret, nil
}

// CallbackURL returns the URL Asaas should post webhooks to
func (s *SecretService) CallbackURL(credentialID int64) string {
	if u := strings.TrimSpace(s.urls.PublicWebhookURL); u != "" {
		return u
	}
	base := strings.TrimRight(strings.TrimSpace(s.urls.PublicBaseURL), "/")
	return base + callbackPath + strconv.FormatInt(credentialID, 10)
}

// WebhookSettings returns the callback URL and secret for a credential
func (s *SecretService) WebhookSettings(ctx context.Context, credentialID int64) (*WebhookSettings, error) {
	secret, err := s.EnsureWebhookSecret(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	return &WebhookSettings{
		URL:    s.CallbackURL(credentialID),
		Secret: secret,
	}, nil
}
