package integration

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/internal/services/credential"
	"github.com/kevin07696/lawdesk/internal/util"
	pkgerrors "github.com/kevin07696/lawdesk/pkg/errors"
)

// WebhookSettingsProvider returns the callback configuration for a credential
type WebhookSettingsProvider interface {
	WebhookSettings(ctx context.Context, credentialID int64) (*credential.WebhookSettings, error)
}

// AsaasHandler serves the Asaas integration settings shown to admins
type AsaasHandler struct {
	settings WebhookSettingsProvider
	logger   *zap.Logger
}

// NewAsaasHandler creates a new integration handler
func NewAsaasHandler(settings WebhookSettingsProvider, logger *zap.Logger) *AsaasHandler {
	return &AsaasHandler{
		settings: settings,
		logger:   logger,
	}
}

// GetWebhookSettings handles GET /api/v1/integrations/asaas/{credentialID}/webhook.
// The secret is created on first request.
func (h *AsaasHandler) GetWebhookSettings(w http.ResponseWriter, r *http.Request) {
	credentialID, err := util.PathID(r, "credentialID")
	if err != nil {
		ve, _ := pkgerrors.AsValidationError(err)
		util.RespondError(w, h.logger, http.StatusBadRequest, ve.Error())
		return
	}

	settings, err := h.settings.WebhookSettings(r.Context(), credentialID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCredentialNotFound):
			util.RespondError(w, h.logger, http.StatusNotFound, "credential not found")
		case domain.IsValidationError(err):
			util.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to load webhook settings",
				zap.Int64("credential_id", credentialID),
				zap.Error(err))
			util.RespondError(w, h.logger, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	util.RespondJSON(w, h.logger, http.StatusOK, settings)
}
