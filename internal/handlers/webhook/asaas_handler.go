package webhook

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kevin07696/lawdesk/internal/services/asaas"
	"github.com/kevin07696/lawdesk/internal/util"
)

// MaxBodyBytes caps the raw webhook body read before verification
const MaxBodyBytes = 256 << 10

// Processor applies a verified delivery
type Processor interface {
	Process(ctx context.Context, d asaas.Delivery) (asaas.Outcome, error)
}

// AsaasHandler receives Asaas payment webhooks
type AsaasHandler struct {
	processor Processor
	logger    *zap.Logger
}

// NewAsaasHandler creates a new Asaas webhook handler
func NewAsaasHandler(processor Processor, logger *zap.Logger) *AsaasHandler {
	return &AsaasHandler{
		processor: processor,
		logger:    logger,
	}
}

type receivedResponse struct {
	Received bool `json:"received"`
}

// HandleWebhook handles POST /api/v1/webhooks/asaas[/{credentialID}].
// The provider always gets 202 unless a verified event failed to persist,
// so business rejections never trigger provider retries.
func (h *AsaasHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("Panic while handling Asaas webhook",
				zap.Any("panic", rec),
				zap.Stack("stack"))
			util.RespondError(w, h.logger, http.StatusInternalServerError, "internal error")
		}
	}()

	if r.Method != http.MethodPost {
		util.RespondError(w, h.logger, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		h.logger.Warn("Failed to read Asaas webhook body",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		h.accepted(w)
		return
	}

	delivery := asaas.Delivery{
		Signature: asaas.SignatureFromHeaders(r.Header),
		Body:      body,
	}

	if raw := r.PathValue("credentialID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.logger.Warn("Ignoring invalid credential id in webhook path",
				zap.String("credential_id", raw))
		} else {
			delivery.CredentialID = &id
		}
	}

	outcome, err := h.processor.Process(r.Context(), delivery)
	if err != nil {
		h.logger.Error("Asaas webhook persistence failed",
			zap.String("outcome", string(outcome)),
			zap.Error(err))
		util.RespondError(w, h.logger, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Debug("Asaas webhook handled", zap.String("outcome", string(outcome)))
	h.accepted(w)
}

func (h *AsaasHandler) accepted(w http.ResponseWriter) {
	util.RespondJSON(w, h.logger, http.StatusAccepted, receivedResponse{Received: true})
}
