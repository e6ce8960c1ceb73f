package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/internal/services/lifecycle"
	"github.com/kevin07696/lawdesk/internal/util"
	pkgerrors "github.com/kevin07696/lawdesk/pkg/errors"
)

const maxRequestBytes = 16 << 10

// Service is the subscription use-case surface used by the handler
type Service interface {
	CreateSubscription(ctx context.Context, req lifecycle.CreateSubscriptionRequest) (*lifecycle.StatusPayload, error)
	GetStatus(ctx context.Context, companyID int64) (*lifecycle.StatusPayload, error)
}

// Handler serves the company subscription endpoints
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new subscription handler
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// CreateSubscriptionRequest is the POST body
type CreateSubscriptionRequest struct {
	Cadence   string `json:"cadence"`
	PlanID    int64  `json:"planId"`
	WithTrial bool   `json:"withTrial"`
}

// GetStatus handles GET /api/v1/companies/{companyID}/subscription
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	companyID, err := util.PathID(r, "companyID")
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	payload, err := h.service.GetStatus(r.Context(), companyID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	util.RespondJSON(w, h.logger, http.StatusOK, payload)
}

// CreateSubscription handles POST /api/v1/companies/{companyID}/subscription
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	companyID, err := util.PathID(r, "companyID")
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	var req CreateSubscriptionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("Failed to parse subscription request", zap.Error(err))
		util.RespondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	payload, err := h.service.CreateSubscription(r.Context(), lifecycle.CreateSubscriptionRequest{
		Cadence:   req.Cadence,
		CompanyID: companyID,
		PlanID:    req.PlanID,
		WithTrial: req.WithTrial,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	util.RespondJSON(w, h.logger, http.StatusCreated, payload)
}

// handleServiceError maps domain errors to HTTP status codes
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	if ve, ok := pkgerrors.AsValidationError(err); ok {
		util.RespondError(w, h.logger, http.StatusBadRequest, ve.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		util.RespondError(w, h.logger, http.StatusBadRequest, "Plano não encontrado")
	case domain.IsValidationError(err):
		util.RespondError(w, h.logger, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, domain.ErrCompanyNotFound):
		util.RespondError(w, h.logger, http.StatusNotFound, "company not found")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		util.RespondError(w, h.logger, http.StatusServiceUnavailable, "request canceled")
	default:
		// Log internal errors but don't expose details to client
		h.logger.Error("Subscription request failed", zap.Error(err))
		util.RespondError(w, h.logger, http.StatusInternalServerError, "internal server error")
	}
}

func validationMessage(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		if field, ok := de.Details["field"].(string); ok {
			return de.Message + ": " + field
		}
		return de.Message
	}
	return err.Error()
}
