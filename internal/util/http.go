package util

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	pkgerrors "github.com/kevin07696/lawdesk/pkg/errors"
)

// PathID parses a positive integer path value such as {companyID}
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// RespondJSON writes v with the given status code
func RespondJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// RespondError sends an error response
func RespondError(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	RespondJSON(w, logger, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
