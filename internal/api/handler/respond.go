// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"wallet-ledger/internal/util" // For custom errors

	"go.uber.org/zap"
)

// DefaultTimeout bounds the handling time of a single request.
const DefaultTimeout = 15 * time.Second

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// Helper function to send JSON responses.
func respondWithJSON(w http.ResponseWriter, logger *zap.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal JSON response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// errorStatus maps a service error to its HTTP status and client-facing message.
func errorStatus(err error) (int, string) {
	switch {
	case util.IsError(err, util.ErrAmountInvalid):
		return http.StatusBadRequest, "amount must be a positive number"
	case util.IsError(err, util.ErrInvalidInput):
		return http.StatusBadRequest, err.Error() // Use the error message directly for invalid input
	case util.IsError(err, util.ErrInvalidOwner):
		return http.StatusBadRequest, "invalid authenticated user"
	case util.IsError(err, util.ErrCurrencyMismatch):
		return http.StatusBadRequest, "currency does not match the wallet currency"
	case util.IsError(err, util.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case util.IsError(err, util.ErrUserInactive):
		return http.StatusForbidden, "user is inactive"
	case util.IsError(err, util.ErrEmailTaken):
		return http.StatusConflict, "email already registered"
	case util.IsError(err, util.ErrInsufficientBalance):
		return http.StatusPaymentRequired, "insufficient balance" // 402 Payment Required
	case util.IsError(err, util.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case util.IsError(err, util.ErrDuplicateEntry):
		return http.StatusConflict, "duplicate request"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// Helper function to send error responses.
func respondWithError(w http.ResponseWriter, logger *zap.Logger, err error) {
	statusCode, message := errorStatus(err)
	if statusCode == http.StatusInternalServerError {
		logger.Error("unhandled service error", zap.Error(err))
	}
	respondWithJSON(w, logger, statusCode, errorResponse{Error: message})
}
