package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/sirupsen/logrus"

	"csc-ledger/internal/models"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// Helper function for sending errors
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusFor maps the ledger error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidPackage),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrMissingReference):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrEntitlementNotFound),
		errors.Is(err, models.ErrTransactionNotFound),
		errors.Is(err, models.ErrWalletNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTransactionNotPending),
		errors.Is(err, models.ErrDuplicateReference),
		errors.Is(err, models.ErrLeadAlreadyAssigned):
		return http.StatusConflict
	case errors.Is(err, models.ErrNoActiveEntitlement),
		errors.Is(err, models.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrConcurrencyConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, logger *logrus.Logger, operation string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithField("operation", operation).Error("Request failed")
	}
	if status == http.StatusInternalServerError {
		// Internal details stay in the log
		writeError(w, status, fmt.Sprintf("Failed to %s", operation))
		return
	}
	writeError(w, status, err.Error())
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return false
	}
	return validateStruct(w, validate, dst)
}

func validateStruct(w http.ResponseWriter, validate *validator.Validate, v any) bool {
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return false
	}
	return true
}
