package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
)

// ErrorResponse is returned by read endpoints on failure.
type ErrorResponse struct {
	ID      uuid.UUID `json:"id"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// statusFor maps domain errors to HTTP status codes and error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInterbankTransferFailed):
		return http.StatusBadGateway, "INTERBANK_FAILED"
	case errors.Is(err, domain.ErrBelowMinimumAmount),
		errors.Is(err, domain.ErrDailyLimitExceeded),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, "FAILED_PRECONDITION"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// handleMutationError answers a failed transfer, credit or debit with a FAILED result.
func (h *Handler) handleMutationError(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logInternal(r, err)
		message = "An internal error occurred"
	}
	sendFailure(w, status, message)
}

// handleQueryError answers a failed read.
func (h *Handler) handleQueryError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logInternal(r, err)
		message = "An internal error occurred"
	}
	sendErrorResponse(w, status, code, message)
}

func (h *Handler) logInternal(r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
}

func sendFailure(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, domain.TransferResult{Status: domain.TransferStatusFailed, Message: message})
}

// sendErrorResponse sends an error response in the expected format
func sendErrorResponse(w http.ResponseWriter, status int, code, message string) {
	sendJSON(w, status, ErrorResponse{ID: uuid.New(), Code: code, Message: message})
}

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
