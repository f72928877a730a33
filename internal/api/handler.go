// Package api exposes the transfer engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
)

// Engine is the set of operations the HTTP surface drives.
type Engine interface {
	Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error)
	Credit(ctx context.Context, number int64, amount decimal.Decimal) (*domain.TransferResult, error)
	Debit(ctx context.Context, number int64, amount decimal.Decimal) (*domain.TransferResult, error)
	GetBalance(ctx context.Context, number int64) (decimal.Decimal, error)
	GetHistory(ctx context.Context, number int64) ([]domain.LedgerEntryView, error)
	GetRecentHistory(ctx context.Context, number int64, limit int) ([]domain.LedgerEntryView, error)
	GetHistoryByKind(ctx context.Context, number int64, kind domain.EntryKind) ([]domain.LedgerEntryView, error)
	GetTotalsByKind(ctx context.Context, number int64) (map[domain.EntryKind]decimal.Decimal, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handler holds the HTTP handlers.
type Handler struct {
	engine Engine
	logger *zap.Logger
	checks map[string]HealthCheck
}

// NewHandler creates a new Handler for the given engine.
func NewHandler(engine Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine: engine,
		logger: logger,
		checks: make(map[string]HealthCheck),
	}
}

// AddHealthCheck registers a dependency probed by /healthz.
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// TransferRequest is the body of POST /api/transfer.
type TransferRequest struct {
	SourceAccount      int64           `json:"sourceAccount"`
	DestinationAccount int64           `json:"destinationAccount"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
}

// AmountRequest is the body of the credit and debit endpoints.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// BalanceResponse is returned by the balance endpoint.
type BalanceResponse struct {
	AccountNumber int64           `json:"accountNumber"`
	Balance       decimal.Decimal `json:"balance"`
}

// Transfer handles transfer requests.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendFailure(w, http.StatusBadRequest, "Failed to parse request body")
		return
	}

	currency, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		sendFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.Transfer(r.Context(), domain.TransferRequest{
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
		Amount:             req.Amount,
		Currency:           currency,
	})
	if err != nil {
		h.handleMutationError(w, r, err)
		return
	}

	sendJSON(w, http.StatusOK, result)
}

// Credit handles direct credits.
func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.engine.Credit)
}

// Debit handles direct debits.
func (h *Handler) Debit(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.engine.Debit)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, decimal.Decimal) (*domain.TransferResult, error)) {
	number, err := accountNumber(r)
	if err != nil {
		sendFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendFailure(w, http.StatusBadRequest, "Failed to parse request body")
		return
	}

	result, err := op(r.Context(), number, req.Amount)
	if err != nil {
		h.handleMutationError(w, r, err)
		return
	}

	sendJSON(w, http.StatusOK, result)
}

// GetBalance returns the current balance of an account.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	number, err := accountNumber(r)
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	balance, err := h.engine.GetBalance(r.Context(), number)
	if err != nil {
		h.handleQueryError(w, r, err)
		return
	}

	sendJSON(w, http.StatusOK, BalanceResponse{AccountNumber: number, Balance: balance})
}

// GetHistory returns every ledger entry of an account.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, func(ctx context.Context, number int64) ([]domain.LedgerEntryView, error) {
		return h.engine.GetHistory(ctx, number)
	})
}

// GetRecentHistory returns the latest entries, bounded by ?limit=.
func (h *Handler) GetRecentHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	h.history(w, r, func(ctx context.Context, number int64) ([]domain.LedgerEntryView, error) {
		return h.engine.GetRecentHistory(ctx, number, limit)
	})
}

// GetHistoryByKind returns the entries of one kind.
func (h *Handler) GetHistoryByKind(w http.ResponseWriter, r *http.Request) {
	kind, ok := domain.ParseEntryKind(chi.URLParam(r, "kind"))
	if !ok {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT",
			fmt.Sprintf("unknown entry kind %q", chi.URLParam(r, "kind")))
		return
	}

	h.history(w, r, func(ctx context.Context, number int64) ([]domain.LedgerEntryView, error) {
		return h.engine.GetHistoryByKind(ctx, number, kind)
	})
}

// GetTotals returns the per-kind totals of an account.
func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	number, err := accountNumber(r)
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	totals, err := h.engine.GetTotalsByKind(r.Context(), number)
	if err != nil {
		h.handleQueryError(w, r, err)
		return
	}

	sendJSON(w, http.StatusOK, totals)
}

// Health reports the state of registered dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok"}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body[name] = err.Error()
			continue
		}
		body[name] = "ok"
	}
	sendJSON(w, status, body)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, query func(context.Context, int64) ([]domain.LedgerEntryView, error)) {
	number, err := accountNumber(r)
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	entries, err := query(r.Context(), number)
	if err != nil {
		h.handleQueryError(w, r, err)
		return
	}

	sendJSON(w, http.StatusOK, entries)
}

func accountNumber(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "number")
	number, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account number %q", raw)
	}
	return number, nil
}
