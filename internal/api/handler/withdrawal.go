// internal/api/handler/withdrawal.go
package handler

import (
	"net/http"
	"time"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader scopes retries of the same withdrawal.
const IdempotencyKeyHeader = "Idempotency-Key"

// WithdrawalHandler handles HTTP requests related to withdrawals.
type WithdrawalHandler struct {
	service service.WithdrawalService
	logger  *zap.Logger
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(svc service.WithdrawalService, logger *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{
		service: svc,
		logger:  logger,
	}
}

// WithdrawalRequest represents the request body for a withdrawal. Amount is in major units.
type WithdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"positive_decimal"`
	Currency    string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Destination string          `json:"destination" validate:"required,min=3,max=255"`
}

// WithdrawalResponse is the public view of a withdrawal record.
type WithdrawalResponse struct {
	Error          string    `json:"error,omitempty"`
	ID             uuid.UUID `json:"id"`
	Status         string    `json:"status"`
	Amount         string    `json:"amount"`
	AmountMinor    int64     `json:"amount_minor"`
	Currency       string    `json:"currency"`
	Destination    string    `json:"destination"`
	FailureReason  *string   `json:"failure_reason,omitempty"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newWithdrawalResponse(wd *domain.Withdrawal) WithdrawalResponse {
	return WithdrawalResponse{
		ID:             wd.ID,
		Status:         string(wd.Status),
		Amount:         domain.FromMinorUnits(wd.Amount).StringFixed(2),
		AmountMinor:    wd.Amount,
		Currency:       wd.Currency,
		Destination:    wd.Destination,
		FailureReason:  wd.FailureReason,
		IdempotencyKey: wd.IdempotencyKey,
		CreatedAt:      wd.CreatedAt,
		UpdatedAt:      wd.UpdatedAt,
	}
}

// CreateWithdrawal handles the create withdrawal request.
// POST /withdrawals
// Responds 201 with the settled record, or 402 with the FAILED record on insufficient balance,
// including replays of such a record.
func (h *WithdrawalHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r, h.logger)
	if !ok {
		return
	}

	var req WithdrawalRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	amount, err := domain.ToMinorUnits(req.Amount)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	var idempotencyKey *string
	if key := r.Header.Get(IdempotencyKeyHeader); key != "" {
		idempotencyKey = &key
	}

	withdrawal, err := h.service.CreateWithdrawal(r.Context(), owner, amount, req.Currency, req.Destination, idempotencyKey)
	if err != nil && !(util.IsError(err, util.ErrInsufficientBalance) && withdrawal != nil) {
		respondWithError(w, h.logger, err)
		return
	}

	// A FAILED record answers 402 whether it was just settled or replayed by idempotency key.
	if withdrawal.Status == domain.WithdrawalStatusFailed {
		resp := newWithdrawalResponse(withdrawal)
		resp.Error = failureMessage(withdrawal)
		respondWithJSON(w, h.logger, http.StatusPaymentRequired, resp)
		return
	}

	respondWithJSON(w, h.logger, http.StatusCreated, newWithdrawalResponse(withdrawal))
}

func failureMessage(wd *domain.Withdrawal) string {
	if wd.FailureReason != nil && *wd.FailureReason != "" {
		return *wd.FailureReason
	}
	return "withdrawal failed"
}

// GetWithdrawal handles the get withdrawal request.
// GET /withdrawals/{withdrawalID}
func (h *WithdrawalHandler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r, h.logger)
	if !ok {
		return
	}

	withdrawal, err := h.service.GetWithdrawal(r.Context(), owner, chi.URLParam(r, "withdrawalID"))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, newWithdrawalResponse(withdrawal))
}
