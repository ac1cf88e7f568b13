// internal/api/handler/wallet.go
package handler

import (
	"net/http"
	"strconv"
	"time"

	"wallet-ledger/internal/api/middleware"
	"wallet-ledger/internal/api/types"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Pagination bounds for history listings.
const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// WalletHandler handles HTTP requests related to balances.
type WalletHandler struct {
	service service.WalletService
	logger  *zap.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc service.WalletService, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{
		service: svc,
		logger:  logger,
	}
}

// DepositRequest represents the request body for deposit. Amount is in major units.
type DepositRequest struct {
	Amount   decimal.Decimal `json:"amount" validate:"positive_decimal"`
	Currency string          `json:"currency" validate:"omitempty,len=3,alpha"`
}

// BalanceResponse is the public view of a balance record.
type BalanceResponse struct {
	OwnerID      uuid.UUID `json:"owner_id"`
	Balance      string    `json:"balance"`
	BalanceMinor int64     `json:"balance_minor"`
	Currency     string    `json:"currency"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newBalanceResponse(b *domain.Balance) BalanceResponse {
	return BalanceResponse{
		OwnerID:      b.OwnerID,
		Balance:      domain.FromMinorUnits(b.Balance).StringFixed(2),
		BalanceMinor: b.Balance,
		Currency:     b.Currency,
		UpdatedAt:    b.UpdatedAt,
	}
}

// AuditEntryResponse is the public view of one audit log entry.
type AuditEntryResponse struct {
	ID            uuid.UUID `json:"id"`
	Kind          string    `json:"kind"`
	Context       string    `json:"context"`
	ReferenceID   uuid.UUID `json:"reference_id"`
	Amount        string    `json:"amount"`
	AmountMinor   int64     `json:"amount_minor"`
	BalanceBefore int64     `json:"balance_before_minor"`
	BalanceAfter  int64     `json:"balance_after_minor"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func newAuditEntryResponse(e domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:            e.ID,
		Kind:          string(e.Kind),
		Context:       string(e.Context),
		ReferenceID:   e.ReferenceID,
		Amount:        domain.FromMinorUnits(e.Amount).StringFixed(2),
		AmountMinor:   e.Amount,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		Status:        string(e.Status),
		CreatedAt:     e.CreatedAt,
	}
}

// ownerID returns the authenticated owner or writes a 401 response.
func ownerID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	id, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		respondWithJSON(w, logger, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return "", false
	}
	return id, true
}

// Deposit handles the deposit money request.
// POST /wallets/deposit
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r, h.logger)
	if !ok {
		return
	}

	var req DepositRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	amount, err := domain.ToMinorUnits(req.Amount)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	balance, entry, err := h.service.Deposit(r.Context(), owner, amount, req.Currency)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":        "Deposit successful",
		"wallet":         newBalanceResponse(balance),
		"transaction_id": entry.ID,
	})
}

// GetBalance handles the get balance request.
// GET /wallets
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r, h.logger)
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), owner)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, newBalanceResponse(balance))
}

// GetTransactionHistory handles the get transaction history request.
// GET /wallets/transactions?limit=&offset=
func (h *WalletHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r, h.logger)
	if !ok {
		return
	}

	// Parse query parameters for pagination
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, totalCount, err := h.service.GetTransactionHistory(r.Context(), owner, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	data := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		data = append(data, newAuditEntryResponse(e))
	}

	respondWithJSON(w, h.logger, http.StatusOK, types.PaginatedResponse[AuditEntryResponse]{
		Data:       data,
		Limit:      limit,
		Offset:     offset,
		TotalCount: totalCount,
	})
}

