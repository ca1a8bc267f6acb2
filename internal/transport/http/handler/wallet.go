package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-playground/validator"
	"github.com/sirupsen/logrus"

	"csc-ledger/internal/models"
	"csc-ledger/internal/services"
)

type Wallet struct {
	walletService *services.WalletService
	validate      *validator.Validate
	logger        *logrus.Logger
}

func NewWallet(mux *http.ServeMux, walletService *services.WalletService, logger *logrus.Logger) *Wallet {
	h := &Wallet{
		walletService: walletService,
		validate:      validator.New(),
		logger:        logger,
	}

	mux.HandleFunc("GET /api/v1/wallets/{centerId}", h.getBalance)
	mux.HandleFunc("GET /api/v1/wallets/{centerId}/transactions", h.listTransactions)
	mux.HandleFunc("POST /api/v1/wallets/{centerId}/credits", h.credit)
	mux.HandleFunc("POST /api/v1/wallets/{centerId}/bonuses", h.bonus)
	mux.HandleFunc("POST /api/v1/wallets/{centerId}/debits", h.debit)
	mux.HandleFunc("POST /api/v1/wallets/{centerId}/withdrawals", h.requestWithdrawal)
	mux.HandleFunc("GET /api/v1/transactions/{transactionId}", h.getTransaction)
	mux.HandleFunc("POST /api/v1/withdrawals/{transactionId}/resolve", h.resolveWithdrawal)
	mux.HandleFunc("POST /api/v1/withdrawals/{transactionId}/cancel", h.cancelWithdrawal)

	return h
}

// @Summary Get wallet balance
// @Description Balance snapshot of a center; a center that never earned gets zeros
// @Tags wallets
// @Produce json
// @Param centerId path string true "Center ID"
// @Success 200 {object} models.WalletBalanceResponse
// @Failure 400 {object} ErrorResponse
// @Router /wallets/{centerId} [get]
func (h *Wallet) getBalance(w http.ResponseWriter, r *http.Request) {
	centerID, ok := h.centerID(w, r)
	if !ok {
		return
	}

	balance, err := h.walletService.Balance(r.Context(), centerID)
	if err != nil {
		writeServiceError(w, h.logger, "get wallet balance", err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// @Summary List wallet transactions
// @Tags wallets
// @Produce json
// @Param centerId path string true "Center ID"
// @Param limit query int false "Max entries (default 50, max 500)"
// @Success 200 {object} models.TransactionListResponse
// @Failure 400 {object} ErrorResponse
// @Router /wallets/{centerId}/transactions [get]
func (h *Wallet) listTransactions(w http.ResponseWriter, r *http.Request) {
	centerID, ok := h.centerID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	transactions, err := h.walletService.Transactions(r.Context(), centerID, limit)
	if err != nil {
		writeServiceError(w, h.logger, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, models.TransactionListResponse{CenterID: centerID, Transactions: transactions})
}

// @Summary Credit a commission
// @Description Idempotent by reference
// @Tags wallets
// @Accept json
// @Produce json
// @Param centerId path string true "Center ID"
// @Param credit body models.CreditRequest true "Credit Request"
// @Success 201 {object} models.TransactionCreateResponse
// @Success 200 {object} models.TransactionCreateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /wallets/{centerId}/credits [post]
func (h *Wallet) credit(w http.ResponseWriter, r *http.Request) {
	h.earn(w, r, "credit wallet", h.walletService.Credit)
}

// @Summary Award a bonus
// @Description Same as a credit but recorded as a bonus
// @Tags wallets
// @Accept json
// @Produce json
// @Param centerId path string true "Center ID"
// @Param bonus body models.CreditRequest true "Bonus Request"
// @Success 201 {object} models.TransactionCreateResponse
// @Success 200 {object} models.TransactionCreateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /wallets/{centerId}/bonuses [post]
func (h *Wallet) bonus(w http.ResponseWriter, r *http.Request) {
	h.earn(w, r, "award bonus", h.walletService.Bonus)
}

type earnFunc func(ctx context.Context, req models.CreditRequest) (*models.TransactionCreateResponse, error)

func (h *Wallet) earn(w http.ResponseWriter, r *http.Request, operation string, fn earnFunc) {
	var req models.CreditRequest
	req.CenterID = r.PathValue("centerId")
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	resp, err := fn(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, operation, err)
		return
	}
	writeJSON(w, createdStatus(resp.Created), resp)
}

// @Summary Debit a wallet
// @Description Admin correction such as a chargeback; idempotent by reference
// @Tags wallets
// @Accept json
// @Produce json
// @Param centerId path string true "Center ID"
// @Param debit body models.DebitRequest true "Debit Request"
// @Success 201 {object} models.TransactionCreateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /wallets/{centerId}/debits [post]
func (h *Wallet) debit(w http.ResponseWriter, r *http.Request) {
	var req models.DebitRequest
	req.CenterID = r.PathValue("centerId")
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	resp, err := h.walletService.Debit(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "debit wallet", err)
		return
	}
	writeJSON(w, createdStatus(resp.Created), resp)
}

// @Summary Request a withdrawal
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param centerId path string true "Center ID"
// @Param withdrawal body models.WithdrawalRequest true "Withdrawal Request"
// @Success 201 {object} models.TransactionCreateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /wallets/{centerId}/withdrawals [post]
func (h *Wallet) requestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req models.WithdrawalRequest
	req.CenterID = r.PathValue("centerId")
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	resp, err := h.walletService.RequestWithdrawal(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "request withdrawal", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// @Summary Get a transaction
// @Tags wallets
// @Produce json
// @Param transactionId path string true "Transaction ID"
// @Success 200 {object} models.WalletTransaction
// @Failure 404 {object} ErrorResponse
// @Router /transactions/{transactionId} [get]
func (h *Wallet) getTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := r.PathValue("transactionId")
	if err := h.validate.Var(transactionID, "required,max=64"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}

	t, err := h.walletService.Transaction(r.Context(), transactionID)
	if err != nil {
		writeServiceError(w, h.logger, "get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// @Summary Resolve a withdrawal
// @Description Approve or reject a pending withdrawal exactly once
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param transactionId path string true "Transaction ID"
// @Param resolve body models.ResolveWithdrawalRequest true "Resolution"
// @Success 200 {object} models.WalletTransaction
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /withdrawals/{transactionId}/resolve [post]
func (h *Wallet) resolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req models.ResolveWithdrawalRequest
	req.TransactionID = r.PathValue("transactionId")
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	t, err := h.walletService.ResolveWithdrawal(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "resolve withdrawal", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// @Summary Cancel a withdrawal
// @Description Pending to cancelled; the amount returns to the balance
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param transactionId path string true "Transaction ID"
// @Param cancel body models.CancelWithdrawalRequest true "Cancellation"
// @Success 200 {object} models.WalletTransaction
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /withdrawals/{transactionId}/cancel [post]
func (h *Wallet) cancelWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req models.CancelWithdrawalRequest
	req.TransactionID = r.PathValue("transactionId")
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	t, err := h.walletService.CancelWithdrawal(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "cancel withdrawal", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Wallet) centerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	centerID := r.PathValue("centerId")
	if err := h.validate.Var(centerID, "required,max=64"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid center ID")
		return "", false
	}
	return centerID, true
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
