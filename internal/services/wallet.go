package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"csc-ledger/internal/logging"
	"csc-ledger/internal/metrics"
	"csc-ledger/internal/models"

	"github.com/google/uuid"
)

const (
	defaultTransactionsLimit = 50
	maxTransactionsLimit     = 500
)

// WalletService keeps each center's balance, pending withdrawals and lifetime
// counters consistent with the append-only transaction log.
type WalletService struct {
	store WalletStore
	opts  options
}

func NewWalletService(store WalletStore, opts ...Option) *WalletService {
	return &WalletService{
		store: store,
		opts:  newOptions(opts),
	}
}

// Credit adds a commission to the center's wallet, creating the wallet on first use.
func (s *WalletService) Credit(ctx context.Context, req models.CreditRequest) (*models.TransactionCreateResponse, error) {
	start := time.Now()
	resp, err := s.earn(ctx, models.TransactionTypeCredit, req)
	metrics.Observe("credit", start, err)
	return resp, err
}

// Bonus behaves like Credit but records a bonus transaction.
func (s *WalletService) Bonus(ctx context.Context, req models.CreditRequest) (*models.TransactionCreateResponse, error) {
	start := time.Now()
	resp, err := s.earn(ctx, models.TransactionTypeBonus, req)
	metrics.Observe("bonus", start, err)
	return resp, err
}

func (s *WalletService) earn(ctx context.Context, txType models.TransactionType, req models.CreditRequest) (*models.TransactionCreateResponse, error) {
	if err := validateMovement(req.CenterID, req.Amount, req.Reference); err != nil {
		return nil, err
	}

	var (
		resp    *models.TransactionCreateResponse
		updated models.Wallet
	)

	_, err := retry(ctx, &s.opts, string(txType), func() (struct{}, error) {
		resp = nil
		return struct{}{}, s.inTx(ctx, func(tx WalletTx) error {
			if err := tx.EnsureWallet(ctx, req.CenterID); err != nil {
				return err
			}
			wallet, err := tx.LockWalletForUpdate(ctx, req.CenterID)
			if err != nil {
				return err
			}

			existing, err := s.existingByReference(ctx, tx, req.Reference, req.CenterID, txType, req.Strict)
			if err != nil {
				return err
			}
			if existing != nil {
				resp = &models.TransactionCreateResponse{TransactionID: existing.ID, Status: existing.Status}
				return nil
			}

			next, err := applyEarning(*wallet, req.Amount)
			if err != nil {
				return err
			}

			now := s.opts.now().UTC()
			t := &models.WalletTransaction{
				ID:          uuid.New().String(),
				WalletID:    wallet.ID,
				CenterID:    req.CenterID,
				Type:        txType,
				Amount:      req.Amount,
				Status:      models.TransactionStatusCompleted,
				Reference:   strptr(req.Reference),
				TaskID:      optional(req.TaskID),
				CreatedAt:   now,
				ProcessedAt: &now,
			}
			if err := tx.InsertTransaction(ctx, t); err != nil {
				return err
			}
			if err := tx.UpdateWallet(ctx, &next); err != nil {
				return err
			}

			updated = next
			resp = &models.TransactionCreateResponse{TransactionID: t.ID, Status: t.Status, Created: true}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log := s.opts.logger.WithFields(logging.Fields{
		"center_id":      req.CenterID,
		"transaction_id": resp.TransactionID,
		"reference":      req.Reference,
		"type":           txType,
	})
	if !resp.Created {
		log.Debug("Wallet credit replayed, returning existing transaction")
		return resp, nil
	}

	log.WithField("balance", updated.Balance).Info("Wallet credited")
	s.afterCommit(ctx, updated, models.LedgerEvent{
		Type:          earnEvent(txType),
		OwnerID:       req.CenterID,
		OwnerKind:     models.OwnerKindCenter,
		TransactionID: resp.TransactionID,
		Amount:        req.Amount,
		Status:        resp.Status,
		Reference:     req.Reference,
	})
	return resp, nil
}

// Debit removes money from the balance, failing when the balance cannot cover it.
func (s *WalletService) Debit(ctx context.Context, req models.DebitRequest) (*models.TransactionCreateResponse, error) {
	start := time.Now()
	resp, err := s.debit(ctx, req)
	metrics.Observe("debit", start, err)
	return resp, err
}

func (s *WalletService) debit(ctx context.Context, req models.DebitRequest) (*models.TransactionCreateResponse, error) {
	if err := validateMovement(req.CenterID, req.Amount, req.Reference); err != nil {
		return nil, err
	}

	var (
		resp    *models.TransactionCreateResponse
		updated models.Wallet
	)

	_, err := retry(ctx, &s.opts, "debit", func() (struct{}, error) {
		resp = nil
		return struct{}{}, s.inTx(ctx, func(tx WalletTx) error {
			wallet, err := s.lockExistingWallet(ctx, tx, req.CenterID)
			if err != nil {
				return err
			}

			existing, err := s.existingByReference(ctx, tx, req.Reference, req.CenterID, models.TransactionTypeDebit, req.Strict)
			if err != nil {
				return err
			}
			if existing != nil {
				resp = &models.TransactionCreateResponse{TransactionID: existing.ID, Status: existing.Status}
				return nil
			}

			next, err := applyDebit(*wallet, req.Amount)
			if err != nil {
				return err
			}

			now := s.opts.now().UTC()
			t := &models.WalletTransaction{
				ID:          uuid.New().String(),
				WalletID:    wallet.ID,
				CenterID:    req.CenterID,
				Type:        models.TransactionTypeDebit,
				Amount:      req.Amount,
				Status:      models.TransactionStatusCompleted,
				Reference:   strptr(req.Reference),
				AdminNote:   optional(req.AdminNote),
				CreatedAt:   now,
				ProcessedAt: &now,
			}
			if err := tx.InsertTransaction(ctx, t); err != nil {
				return err
			}
			if err := tx.UpdateWallet(ctx, &next); err != nil {
				return err
			}
			updated = next

			resp = &models.TransactionCreateResponse{TransactionID: t.ID, Status: t.Status, Created: true}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if resp.Created {
		s.opts.logger.WithFields(logging.Fields{
			"center_id":      req.CenterID,
			"transaction_id": resp.TransactionID,
			"amount":         req.Amount,
		}).Info("Wallet debited")
		s.afterCommit(ctx, updated, models.LedgerEvent{
			Type:          models.EventWalletDebited,
			OwnerID:       req.CenterID,
			OwnerKind:     models.OwnerKindCenter,
			TransactionID: resp.TransactionID,
			Amount:        req.Amount,
			Status:        resp.Status,
			Reference:     req.Reference,
		})
	}
	return resp, nil
}

// RequestWithdrawal moves amount from the balance into pending withdrawals.
func (s *WalletService) RequestWithdrawal(ctx context.Context, req models.WithdrawalRequest) (*models.TransactionCreateResponse, error) {
	start := time.Now()
	resp, err := s.requestWithdrawal(ctx, req)
	metrics.Observe("request_withdrawal", start, err)
	return resp, err
}

func (s *WalletService) requestWithdrawal(ctx context.Context, req models.WithdrawalRequest) (*models.TransactionCreateResponse, error) {
	if strings.TrimSpace(req.CenterID) == "" {
		return nil, models.NewValidationError(models.ErrInvalidAmount, "centerId", "is required")
	}
	if req.Amount <= 0 {
		return nil, models.NewValidationError(models.ErrInvalidAmount, "amount", "must be positive")
	}

	var (
		resp    *models.TransactionCreateResponse
		updated models.Wallet
	)

	_, err := retry(ctx, &s.opts, "request_withdrawal", func() (struct{}, error) {
		resp = nil
		return struct{}{}, s.inTx(ctx, func(tx WalletTx) error {
			wallet, err := s.lockExistingWallet(ctx, tx, req.CenterID)
			if err != nil {
				return err
			}

			next, err := applyWithdrawalRequest(*wallet, req.Amount)
			if err != nil {
				return err
			}

			t := &models.WalletTransaction{
				ID:        uuid.New().String(),
				WalletID:  wallet.ID,
				CenterID:  req.CenterID,
				Type:      models.TransactionTypeWithdrawal,
				Amount:    req.Amount,
				Status:    models.TransactionStatusPending,
				CreatedAt: s.opts.now().UTC(),
			}
			if err := tx.InsertTransaction(ctx, t); err != nil {
				return err
			}
			if err := tx.UpdateWallet(ctx, &next); err != nil {
				return err
			}
			updated = next

			resp = &models.TransactionCreateResponse{TransactionID: t.ID, Status: t.Status, Created: true}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.opts.logger.WithFields(logging.Fields{
		"center_id":      req.CenterID,
		"transaction_id": resp.TransactionID,
		"amount":         req.Amount,
	}).Info("Withdrawal requested")
	s.afterCommit(ctx, updated, models.LedgerEvent{
		Type:          models.EventWithdrawalRequested,
		OwnerID:       req.CenterID,
		OwnerKind:     models.OwnerKindCenter,
		TransactionID: resp.TransactionID,
		Amount:        req.Amount,
		Status:        resp.Status,
	})
	return resp, nil
}

// ResolveWithdrawal approves or rejects a pending withdrawal exactly once.
func (s *WalletService) ResolveWithdrawal(ctx context.Context, req models.ResolveWithdrawalRequest) (*models.WalletTransaction, error) {
	start := time.Now()
	var (
		t   *models.WalletTransaction
		err error
	)
	switch req.Outcome {
	case models.OutcomeApprove, models.OutcomeReject:
		t, err = s.settleWithdrawal(ctx, req.TransactionID, req.Outcome, req.AdminID, req.Note)
	default:
		err = models.NewValidationError(models.ErrTransactionNotPending, "outcome", fmt.Sprintf("unknown outcome %q", req.Outcome))
	}
	metrics.Observe("resolve_withdrawal", start, err)
	return t, err
}

// CancelWithdrawal withdraws a still-pending request, restoring the balance like a rejection.
func (s *WalletService) CancelWithdrawal(ctx context.Context, req models.CancelWithdrawalRequest) (*models.WalletTransaction, error) {
	start := time.Now()
	t, err := s.settleWithdrawal(ctx, req.TransactionID, models.OutcomeCancel, req.AdminID, req.Note)
	metrics.Observe("cancel_withdrawal", start, err)
	return t, err
}

func (s *WalletService) settleWithdrawal(ctx context.Context, transactionID string, outcome models.WithdrawalOutcome, adminID, note string) (*models.WalletTransaction, error) {
	if strings.TrimSpace(adminID) == "" {
		return nil, models.NewValidationError(models.ErrTransactionNotPending, "adminId", "is required")
	}

	// Read unlocked to learn the owning wallet; the status is re-checked under lock.
	current, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if current.Type != models.TransactionTypeWithdrawal || current.Status != models.TransactionStatusPending {
		return nil, fmt.Errorf("transaction %s is %s %s: %w", current.ID, current.Type, current.Status, models.ErrTransactionNotPending)
	}

	var (
		settled *models.WalletTransaction
		updated models.Wallet
	)

	_, err = retry(ctx, &s.opts, "settle_withdrawal", func() (struct{}, error) {
		settled = nil
		return struct{}{}, s.inTx(ctx, func(tx WalletTx) error {
			wallet, err := tx.LockWalletForUpdate(ctx, current.CenterID)
			if err != nil {
				return err
			}
			t, err := tx.LockTransactionForUpdate(ctx, transactionID)
			if err != nil {
				return err
			}
			if t.Status != models.TransactionStatusPending {
				return fmt.Errorf("transaction %s is %s: %w", t.ID, t.Status, models.ErrTransactionNotPending)
			}

			next, status, err := applyWithdrawalOutcome(*wallet, t.Amount, outcome)
			if err != nil {
				return err
			}

			now := s.opts.now().UTC()
			t.Status = status
			t.ProcessedAt = &now
			t.ProcessedBy = strptr(adminID)
			if note != "" {
				t.AdminNote = strptr(note)
			}

			if err := tx.UpdateTransactionStatus(ctx, t); err != nil {
				return err
			}
			if err := tx.UpdateWallet(ctx, &next); err != nil {
				return err
			}
			updated = next

			settled = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.opts.logger.WithFields(logging.Fields{
		"center_id":      settled.CenterID,
		"transaction_id": settled.ID,
		"status":         settled.Status,
		"processed_by":   adminID,
	}).Info("Withdrawal settled")
	s.afterCommit(ctx, updated, models.LedgerEvent{
		Type:          settleEvent(settled.Status),
		OwnerID:       settled.CenterID,
		OwnerKind:     models.OwnerKindCenter,
		TransactionID: settled.ID,
		Amount:        settled.Amount,
		Status:        settled.Status,
	})
	return settled, nil
}

// Balance is a pure read. A center that never earned gets an all-zero snapshot.
func (s *WalletService) Balance(ctx context.Context, centerID string) (*models.WalletBalanceResponse, error) {
	if s.opts.cache != nil {
		cached, err := s.opts.cache.GetBalance(ctx, centerID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, models.ErrCacheMiss) {
			s.opts.logger.WithError(err).WithField("center_id", centerID).Warn("Balance cache read failed")
		}
	}

	wallet, err := s.store.GetWallet(ctx, centerID)
	if errors.Is(err, models.ErrWalletNotFound) {
		return &models.WalletBalanceResponse{CenterID: centerID}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := wallet.CheckInvariant(); err != nil {
		return nil, fmt.Errorf("wallet %s: %w", centerID, err)
	}

	balance := models.BalanceOf(*wallet)
	if s.opts.cache != nil {
		if err := s.opts.cache.SetBalance(ctx, balance); err != nil {
			s.opts.logger.WithError(err).WithField("center_id", centerID).Warn("Failed to fill balance cache")
		}
	}
	return &balance, nil
}

func (s *WalletService) Transaction(ctx context.Context, transactionID string) (*models.WalletTransaction, error) {
	return s.store.GetTransaction(ctx, transactionID)
}

// Transactions lists a center's ledger entries, newest first.
func (s *WalletService) Transactions(ctx context.Context, centerID string, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 {
		limit = defaultTransactionsLimit
	}
	if limit > maxTransactionsLimit {
		limit = maxTransactionsLimit
	}
	return s.store.ListTransactions(ctx, centerID, limit)
}

// inTx commits only when fn succeeds; any failure rolls the whole operation back.
func (s *WalletService) inTx(ctx context.Context, fn func(tx WalletTx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w (rollback error: %v)", err, rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockExistingWallet treats a missing wallet as an empty one: nothing to spend.
func (s *WalletService) lockExistingWallet(ctx context.Context, tx WalletTx, centerID string) (*models.Wallet, error) {
	wallet, err := tx.LockWalletForUpdate(ctx, centerID)
	if errors.Is(err, models.ErrWalletNotFound) {
		return nil, fmt.Errorf("center %s has no wallet: %w", centerID, models.ErrInsufficientBalance)
	}
	return wallet, err
}

// existingByReference returns the transaction already recorded for reference, or nil.
// A reference reused for another center or type is never treated as a replay.
func (s *WalletService) existingByReference(ctx context.Context, tx WalletTx, reference, centerID string, txType models.TransactionType, strict bool) (*models.WalletTransaction, error) {
	existing, err := tx.GetTransactionByReference(ctx, reference)
	if errors.Is(err, models.ErrTransactionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if strict {
		return nil, fmt.Errorf("reference %q: %w", reference, models.ErrDuplicateReference)
	}
	if existing.CenterID != centerID || existing.Type != txType {
		return nil, fmt.Errorf("reference %q already used by %s %s: %w", reference, existing.CenterID, existing.Type, models.ErrDuplicateReference)
	}
	return existing, nil
}

// afterCommit refreshes the cache with the committed snapshot and publishes.
// The cache refuses snapshots older than the one it holds, so a slower Balance
// read can never overwrite this one.
func (s *WalletService) afterCommit(ctx context.Context, wallet models.Wallet, event models.LedgerEvent) {
	if s.opts.cache != nil {
		if err := s.opts.cache.SetBalance(ctx, models.BalanceOf(wallet)); err != nil {
			log := s.opts.logger.WithError(err).WithField("center_id", wallet.CenterID)
			if err := s.opts.cache.DeleteBalance(ctx, wallet.CenterID); err != nil {
				log.WithField("delete_error", err.Error()).Warn("Failed to refresh or invalidate balance cache")
			} else {
				log.Warn("Failed to refresh balance cache, entry invalidated")
			}
		}
	}
	s.opts.publish(ctx, event)
}

func validateMovement(centerID string, amount int64, reference string) error {
	if strings.TrimSpace(centerID) == "" {
		return models.NewValidationError(models.ErrInvalidAmount, "centerId", "is required")
	}
	if amount <= 0 {
		return models.NewValidationError(models.ErrInvalidAmount, "amount", "must be positive")
	}
	if strings.TrimSpace(reference) == "" {
		return models.NewValidationError(models.ErrMissingReference, "reference", "is required")
	}
	return nil
}

func earnEvent(t models.TransactionType) models.LedgerEventType {
	if t == models.TransactionTypeBonus {
		return models.EventWalletBonus
	}
	return models.EventWalletCredited
}

func settleEvent(status models.TransactionStatus) models.LedgerEventType {
	switch status {
	case models.TransactionStatusCompleted:
		return models.EventWithdrawalApproved
	case models.TransactionStatusRejected:
		return models.EventWithdrawalRejected
	default:
		return models.EventWithdrawalCancelled
	}
}

func strptr(s string) *string { return &s }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
