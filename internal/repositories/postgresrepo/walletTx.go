package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"csc-ledger/internal/models"
)

type TxWalletRepo struct {
	tx *sqlx.Tx
}

func NewTxWalletRepo(tx *sqlx.Tx) *TxWalletRepo {
	return &TxWalletRepo{tx: tx}
}

func (r *TxWalletRepo) Commit() error {
	if err := r.tx.Commit(); err != nil {
		return mapPQError(err, "commit")
	}
	return nil
}

func (r *TxWalletRepo) Rollback() error {
	return r.tx.Rollback()
}

// EnsureWallet creates an empty wallet for the center if none exists yet.
func (r *TxWalletRepo) EnsureWallet(ctx context.Context, centerID string) error {
	query := `
		INSERT INTO wallets (id, center_id, balance, pending_withdrawal, total_earnings, total_withdrawn)
		VALUES ($1, $2, 0, 0, 0, 0)
		ON CONFLICT (center_id) DO NOTHING
	`
	if _, err := r.tx.ExecContext(ctx, query, uuid.New().String(), centerID); err != nil {
		return mapPQError(err, "failed to create wallet")
	}
	return nil
}

func (r *TxWalletRepo) LockWalletForUpdate(ctx context.Context, centerID string) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE center_id = $1 FOR UPDATE`

	if err := r.tx.GetContext(ctx, &wallet, query, centerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrWalletNotFound
		}
		return nil, mapPQError(err, "failed to lock wallet")
	}
	return &wallet, nil
}

func (r *TxWalletRepo) LockTransactionForUpdate(ctx context.Context, transactionID string) (*models.WalletTransaction, error) {
	if !isRowID(transactionID) {
		return nil, models.ErrTransactionNotFound
	}

	var t models.WalletTransaction
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1 FOR UPDATE`

	if err := r.tx.GetContext(ctx, &t, query, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, mapPQError(err, "failed to lock transaction")
	}
	return &t, nil
}

func (r *TxWalletRepo) GetTransactionByReference(ctx context.Context, reference string) (*models.WalletTransaction, error) {
	var t models.WalletTransaction
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE reference = $1`

	if err := r.tx.GetContext(ctx, &t, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}
	return &t, nil
}

// InsertTransaction appends to the log. A reference collision means another
// writer committed the same reference first and surfaces as a conflict.
func (r *TxWalletRepo) InsertTransaction(ctx context.Context, t *models.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions
		(id, wallet_id, center_id, type, amount, status, reference, task_id,
		 admin_note, created_at, processed_at, processed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.tx.ExecContext(ctx, query,
		t.ID, t.WalletID, t.CenterID, t.Type, t.Amount, t.Status, t.Reference, t.TaskID,
		t.AdminNote, t.CreatedAt, t.ProcessedAt, t.ProcessedBy,
	)
	if err != nil {
		return mapPQError(err, "failed to insert transaction")
	}
	return nil
}

// UpdateWallet writes w over the version it was read at and advances w.Version.
func (r *TxWalletRepo) UpdateWallet(ctx context.Context, w *models.Wallet) error {
	query := `
		UPDATE wallets
		SET balance = $1, pending_withdrawal = $2, total_earnings = $3, total_withdrawn = $4,
		    updated_at = NOW(), version = version + 1
		WHERE center_id = $5 AND version = $6
	`
	result, err := r.tx.ExecContext(ctx, query, w.Balance, w.PendingWithdrawal, w.TotalEarnings, w.TotalWithdrawn, w.CenterID, w.Version)
	if err != nil {
		return mapPQError(err, "failed to update wallet")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("center %s moved past version %d: %w", w.CenterID, w.Version, models.ErrConcurrencyConflict)
	}
	w.Version++
	return nil
}

// UpdateTransactionStatus only moves a transaction out of pending.
func (r *TxWalletRepo) UpdateTransactionStatus(ctx context.Context, t *models.WalletTransaction) error {
	query := `
		UPDATE wallet_transactions
		SET status = $1, processed_at = $2, processed_by = $3, admin_note = $4
		WHERE id = $5 AND status = 'pending'
	`
	result, err := r.tx.ExecContext(ctx, query, t.Status, t.ProcessedAt, t.ProcessedBy, t.AdminNote, t.ID)
	if err != nil {
		return mapPQError(err, "failed to update transaction status")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, models.ErrTransactionNotPending)
	}
	return nil
}
