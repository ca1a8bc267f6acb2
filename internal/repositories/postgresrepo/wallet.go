package postgresrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"csc-ledger/internal/models"
	"csc-ledger/internal/services"
)

const walletColumns = `id, center_id, balance, pending_withdrawal, total_earnings, total_withdrawn, created_at, updated_at, version`

const transactionColumns = `id, wallet_id, center_id, type, amount, status, reference, task_id,
		admin_note, created_at, processed_at, processed_by`

type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// BeginTx starts a transaction and returns a transactional repository
func (r *WalletRepository) BeginTx(ctx context.Context) (services.WalletTx, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return NewTxWalletRepo(tx), nil
}

// GetWallet get a wallet by center ID
func (r *WalletRepository) GetWallet(ctx context.Context, centerID string) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE center_id = $1`

	if err := r.db.GetContext(ctx, &wallet, query, centerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet from postgres: %w", err)
	}
	return &wallet, nil
}

func (r *WalletRepository) GetTransaction(ctx context.Context, transactionID string) (*models.WalletTransaction, error) {
	if !isRowID(transactionID) {
		return nil, models.ErrTransactionNotFound
	}

	var t models.WalletTransaction
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE id = $1`

	if err := r.db.GetContext(ctx, &t, query, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction from postgres: %w", err)
	}
	return &t, nil
}

func (r *WalletRepository) ListTransactions(ctx context.Context, centerID string, limit int) ([]models.WalletTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE center_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	transactions := []models.WalletTransaction{}
	if err := r.db.SelectContext(ctx, &transactions, query, centerID, limit); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}
