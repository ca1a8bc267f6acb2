package memoryrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"csc-ledger/internal/models"
	"csc-ledger/internal/services"

	"github.com/google/uuid"
)

var errTxDone = errors.New("transaction already finished")

// WalletStore serializes transactions per center: a transaction holds the lock
// of every center it touched until Commit or Rollback, while other centers run
// in parallel. Writes are staged on the transaction and applied on Commit.
type WalletStore struct {
	locksMu sync.Mutex
	locks   map[string]chan struct{}

	mu           sync.RWMutex
	wallets      map[string]*models.Wallet // by center id
	transactions map[string]*models.WalletTransaction
	byReference  map[string]string
}

func NewWalletStore() *WalletStore {
	return &WalletStore{
		locks:        make(map[string]chan struct{}),
		wallets:      make(map[string]*models.Wallet),
		transactions: make(map[string]*models.WalletTransaction),
		byReference:  make(map[string]string),
	}
}

func (s *WalletStore) BeginTx(ctx context.Context) (services.WalletTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &walletTx{
		store:        s,
		held:         make(map[string]chan struct{}),
		wallets:      make(map[string]*models.Wallet),
		transactions: make(map[string]*models.WalletTransaction),
	}, nil
}

func (s *WalletStore) centerLock(centerID string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[centerID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[centerID] = l
	}
	return l
}

func (s *WalletStore) GetWallet(_ context.Context, centerID string) (*models.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if w, ok := s.wallets[centerID]; ok {
		out := *w
		return &out, nil
	}
	return nil, models.ErrWalletNotFound
}

func (s *WalletStore) GetTransaction(_ context.Context, transactionID string) (*models.WalletTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.transactions[transactionID]; ok {
		out := *t
		return &out, nil
	}
	return nil, models.ErrTransactionNotFound
}

func (s *WalletStore) ListTransactions(_ context.Context, centerID string, limit int) ([]models.WalletTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.WalletTransaction, 0)
	for _, t := range s.transactions {
		if t.CenterID == centerID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type walletTx struct {
	store *WalletStore
	done  bool
	held  map[string]chan struct{}

	wallets      map[string]*models.Wallet
	transactions map[string]*models.WalletTransaction
}

// lock takes the center's lock for the rest of the transaction.
func (tx *walletTx) lock(ctx context.Context, centerID string) error {
	if _, ok := tx.held[centerID]; ok {
		return nil
	}
	l := tx.store.centerLock(centerID)
	select {
	case l <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	tx.held[centerID] = l
	return nil
}

func (tx *walletTx) unlockAll() {
	for centerID, l := range tx.held {
		<-l
		delete(tx.held, centerID)
	}
}

func (tx *walletTx) EnsureWallet(ctx context.Context, centerID string) error {
	if tx.done {
		return errTxDone
	}
	if err := tx.lock(ctx, centerID); err != nil {
		return err
	}
	if _, ok := tx.wallets[centerID]; ok {
		return nil
	}
	if _, err := tx.store.GetWallet(ctx, centerID); err == nil {
		return nil
	}
	now := time.Now().UTC()
	tx.wallets[centerID] = &models.Wallet{
		ID:        uuid.New().String(),
		CenterID:  centerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (tx *walletTx) LockWalletForUpdate(ctx context.Context, centerID string) (*models.Wallet, error) {
	if tx.done {
		return nil, errTxDone
	}
	if err := tx.lock(ctx, centerID); err != nil {
		return nil, err
	}
	if w, ok := tx.wallets[centerID]; ok {
		out := *w
		return &out, nil
	}
	return tx.store.GetWallet(ctx, centerID)
}

// LockTransactionForUpdate locks the owning center, then reads the transaction
// again since it may have settled while waiting.
func (tx *walletTx) LockTransactionForUpdate(ctx context.Context, transactionID string) (*models.WalletTransaction, error) {
	if tx.done {
		return nil, errTxDone
	}
	if t, ok := tx.transactions[transactionID]; ok {
		out := *t
		return &out, nil
	}
	t, err := tx.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := tx.lock(ctx, t.CenterID); err != nil {
		return nil, err
	}
	return tx.store.GetTransaction(ctx, transactionID)
}

func (tx *walletTx) GetTransactionByReference(ctx context.Context, reference string) (*models.WalletTransaction, error) {
	if tx.done {
		return nil, errTxDone
	}
	for _, t := range tx.transactions {
		if t.Reference != nil && *t.Reference == reference {
			out := *t
			return &out, nil
		}
	}

	tx.store.mu.RLock()
	id, ok := tx.store.byReference[reference]
	tx.store.mu.RUnlock()
	if !ok {
		return nil, models.ErrTransactionNotFound
	}
	return tx.store.GetTransaction(ctx, id)
}

func (tx *walletTx) InsertTransaction(ctx context.Context, t *models.WalletTransaction) error {
	if tx.done {
		return errTxDone
	}
	if t.Reference != nil {
		if _, err := tx.GetTransactionByReference(ctx, *t.Reference); err == nil {
			return fmt.Errorf("reference %q: %w", *t.Reference, models.ErrConcurrencyConflict)
		}
	}
	stored := *t
	tx.transactions[t.ID] = &stored
	return nil
}

// UpdateWallet stages w and advances w.Version. The wallet must be locked.
func (tx *walletTx) UpdateWallet(_ context.Context, w *models.Wallet) error {
	if tx.done {
		return errTxDone
	}
	if _, ok := tx.held[w.CenterID]; !ok {
		return fmt.Errorf("wallet of center %s updated without its lock", w.CenterID)
	}
	w.Version++
	stored := *w
	stored.UpdatedAt = time.Now().UTC()
	tx.wallets[w.CenterID] = &stored
	return nil
}

func (tx *walletTx) UpdateTransactionStatus(ctx context.Context, t *models.WalletTransaction) error {
	if tx.done {
		return errTxDone
	}
	current, err := tx.LockTransactionForUpdate(ctx, t.ID)
	if err != nil {
		return err
	}
	if current.Status != models.TransactionStatusPending {
		return fmt.Errorf("transaction %s: %w", t.ID, models.ErrTransactionNotPending)
	}
	current.Status = t.Status
	current.ProcessedAt = t.ProcessedAt
	current.ProcessedBy = t.ProcessedBy
	current.AdminNote = t.AdminNote
	tx.transactions[t.ID] = current
	return nil
}

// Commit applies the staged writes atomically. A reference taken by another
// center's transaction in the meantime fails the whole commit as a conflict.
func (tx *walletTx) Commit() error {
	if tx.done {
		return errTxDone
	}
	tx.done = true
	defer tx.unlockAll()

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	for id, t := range tx.transactions {
		if t.Reference == nil {
			continue
		}
		if owner, taken := tx.store.byReference[*t.Reference]; taken && owner != id {
			return fmt.Errorf("reference %q: %w", *t.Reference, models.ErrConcurrencyConflict)
		}
	}

	for centerID, w := range tx.wallets {
		tx.store.wallets[centerID] = w
	}
	for id, t := range tx.transactions {
		tx.store.transactions[id] = t
		if t.Reference != nil {
			tx.store.byReference[*t.Reference] = id
		}
	}
	return nil
}

func (tx *walletTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.unlockAll()
	return nil
}
