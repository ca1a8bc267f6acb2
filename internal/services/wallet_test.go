package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"csc-ledger/internal/models"
	"csc-ledger/internal/repositories/memoryrepo"
	"csc-ledger/internal/services"
)

func credit(center string, amount int64, ref string) models.CreditRequest {
	return models.CreditRequest{CenterID: center, Amount: amount, Reference: ref}
}

func assertBalance(t *testing.T, svc *services.WalletService, center string, want models.WalletBalanceResponse) {
	t.Helper()

	got, err := svc.Balance(context.Background(), center)
	if err != nil {
		t.Fatalf("Balance(%s): %v", center, err)
	}
	want.CenterID = center
	// Version only has to move forward; its exact value depends on the history.
	want.Version = got.Version
	if *got != want {
		t.Errorf("Balance(%s) = %+v, want %+v", center, *got, want)
	}
}

func TestWalletService_WithdrawalLifecycle(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		outcome models.WithdrawalOutcome
		want    models.WalletBalanceResponse
		status  models.TransactionStatus
	}{
		{
			name:    "approve moves pending into withdrawn",
			outcome: models.OutcomeApprove,
			want:    models.WalletBalanceResponse{Balance: 400, PendingWithdrawal: 0, TotalEarnings: 1000, TotalWithdrawn: 600},
			status:  models.TransactionStatusCompleted,
		},
		{
			name:    "reject restores the balance",
			outcome: models.OutcomeReject,
			want:    models.WalletBalanceResponse{Balance: 1000, PendingWithdrawal: 0, TotalEarnings: 1000, TotalWithdrawn: 0},
			status:  models.TransactionStatusRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			svc := services.NewWalletService(memoryrepo.NewWalletStore(), services.WithPublisher(pub))

			if _, err := svc.Credit(ctx, credit("c-1", 1000, "task-1")); err != nil {
				t.Fatalf("Credit: %v", err)
			}
			req, err := svc.RequestWithdrawal(ctx, models.WithdrawalRequest{CenterID: "c-1", Amount: 600})
			if err != nil {
				t.Fatalf("RequestWithdrawal: %v", err)
			}
			if req.Status != models.TransactionStatusPending {
				t.Fatalf("withdrawal status = %q, want pending", req.Status)
			}
			assertBalance(t, svc, "c-1", models.WalletBalanceResponse{Balance: 400, PendingWithdrawal: 600, TotalEarnings: 1000})

			settled, err := svc.ResolveWithdrawal(ctx, models.ResolveWithdrawalRequest{
				TransactionID: req.TransactionID,
				Outcome:       tt.outcome,
				AdminID:       "admin-1",
				Note:          "checked",
			})
			if err != nil {
				t.Fatalf("ResolveWithdrawal: %v", err)
			}
			if settled.Status != tt.status || settled.ProcessedBy == nil || *settled.ProcessedBy != "admin-1" || settled.ProcessedAt == nil {
				t.Errorf("settled = %+v, want %s processed by admin-1", settled, tt.status)
			}
			assertBalance(t, svc, "c-1", tt.want)

			_, err = svc.ResolveWithdrawal(ctx, models.ResolveWithdrawalRequest{
				TransactionID: req.TransactionID,
				Outcome:       models.OutcomeApprove,
				AdminID:       "admin-2",
			})
			if !errors.Is(err, models.ErrTransactionNotPending) {
				t.Fatalf("second resolve error = %v, want %v", err, models.ErrTransactionNotPending)
			}
			assertBalance(t, svc, "c-1", tt.want)

			if got := len(pub.Types()); got != 3 {
				t.Errorf("published %d events, want 3", got)
			}
		})
	}
}

func TestWalletService_CancelWithdrawal(t *testing.T) {
	ctx := context.Background()
	svc := services.NewWalletService(memoryrepo.NewWalletStore())

	if _, err := svc.Credit(ctx, credit("c-1", 500, "task-1")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	req, err := svc.RequestWithdrawal(ctx, models.WithdrawalRequest{CenterID: "c-1", Amount: 200})
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}

	cancelled, err := svc.CancelWithdrawal(ctx, models.CancelWithdrawalRequest{TransactionID: req.TransactionID, AdminID: "c-1"})
	if err != nil {
		t.Fatalf("CancelWithdrawal: %v", err)
	}
	if cancelled.Status != models.TransactionStatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	assertBalance(t, svc, "c-1", models.WalletBalanceResponse{Balance: 500, TotalEarnings: 500})

	_, err = svc.ResolveWithdrawal(ctx, models.ResolveWithdrawalRequest{TransactionID: req.TransactionID, Outcome: models.OutcomeApprove, AdminID: "admin-1"})
	if !errors.Is(err, models.ErrTransactionNotPending) {
		t.Errorf("resolve after cancel error = %v, want %v", err, models.ErrTransactionNotPending)
	}
}

func TestWalletService_ResolveRejectsNonWithdrawal(t *testing.T) {
	ctx := context.Background()
	svc := services.NewWalletService(memoryrepo.NewWalletStore())

	resp, err := svc.Credit(ctx, credit("c-1", 100, "task-1"))
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}

	_, err = svc.ResolveWithdrawal(ctx, models.ResolveWithdrawalRequest{TransactionID: resp.TransactionID, Outcome: models.OutcomeReject, AdminID: "admin-1"})
	if !errors.Is(err, models.ErrTransactionNotPending) {
		t.Errorf("error = %v, want %v", err, models.ErrTransactionNotPending)
	}

	_, err = svc.ResolveWithdrawal(ctx, models.ResolveWithdrawalRequest{TransactionID: "missing", Outcome: models.OutcomeReject, AdminID: "admin-1"})
	if !errors.Is(err, models.ErrTransactionNotFound) {
		t.Errorf("error = %v, want %v", err, models.ErrTransactionNotFound)
	}
}

func TestWalletService_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	svc := services.NewWalletService(memoryrepo.NewWalletStore())

	if _, err := svc.RequestWithdrawal(ctx, models.WithdrawalRequest{CenterID: "c-new", Amount: 1}); !errors.Is(err, models.ErrInsufficientBalance) {
		t.Errorf("withdrawal from missing wallet error = %v, want %v", err, models.ErrInsufficientBalance)
	}

	if _, err := svc.Credit(ctx, credit("c-1", 300, "task-1")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if _, err := svc.RequestWithdrawal(ctx, models.WithdrawalRequest{CenterID: "c-1", Amount: 301}); !errors.Is(err, models.ErrInsufficientBalance) {
		t.Errorf("over-withdrawal error = %v, want %v", err, models.ErrInsufficientBalance)
	}
	if _, err := svc.Debit(ctx, models.DebitRequest{CenterID: "c-1", Amount: 301, Reference: "fine-1"}); !errors.Is(err, models.ErrInsufficientBalance) {
		t.Errorf("over-debit error = %v, want %v", err, models.ErrInsufficientBalance)
	}
	assertBalance(t, svc, "c-1", models.WalletBalanceResponse{Balance: 300, TotalEarnings: 300})

	if _, err := svc.Debit(ctx, models.DebitRequest{CenterID: "c-1", Amount: 100, Reference: "fine-1", AdminNote: "chargeback"}); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	assertBalance(t, svc, "c-1", models.WalletBalanceResponse{Balance: 200, TotalEarnings: 200})
}

func TestWalletService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := services.NewWalletService(memoryrepo.NewWalletStore())

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name:    "credit with zero amount",
			call:    func() error { _, err := svc.Credit(ctx, credit("c-1", 0, "r-1")); return err },
			wantErr: models.ErrInvalidAmount,
		},
		{
			name:    "credit with negative amount",
			call:    func() error { _, err := svc.Bonus(ctx, credit("c-1", -5, "r-1")); return err },
			wantErr: models.ErrInvalidAmount,
		},
		{
			name:    "credit without reference",
			call:    func() error { _, err := svc.Credit(ctx, credit("c-1", 10, "")); return err },
			wantErr: models.ErrMissingReference,
		},
		{
			name: "withdrawal with zero amount",
			call: func() error {
				_, err := svc.RequestWithdrawal(ctx, models.WithdrawalRequest{CenterID: "c-1"})
				return err
			},
			wantErr: models.ErrInvalidAmount,
		},
		{
			name: "debit without reference",
			call: func() error {
				_, err := svc.Debit(ctx, models.DebitRequest{CenterID: "c-1", Amount: 1})
				return err
			},
			wantErr: models.ErrMissingReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	assertBalance(t, svc, "c-1", models.WalletBalanceResponse{})
}

func TestWalletService_CreditIdempotent(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := services.NewWalletService(memoryrepo.NewWalletStore(), services.WithPublisher(pub))

	first, err := svc.Credit(ctx, credit("c-1", 250, "task-42"))
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	second, err := svc.Credit(ctx, credit("c-1", 250, "task-42"))
	if err != nil {
		t.Fatalf("replayed Credit: %v", err)
	}
	if second.Created || second.TransactionID != first.TransactionID {
		t.Errorf("replay = %+v, want existing %s", second, first.TransactionID)
	}
	assertBalance(t, svc, "c-1", models.WalletBalanceResponse{Balance: 250, TotalEarnings: 250})

	strict := credit("c-1", 250, "task-42")
	strict.Strict = true
	if _, err := svc.Credit(ctx, strict); !errors.Is(err, models.ErrDuplicateReference) {
		t.Errorf("strict replay error = %v, want %v", err, models.ErrDuplicateReference)
	}
	if _, err := svc.Bonus(ctx, credit("c-1", 250, "task-42")); !errors.Is(err, models.ErrDuplicateReference) {
		t.Errorf("bonus reusing a credit reference error = %v, want %v", err, models.ErrDuplicateReference)
	}
	if _, err := svc.Credit(ctx, credit("c-2", 250, "task-42")); !errors.Is(err, models.ErrDuplicateReference) {
		t.Errorf("other center reusing reference error = %v, want %v", err, models.ErrDuplicateReference)
	}

	txs, err := svc.Transactions(ctx, "c-1", 0)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("%d transactions recorded, want 1", len(txs))
	}
	if got := len(pub.Types()); got != 1 {
		t.Errorf("published %d events, want 1", got)
	}
}

func TestWalletService_ConcurrentCreditsSameReference(t *testing.T) {
	ctx := context.Background()
	svc := services.NewWalletService(memoryrepo.NewWalletStore())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Credit(ctx, credit("c-1", 100, "task-1"))
			if err != nil {
				t.Errorf("Credit: %v", err)
				return
			}
			if resp.Created {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("%d credits created, want 1", created)
	}
	assertBalance(t, svc, "c-1", models.WalletBalanceResponse{Balance: 100, TotalEarnings: 100})
}

func TestWalletService_ConcurrentWithdrawals(t *testing.T) {
	ctx := context.Background()
	svc := services.NewWalletService(memoryrepo.NewWalletStore())

	if _, err := svc.Credit(ctx, credit("c-1", 1000, "task-1")); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RequestWithdrawal(ctx, models.WithdrawalRequest{CenterID: "c-1", Amount: 300})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, models.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 {
		t.Fatalf("%d withdrawals accepted, want 3", succeeded)
	}
	assertBalance(t, svc, "c-1", models.WalletBalanceResponse{Balance: 100, PendingWithdrawal: 900, TotalEarnings: 1000})
}

func TestWalletService_ConcurrentResolveOnce(t *testing.T) {
	ctx := context.Background()
	svc := services.NewWalletService(memoryrepo.NewWalletStore())

	if _, err := svc.Credit(ctx, credit("c-1", 1000, "task-1")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	req, err := svc.RequestWithdrawal(ctx, models.WithdrawalRequest{CenterID: "c-1", Amount: 600})
	if err != nil {
		t.Fatalf("RequestWithdrawal: %v", err)
	}

	outcomes := []models.WithdrawalOutcome{models.OutcomeApprove, models.OutcomeReject}
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []models.TransactionStatus
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(outcome models.WithdrawalOutcome) {
			defer wg.Done()
			settled, err := svc.ResolveWithdrawal(ctx, models.ResolveWithdrawalRequest{
				TransactionID: req.TransactionID,
				Outcome:       outcome,
				AdminID:       "admin-1",
			})
			if err != nil {
				if !errors.Is(err, models.ErrTransactionNotPending) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			succeeded = append(succeeded, settled.Status)
			mu.Unlock()
		}(outcomes[i%2])
	}
	wg.Wait()

	if len(succeeded) != 1 {
		t.Fatalf("%d resolutions applied, want 1", len(succeeded))
	}
	want := models.WalletBalanceResponse{Balance: 400, TotalEarnings: 1000, TotalWithdrawn: 600}
	if succeeded[0] == models.TransactionStatusRejected {
		want = models.WalletBalanceResponse{Balance: 1000, TotalEarnings: 1000}
	}
	assertBalance(t, svc, "c-1", want)
}

func TestWalletService_BalanceOfUnknownCenter(t *testing.T) {
	svc := services.NewWalletService(memoryrepo.NewWalletStore())
	assertBalance(t, svc, "c-unknown", models.WalletBalanceResponse{})
}

func TestWalletService_TransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	svc := services.NewWalletService(memoryrepo.NewWalletStore(), services.WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		if _, err := svc.Credit(ctx, credit("c-1", 10, fmt.Sprintf("task-%d", i))); err != nil {
			t.Fatalf("Credit %d: %v", i, err)
		}
		clock.Advance(time.Second)
	}

	txs, err := svc.Transactions(ctx, "c-1", 3)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d transactions, want 3", len(txs))
	}
	if txs[0].Reference == nil || *txs[0].Reference != "task-4" {
		t.Errorf("newest transaction = %+v, want task-4", txs[0])
	}

	got, err := svc.Transaction(ctx, txs[0].ID)
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if got.Type != models.TransactionTypeCredit || got.Status != models.TransactionStatusCompleted {
		t.Errorf("transaction = %+v, want a completed credit", got)
	}
}

// mapCache keeps the highest version per center, like the Redis cache.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]models.WalletBalanceResponse
}

func (c *mapCache) GetBalance(_ context.Context, centerID string) (*models.WalletBalanceResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[centerID]
	if !ok {
		return nil, models.ErrCacheMiss
	}
	return &b, nil
}

func (c *mapCache) SetBalance(_ context.Context, b models.WalletBalanceResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[b.CenterID]; ok && cur.Version >= b.Version {
		return nil
	}
	c.entries[b.CenterID] = b
	return nil
}

func (c *mapCache) DeleteBalance(_ context.Context, centerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, centerID)
	return nil
}

func (c *mapCache) entry(centerID string) (models.WalletBalanceResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[centerID]
	return b, ok
}

func TestWalletService_BalanceCacheRefreshedOnWrite(t *testing.T) {
	ctx := context.Background()
	cache := &mapCache{entries: make(map[string]models.WalletBalanceResponse)}
	svc := services.NewWalletService(memoryrepo.NewWalletStore(), services.WithBalanceCache(cache))

	if _, err := svc.Credit(ctx, credit("c-1", 100, "task-1")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if b, ok := cache.entry("c-1"); !ok || b.Balance != 100 || b.Version != 1 {
		t.Fatalf("cache after first credit = %+v (found %v), want balance 100 at version 1", b, ok)
	}

	if _, err := svc.Credit(ctx, credit("c-1", 50, "task-2")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if b, _ := cache.entry("c-1"); b.Balance != 150 || b.Version != 2 {
		t.Errorf("cache after second credit = %+v, want balance 150 at version 2", b)
	}
	assertBalance(t, svc, "c-1", models.WalletBalanceResponse{Balance: 150, TotalEarnings: 150})
}

// pausingWalletStore holds GetWallet after it has read the wallet, until released.
type pausingWalletStore struct {
	*memoryrepo.WalletStore
	read    chan struct{}
	release chan struct{}
}

func (s *pausingWalletStore) GetWallet(ctx context.Context, centerID string) (*models.Wallet, error) {
	w, err := s.WalletStore.GetWallet(ctx, centerID)
	s.read <- struct{}{}
	<-s.release
	return w, err
}

func TestWalletService_SlowBalanceReadDoesNotCacheStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	store := &pausingWalletStore{
		WalletStore: memoryrepo.NewWalletStore(),
		read:        make(chan struct{}),
		release:     make(chan struct{}),
	}
	cache := &mapCache{entries: make(map[string]models.WalletBalanceResponse)}
	svc := services.NewWalletService(store, services.WithBalanceCache(cache))

	if _, err := svc.Credit(ctx, credit("c-1", 100, "task-1")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := cache.DeleteBalance(ctx, "c-1"); err != nil {
		t.Fatalf("DeleteBalance: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Balance(ctx, "c-1")
		done <- err
	}()
	<-store.read

	// The write lands between the slow read and its cache fill.
	if _, err := svc.Credit(ctx, credit("c-1", 50, "task-2")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	close(store.release)
	if err := <-done; err != nil {
		t.Fatalf("Balance: %v", err)
	}

	b, ok := cache.entry("c-1")
	if !ok || b.Balance != 150 {
		t.Errorf("cached balance = %+v (found %v), want the committed 150", b, ok)
	}
}
