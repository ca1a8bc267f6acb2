package redisrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"csc-ledger/internal/models"
)

func setupTestRepo(t *testing.T) (*BalanceRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewBalanceRepository(client), mr
}

func TestBalanceRepository_SetGetDelete(t *testing.T) {
	repo, mr := setupTestRepo(t)
	ctx := context.Background()

	balance := models.WalletBalanceResponse{
		CenterID:          "c-1",
		Balance:           400,
		PendingWithdrawal: 600,
		TotalEarnings:     1000,
		Version:           3,
	}
	if err := repo.SetBalance(ctx, balance); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if !mr.Exists("wallet:c-1:balance") {
		t.Fatal("expected the balance key to be written")
	}
	if ttl := mr.TTL("wallet:c-1:balance"); ttl != expiration {
		t.Errorf("TTL = %v, want %v", ttl, expiration)
	}

	got, err := repo.GetBalance(ctx, "c-1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if *got != balance {
		t.Errorf("GetBalance = %+v, want %+v", *got, balance)
	}

	if err := repo.DeleteBalance(ctx, "c-1"); err != nil {
		t.Fatalf("DeleteBalance: %v", err)
	}
	if _, err := repo.GetBalance(ctx, "c-1"); !errors.Is(err, models.ErrCacheMiss) {
		t.Errorf("GetBalance after delete error = %v, want %v", err, models.ErrCacheMiss)
	}
}

func TestBalanceRepository_Expires(t *testing.T) {
	repo, mr := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.SetBalance(ctx, models.WalletBalanceResponse{CenterID: "c-1", Balance: 1, TotalEarnings: 1}); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	mr.FastForward(expiration + time.Second)

	if _, err := repo.GetBalance(ctx, "c-1"); !errors.Is(err, models.ErrCacheMiss) {
		t.Errorf("error = %v, want %v", err, models.ErrCacheMiss)
	}
}

func TestBalanceRepository_CorruptEntry(t *testing.T) {
	repo, mr := setupTestRepo(t)

	ctx := context.Background()
	if err := repo.client.HSet(ctx, "wallet:c-1:balance", "version", 1, "payload", "not-json").Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !mr.Exists("wallet:c-1:balance") {
		t.Fatal("seed was not written")
	}
	_, err := repo.GetBalance(ctx, "c-1")
	if err == nil || errors.Is(err, models.ErrCacheMiss) {
		t.Errorf("error = %v, want a decode failure", err)
	}
}

func TestBalanceRepository_SetBalanceKeepsNewestVersion(t *testing.T) {
	tests := []struct {
		name        string
		next        models.WalletBalanceResponse
		wantBalance int64
	}{
		{
			name:        "newer snapshot replaces the cached one",
			next:        models.WalletBalanceResponse{CenterID: "c-1", Balance: 150, TotalEarnings: 150, Version: 3},
			wantBalance: 150,
		},
		{
			name:        "older snapshot is ignored",
			next:        models.WalletBalanceResponse{CenterID: "c-1", Balance: 50, TotalEarnings: 50, Version: 1},
			wantBalance: 100,
		},
		{
			name:        "same version is ignored",
			next:        models.WalletBalanceResponse{CenterID: "c-1", Balance: 75, TotalEarnings: 75, Version: 2},
			wantBalance: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := setupTestRepo(t)
			ctx := context.Background()

			cached := models.WalletBalanceResponse{CenterID: "c-1", Balance: 100, TotalEarnings: 100, Version: 2}
			if err := repo.SetBalance(ctx, cached); err != nil {
				t.Fatalf("SetBalance: %v", err)
			}
			if err := repo.SetBalance(ctx, tt.next); err != nil {
				t.Fatalf("SetBalance: %v", err)
			}

			got, err := repo.GetBalance(ctx, "c-1")
			if err != nil {
				t.Fatalf("GetBalance: %v", err)
			}
			if got.Balance != tt.wantBalance {
				t.Errorf("cached balance = %d, want %d", got.Balance, tt.wantBalance)
			}
		})
	}
}
