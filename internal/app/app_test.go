package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"csc-ledger/internal/config"
	"csc-ledger/internal/logging"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: "127.0.0.1:0"},
		Storage: config.StorageConfig{Driver: config.StorageDriverMemory},
		Ledger:  config.LedgerConfig{MaxRetries: 3},
	}
}

func TestNew_MemoryStorageServesRequests(t *testing.T) {
	a, err := New(memoryConfig(), logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets/c-1/credits", strings.NewReader(`{"amount":10,"reference":"task-1"}`))
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("credit status = %d, body %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestNew_RejectsBadStorage(t *testing.T) {
	tests := []struct {
		name   string
		driver string
	}{
		{name: "unknown driver", driver: "sqlite"},
		{name: "postgres without url", driver: config.StorageDriverPostgres},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			cfg.Storage.Driver = tt.driver
			if _, err := New(cfg, logging.Discard()); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	a, err := New(memoryConfig(), logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestNewWorker_RequiresBrokers(t *testing.T) {
	if _, err := NewWorker(memoryConfig(), logging.Discard()); err == nil {
		t.Fatal("expected an error without KAFKA_BROKERS")
	}
}
