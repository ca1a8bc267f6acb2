package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	_ "csc-ledger/docs"
	"csc-ledger/internal/config"
	"csc-ledger/internal/transport/http/handler"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	cfg        *config.Config
	logger     *logrus.Logger
	ledger     *ledger
	httpServer *http.Server
}

// @title CSC Ledger API
// @version 1.0
// @description Entitlements and center wallets for the CSC forms marketplace.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	l, err := newLedger(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.ledger = l

	// Initialize mux and handlers
	mux := http.NewServeMux()

	handler.NewEntitlement(mux, l.entitlements, logger)
	handler.NewWallet(mux, l.wallets, logger)
	handler.NewGate(mux, l.gates, logger)
	handler.NewSystem(mux)

	// Initialize http server
	a.httpServer = &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return a, nil
}

// Handler exposes the routed mux, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve runs the HTTP server until ctx is done, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	defer a.ledger.close(a.logger)

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("addr", a.cfg.Server.Port).Info("Starting HTTP server")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return <-errCh
}
