package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"csc-ledger/internal/broker"
	"csc-ledger/internal/config"
	"csc-ledger/internal/worker"
)

type Worker struct {
	logger           *logrus.Logger
	ledger           *ledger
	partitionManager *worker.PartitionManager
}

func NewWorker(cfg *config.Config, logger *logrus.Logger) (*Worker, error) {
	if !cfg.Kafka.Enabled() {
		return nil, errors.New("KAFKA_BROKERS is required to run the worker")
	}

	l, err := newLedger(cfg, logger)
	if err != nil {
		return nil, err
	}

	consumer, err := broker.NewSaramaConsumer(&cfg.Kafka)
	if err != nil {
		l.close(logger)
		return nil, fmt.Errorf("broker connection error: %w", err)
	}
	l.closers = append(l.closers, consumer.Close)

	payments := worker.NewPaymentHandler(l.entitlements, l.wallets, logger)

	return &Worker{
		logger:           logger,
		ledger:           l,
		partitionManager: worker.NewPartitionManager(cfg, consumer, payments, logger),
	}, nil
}

func (w *Worker) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer w.ledger.close(w.logger)
	return w.partitionManager.Start(ctx)
}
