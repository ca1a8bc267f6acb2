package app

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"csc-ledger/internal/broker"
	"csc-ledger/internal/cache"
	"csc-ledger/internal/config"
	"csc-ledger/internal/database"
	"csc-ledger/internal/repositories/kafkarepo"
	"csc-ledger/internal/repositories/memoryrepo"
	"csc-ledger/internal/repositories/postgresrepo"
	"csc-ledger/internal/repositories/redisrepo"
	"csc-ledger/internal/services"
)

// ledger holds the services shared by the API and the worker, plus whatever
// connections they own.
type ledger struct {
	entitlements *services.EntitlementService
	wallets      *services.WalletService
	gates        *services.GateService
	closers      []func() error
}

type stores struct {
	entitlements services.EntitlementStore
	wallets      services.WalletStore
	gates        services.GateStore
}

func newLedger(cfg *config.Config, logger *logrus.Logger) (*ledger, error) {
	l := new(ledger)

	st, err := l.openStores(cfg, logger)
	if err != nil {
		l.close(logger)
		return nil, err
	}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMaxRetries(cfg.Ledger.MaxRetries),
	}

	// Connect to cache
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			l.close(logger)
			return nil, fmt.Errorf("cache connection error: %w", err)
		}
		l.closers = append(l.closers, client.Close)
		opts = append(opts, services.WithBalanceCache(redisrepo.NewBalanceRepository(client)))
	} else {
		logger.Info("REDIS_ADDR not set, balance cache disabled")
	}

	// Connect to broker
	if cfg.Kafka.Enabled() {
		writer, err := broker.NewKafkaWriter(cfg.Kafka)
		if err != nil {
			l.close(logger)
			return nil, fmt.Errorf("broker connection error: %w", err)
		}
		l.closers = append(l.closers, writer.Close)
		opts = append(opts, services.WithPublisher(kafkarepo.NewEventRepository(writer)))
	} else {
		logger.Info("KAFKA_BROKERS not set, ledger events are not published")
	}

	// Initialize services
	l.entitlements = services.NewEntitlementService(st.entitlements, opts...)
	l.wallets = services.NewWalletService(st.wallets, opts...)
	l.gates = services.NewGateService(l.entitlements, st.gates, opts...)

	return l, nil
}

func (l *ledger) openStores(cfg *config.Config, logger *logrus.Logger) (*stores, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("Using in-memory storage, state is lost on exit")
		return &stores{
			entitlements: memoryrepo.NewEntitlementStore(),
			wallets:      memoryrepo.NewWalletStore(),
			gates:        memoryrepo.NewGateStore(),
		}, nil

	case config.StorageDriverPostgres:
		db, err := openPostgres(cfg)
		if err != nil {
			return nil, err
		}
		l.closers = append(l.closers, db.Close)
		return &stores{
			entitlements: postgresrepo.NewEntitlementRepository(db),
			wallets:      postgresrepo.NewWalletRepository(db),
			gates:        postgresrepo.NewGateRepository(db),
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openPostgres(cfg *config.Config) (*sqlx.DB, error) {
	if cfg.Postgres.URL == "" {
		return nil, errors.New("POSTGRES_URL is required for the postgres storage driver")
	}
	db, err := database.NewPostgres(database.PostgresConfig{
		URL:          cfg.Postgres.URL,
		MaxOpenConns: cfg.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Postgres.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}
	return db, nil
}

// close releases connections in reverse order of opening.
func (l *ledger) close(logger *logrus.Logger) {
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i](); err != nil {
			logger.WithError(err).Warn("Failed to close resource")
		}
	}
	l.closers = nil
}
