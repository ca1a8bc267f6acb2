package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"csc-ledger/internal/config"
)

const defaultProcessingInterval = time.Second

type PartitionManager struct {
	cfg      *config.Config
	consumer sarama.Consumer
	handler  OwnerEventHandler
	logger   *logrus.Logger
	wg       sync.WaitGroup
}

func NewPartitionManager(cfg *config.Config, consumer sarama.Consumer, handler OwnerEventHandler, logger *logrus.Logger) *PartitionManager {
	return &PartitionManager{
		cfg:      cfg,
		consumer: consumer,
		handler:  handler,
		logger:   logger,
	}
}

// Start runs one worker per partition and blocks until all of them stop.
func (m *PartitionManager) Start(ctx context.Context) error {
	if m.cfg.Kafka.Partitions < 1 {
		return fmt.Errorf("invalid partition count %d", m.cfg.Kafka.Partitions)
	}

	m.logger.WithField("partitions", m.cfg.Kafka.Partitions).Info("Starting partition workers")

	for partition := 0; partition < m.cfg.Kafka.Partitions; partition++ {
		m.wg.Add(1)
		go m.startWorkerForPartition(ctx, partition)
	}

	// Wait for all workers to complete to prevent program termination
	m.wg.Wait()
	m.logger.Info("All partition workers stopped")
	return nil
}

func (m *PartitionManager) startWorkerForPartition(ctx context.Context, partition int) {
	defer m.wg.Done()

	log := m.logger.WithFields(m.logFields(partition))
	log.Info("Starting worker for partition")

	// Start from the oldest retained offset; handlers are idempotent by reference
	partitionConsumer, err := m.consumer.ConsumePartition(
		m.cfg.Kafka.PaymentsTopic,
		int32(partition),
		sarama.OffsetOldest,
	)
	if err != nil {
		log.WithError(err).Error("Failed to create partition consumer")
		return
	}
	defer partitionConsumer.Close()

	batchProcessor := NewBatchProcessor(partition, m.handler, m.logger)

	// Start the main worker loop
	m.runWorker(ctx, partition, partitionConsumer, batchProcessor)
}

func newTicker(interval time.Duration) *time.Ticker {
	if interval <= 0 {
		interval = defaultProcessingInterval
	}
	return time.NewTicker(interval)
}
