package worker

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	"csc-ledger/internal/logging"
	"csc-ledger/internal/metrics"
	"csc-ledger/internal/models"
)

func (m *PartitionManager) runWorker(ctx context.Context, partition int, partitionConsumer sarama.PartitionConsumer, batchProcessor *BatchProcessor) {
	ticker := newTicker(m.cfg.Worker.ProcessingInterval)
	defer ticker.Stop()

	log := m.logger.WithFields(m.logFields(partition))
	errs := partitionConsumer.Errors()

	for {
		select {
		case <-ctx.Done():
			// Context canceled - flush with a fresh context so the last batch still commits
			log.Info("Shutdown signal received")
			batchProcessor.ProcessRemaining(context.WithoutCancel(ctx))
			return

		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				batchProcessor.ProcessRemaining(ctx)
				return
			}
			var event models.PaymentEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				metrics.WorkerEventsTotal.WithLabelValues("unknown", "malformed").Inc()
				log.WithError(err).WithField("offset", msg.Offset).Warn("Failed to unmarshal payment event, skipping")
				continue
			}
			batchProcessor.AddMessage(msg, event)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.WithError(err).Error("Kafka error")

		case <-ticker.C:
			// The timer has triggered - we process the batch
			batchProcessor.ProcessBatch(ctx)
		}
	}
}

func (m *PartitionManager) logFields(partition int) logging.Fields {
	return logging.Fields{
		"partition": partition,
		"topic":     m.cfg.Kafka.PaymentsTopic,
	}
}
