package broker

import (
	"github.com/IBM/sarama"
	"github.com/segmentio/kafka-go"

	"csc-ledger/internal/config"
)

func NewKafkaWriter(cfg config.KafkaConfig) (*kafka.Writer, error) {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.EventsTopic,
		Balancer:               &kafka.Hash{},    // Use hash balancer to keep per-owner order
		RequiredAcks:           kafka.RequireOne, // Wait for acknowledgement from leader
		Async:                  false,            // Synchronous writing for reliability
		MaxAttempts:            10,
		AllowAutoTopicCreation: true,
	}

	return writer, nil
}

func NewSaramaConsumer(cfg *config.KafkaConfig) (sarama.Consumer, error) {
	return sarama.NewConsumer(cfg.Brokers, cfg.GetSaramaConfig())
}
