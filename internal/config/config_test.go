package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"csc-ledger/internal/logging"
)

func TestNew_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "STORAGE_DRIVER", "KAFKA_BROKERS", "KAFKA_EVENTS_TOPIC",
		"REDIS_ADDR", "WORKER_PROCESSING_INTERVAL", "LEDGER_MAX_RETRIES",
	} {
		t.Setenv(key, "")
	}

	cfg := New()

	if cfg.Server.Port != ":8080" {
		t.Errorf("Server.Port = %q, want :8080", cfg.Server.Port)
	}
	if cfg.Storage.Driver != StorageDriverPostgres {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, StorageDriverPostgres)
	}
	if cfg.Kafka.Enabled() || cfg.Redis.Enabled() {
		t.Errorf("kafka and redis should be disabled without addresses: %+v %+v", cfg.Kafka, cfg.Redis)
	}
	if cfg.Kafka.EventsTopic != "ledger-events" {
		t.Errorf("Kafka.EventsTopic = %q", cfg.Kafka.EventsTopic)
	}
	if cfg.Worker.ProcessingInterval != time.Second {
		t.Errorf("Worker.ProcessingInterval = %v, want 1s", cfg.Worker.ProcessingInterval)
	}
	if cfg.Ledger.MaxRetries != 3 {
		t.Errorf("Ledger.MaxRetries = %d, want 3", cfg.Ledger.MaxRetries)
	}
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("KAFKA_PARTITIONS", "6")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("WORKER_PROCESSING_INTERVAL", "3")
	t.Setenv("LEDGER_MAX_RETRIES", "not-a-number")

	cfg := New()

	if cfg.Storage.Driver != StorageDriverMemory {
		t.Errorf("Storage.Driver = %q, want memory", cfg.Storage.Driver)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Kafka.Brokers = %#v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Partitions != 6 {
		t.Errorf("Kafka.Partitions = %d, want 6", cfg.Kafka.Partitions)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.DB != 2 {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Worker.ProcessingInterval != 3*time.Second {
		t.Errorf("Worker.ProcessingInterval = %v, want 3s", cfg.Worker.ProcessingInterval)
	}
	if cfg.Ledger.MaxRetries != 3 {
		t.Errorf("unparsable LEDGER_MAX_RETRIES should fall back to 3, got %d", cfg.Ledger.MaxRetries)
	}
}

func TestLoadEnv_OverloadsFromFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LEDGER_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("LEDGER_TEST_VALUE", "from-process")
	LoadEnv(logging.Discard())

	if got := os.Getenv("LEDGER_TEST_VALUE"); got != "from-file" {
		t.Errorf("LEDGER_TEST_VALUE = %q, want from-file", got)
	}
}

func TestKafkaConfig_GetSaramaConfig(t *testing.T) {
	k := KafkaConfig{Version: "3.6.0"}
	cfg := k.GetSaramaConfig()

	if cfg.Version != sarama.V3_6_0_0 {
		t.Errorf("Version = %v, want 3.6.0", cfg.Version)
	}
	if !cfg.Consumer.Return.Errors {
		t.Error("consumer errors should be returned")
	}
	if cfg.Consumer.Offsets.Initial != sarama.OffsetOldest {
		t.Error("worker should start from the oldest offset")
	}
}

func TestKafkaConfig_EveryEnvSettingIsRead(t *testing.T) {
	tests := []struct {
		key   string
		value string
		got   func(KafkaConfig) string
	}{
		{key: "KAFKA_EVENTS_TOPIC", value: "events-x", got: func(k KafkaConfig) string { return k.EventsTopic }},
		{key: "KAFKA_PAYMENTS_TOPIC", value: "payments-x", got: func(k KafkaConfig) string { return k.PaymentsTopic }},
		{key: "KAFKA_VERSION", value: "3.6.0", got: func(k KafkaConfig) string { return k.Version }},
		{key: "KAFKA_BROKERS", value: "kafka-1:9092", got: func(k KafkaConfig) string { return strings.Join(k.Brokers, ",") }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if got := tt.got(New().Kafka); got != tt.value {
				t.Errorf("%s = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
}
