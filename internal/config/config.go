package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Ledger   LedgerConfig
}

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	Driver string
}

type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type KafkaConfig struct {
	Brokers       []string
	EventsTopic   string
	PaymentsTopic string
	Partitions    int
	// Sarama-specific
	Version string
}

// Enabled reports whether any broker address is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type WorkerConfig struct {
	ProcessingInterval time.Duration
}

type LedgerConfig struct {
	MaxRetries int
}

func New() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", ":8080"),
		},
		Storage: StorageConfig{
			Driver: GetEnv("STORAGE_DRIVER", StorageDriverPostgres),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("POSTGRES_URL"),
			MaxOpenConns: GetEnvInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns: GetEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(os.Getenv("KAFKA_BROKERS")),
			EventsTopic:   GetEnv("KAFKA_EVENTS_TOPIC", "ledger-events"),
			PaymentsTopic: GetEnv("KAFKA_PAYMENTS_TOPIC", "payment-events"),
			Partitions:    GetEnvInt("KAFKA_PARTITIONS", 1),
			Version:       os.Getenv("KAFKA_VERSION"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       GetEnvInt("REDIS_DB", 0),
			PoolSize: GetEnvInt("REDIS_POOL_SIZE", 10),
		},
		Worker: WorkerConfig{
			ProcessingInterval: time.Duration(GetEnvInt("WORKER_PROCESSING_INTERVAL", 1)) * time.Second,
		},
		Ledger: LedgerConfig{
			MaxRetries: GetEnvInt("LEDGER_MAX_RETRIES", 3),
		},
	}
}

// LoadEnv loads environment variables from .env files in the working directory
func LoadEnv(logger *logrus.Logger) {
	files := []string{".env", ".env.dev"}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			logger.WithError(err).Warnf("Failed to load %s", file)
			continue
		}
		loaded = append(loaded, file)
	}
	if len(loaded) == 0 {
		logger.Debug("No local env files loaded; relying on process environment")
		return
	}
	logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
}

// GetEnv gets an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (k *KafkaConfig) GetSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()

	if k.Version != "" {
		version, err := sarama.ParseKafkaVersion(k.Version)
		if err == nil {
			config.Version = version
		}
	}

	// Consumer settings. The worker reads partitions directly and commits no
	// offsets, so each start replays from the oldest offset; handlers are idempotent.
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	// Settings for batch processing
	config.Consumer.Fetch.Min = 1
	config.Consumer.Fetch.Default = 1024 * 1024 // 1MB
	config.Consumer.MaxWaitTime = 100 * time.Millisecond

	// Network settings
	config.Net.MaxOpenRequests = 5
	config.Net.DialTimeout = 30 * time.Second
	config.Net.ReadTimeout = 30 * time.Second
	config.Net.WriteTimeout = 30 * time.Second

	return config
}
