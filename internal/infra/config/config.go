package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"
	StorageS3     = "s3"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                   string
	LogLevel              string
	HTTPAddr              string
	StorageDriver         string
	SQLitePath            string
	MongoURI              string
	MongoDB               string
	MongoCollection       string
	S3Endpoint            string
	S3AccessKey           string
	S3SecretKey           string
	S3Bucket              string
	S3Prefix              string
	S3Region              string
	S3UseSSL              bool
	SocketURL             string
	RetryBackoff          []time.Duration
	KafkaBrokers          []string
	KafkaTopicPrefix      string
	OutboxPollInterval    time.Duration
	SwapStrictTransitions bool
	LogoutKeepsOnboarding bool
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPAddr:         getEnv("HTTP_ADDR", "127.0.0.1:8787"),
		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", StorageSQLite)),
		SQLitePath:       getEnv("SQLITE_PATH", "rentme.db"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "rentme_client"),
		MongoCollection:  getEnv("MONGO_COLLECTION", "client_state"),
		S3Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:         getEnv("S3_BUCKET", "rentme-state"),
		S3Prefix:         getEnv("S3_PREFIX", ""),
		S3Region:         getEnv("S3_REGION", ""),
		SocketURL:        getEnv("SOCKET_URL", getEnv("EXPO_PUBLIC_SOCKET_URL", "ws://localhost:3001")),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
	}
	cfg.KafkaBrokers = parseList(getEnv("KAFKA_BROKERS", ""))

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: must be positive", raw)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.SwapStrictTransitions, err = parseBoolEnv("SWAP_STRICT_TRANSITIONS", false); err != nil {
		return Config{}, err
	}
	if cfg.LogoutKeepsOnboarding, err = parseBoolEnv("LOGOUT_KEEPS_ONBOARDING", false); err != nil {
		return Config{}, err
	}

	switch cfg.StorageDriver {
	case StorageMemory, StorageSQLite, StorageS3:
	case StorageMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required for the mongo storage driver")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.StorageDriver == StorageSQLite && strings.TrimSpace(cfg.SQLitePath) == "" {
		return Config{}, fmt.Errorf("SQLITE_PATH is required for the sqlite storage driver")
	}
	return cfg, nil
}

// OutboxEnabled reports whether swap events are shipped to Kafka.
func (c Config) OutboxEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
