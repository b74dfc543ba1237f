package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the gateway reads from the environment so main
// stays lean.
type Config struct {
	Addr        string
	Environment string

	// Authority sandbox connection.
	AuthorityBaseURL string
	AuthorityToken   string
	// RoutingPrefix is the sandbox routing prefix (e.g. "/v2") prepended to
	// internal authority paths. Display paths never carry it.
	RoutingPrefix string
	// PendingErrorCodes are the application error codes the sandbox uses to
	// say "issued but not collected yet". Environment-specific, hence
	// configuration rather than a constant.
	PendingErrorCodes []string
	AuthorityTimeout  time.Duration

	// Ledger persistence.
	LedgerBackend string // memory | redis | postgres
	LedgerCap     int

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig holds event publishing settings. Brokers empty means Kafka is
// not configured and ledger events stay in-process only.
type KafkaConfig struct {
	Brokers         string
	Topic           string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:             envOr("VCGW_ADDR", ":8080"),
		Environment:      envOr("VCGW_ENV", "dev"),
		AuthorityBaseURL: envOr("AUTHORITY_BASE_URL", "http://localhost:3001"),
		AuthorityToken:   os.Getenv("AUTHORITY_TOKEN"),
		RoutingPrefix:    os.Getenv("AUTHORITY_ROUTING_PREFIX"),
		AuthorityTimeout: durationOr("AUTHORITY_TIMEOUT", 10*time.Second),
		LedgerBackend:    envOr("LEDGER_BACKEND", "memory"),
		LedgerCap:        intOr("LEDGER_CAP", 50),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: intOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    intOr("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    intOr("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: durationOr("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			Topic:           envOr("KAFKA_LEDGER_TOPIC", "vcgw.ledger.events"),
			Acks:            envOr("KAFKA_ACKS", "all"),
			Retries:         intOr("KAFKA_RETRIES", 3),
			DeliveryTimeout: durationOr("KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
		},
	}

	codes := envOr("PENDING_ERROR_CODES", "61010")
	for _, code := range strings.Split(codes, ",") {
		if code = strings.TrimSpace(code); code != "" {
			cfg.PendingErrorCodes = append(cfg.PendingErrorCodes, code)
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
