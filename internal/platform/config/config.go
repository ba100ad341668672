// Package config loads process configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "saccoflow/pkg/platform/strings"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Loan     Loan
	Audit    Audit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	JWTSigningKey   string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Postgres captures database settings. An empty URL selects the in-memory
// stores, which keeps local development and unit tests database-free.
type Postgres struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Redis captures cache settings. An empty URL disables caching.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DetailTTL    time.Duration

	// RateLimitPerMinute throttles requests per client IP when Redis is
	// configured. Zero disables throttling.
	RateLimitPerMinute int
}

// Kafka captures audit stream settings. No brokers means audit events stay
// on the in-memory store only.
type Kafka struct {
	Brokers []string
}

// Loan captures the fixed lending terms applied when an approved posting
// carries a loan application.
type Loan struct {
	TermMonths   int
	InterestRate float64
}

// Audit configures the audit publisher.
type Audit struct {
	BufferSize int
}

// FromEnv builds a Config from environment variables, with development
// defaults for everything but secrets.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("SACCOFLOW_ADDR", ":8080"),
			LogLevel:        envString("SACCOFLOW_LOG_LEVEL", "info"),
			JWTSigningKey:   envString("SACCOFLOW_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			RequestTimeout:  envDuration("SACCOFLOW_REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: envDuration("SACCOFLOW_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			URL:             os.Getenv("SACCOFLOW_POSTGRES_URL"),
			MaxOpenConns:    envInt("SACCOFLOW_POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("SACCOFLOW_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("SACCOFLOW_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("SACCOFLOW_REDIS_URL"),
			PoolSize:     envInt("SACCOFLOW_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SACCOFLOW_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("SACCOFLOW_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SACCOFLOW_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SACCOFLOW_REDIS_WRITE_TIMEOUT", 3*time.Second),
			DetailTTL:    envDuration("SACCOFLOW_REDIS_DETAIL_TTL", 5*time.Minute),

			RateLimitPerMinute: envInt("SACCOFLOW_RATE_LIMIT_PER_MINUTE", 120),
		},
		Kafka: Kafka{
			Brokers: envList("SACCOFLOW_KAFKA_BROKERS"),
		},
		Loan: Loan{
			TermMonths:   envInt("SACCOFLOW_LOAN_TERM_MONTHS", 12),
			InterestRate: envFloat("SACCOFLOW_LOAN_INTEREST_RATE", 0.10),
		},
		Audit: Audit{
			BufferSize: envInt("SACCOFLOW_AUDIT_BUFFER_SIZE", 256),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return strutil.DedupeAndTrim(strings.Split(v, ","))
}
