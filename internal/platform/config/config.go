package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	Environment   string
	LogLevel      slog.Level
	JWTSigningKey string
	TokenTTL      time.Duration
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	Ledger   LedgerConfig
	CrossTab CrossTabConfig
	Workflow WorkflowConfig
	Activity ActivityConfig
	RateLimit RateLimitConfig
}

// RedisConfig configures the shared redis client. An empty URL selects in-memory stores.
type RedisConfig struct {
	URL          string
	Namespace    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the activity fan-out. Empty brokers disable it.
type KafkaConfig struct {
	Brokers       string
	ActivityTopic string
}

type LedgerConfig struct {
	Window          time.Duration
	MaxFailures     int
	LockoutDuration time.Duration
	CleanupInterval time.Duration
}

type CrossTabConfig struct {
	FlagTTL           time.Duration
	HeartbeatInterval time.Duration
}

type WorkflowConfig struct {
	GuardTTL  time.Duration
	TxTimeout time.Duration
}

// RateLimitConfig sets per-client request allowances for sign-in and writes.
type RateLimitConfig struct {
	AuthRequests  int
	WriteRequests int
	Window        time.Duration
}

type ActivityConfig struct {
	Retention     time.Duration
	PurgeInterval time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Unparseable values fall back to defaults.
func FromEnv() Server {
	return Server{
		Addr:           envString("LOSTFOUND_ADDR", ":8080"),
		Environment:    envString("LOSTFOUND_ENV", "development"),
		LogLevel:       envLevel("LOG_LEVEL", slog.LevelInfo),
		JWTSigningKey:  envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:       envDuration("TOKEN_TTL", time.Hour),
		TrustedProxies: envList("TRUSTED_PROXIES"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			Namespace:    envString("REDIS_NAMESPACE", "lostfound"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       os.Getenv("KAFKA_BROKERS"),
			ActivityTopic: envString("KAFKA_ACTIVITY_TOPIC", "lostfound.activity"),
		},
		Ledger: LedgerConfig{
			Window:          envDuration("LOGIN_WINDOW", 5*time.Minute),
			MaxFailures:     envInt("LOGIN_MAX_FAILURES", 5),
			LockoutDuration: envDuration("LOGIN_LOCKOUT", 5*time.Minute),
			CleanupInterval: envDuration("LOGIN_CLEANUP_INTERVAL", time.Minute),
		},
		CrossTab: CrossTabConfig{
			FlagTTL:           envDuration("AUTH_FLOW_FLAG_TTL", 10*time.Minute),
			HeartbeatInterval: envDuration("AUTH_FLOW_HEARTBEAT", time.Minute),
		},
		Workflow: WorkflowConfig{
			GuardTTL:  envDuration("WORKFLOW_GUARD_TTL", 30*time.Second),
			TxTimeout: envDuration("WORKFLOW_TX_TIMEOUT", 5*time.Second),
		},
		Activity: ActivityConfig{
			Retention:     envDuration("ACTIVITY_RETENTION", 365*24*time.Hour),
			PurgeInterval: envDuration("ACTIVITY_PURGE_INTERVAL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			AuthRequests:  envInt("RATELIMIT_AUTH_REQUESTS", 20),
			WriteRequests: envInt("RATELIMIT_WRITE_REQUESTS", 30),
			Window:        envDuration("RATELIMIT_WINDOW", time.Minute),
		},
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envLevel(key string, def slog.Level) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(os.Getenv(key))); err != nil {
		return def
	}
	return lvl
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
