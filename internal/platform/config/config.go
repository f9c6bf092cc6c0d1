package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "topcharger/pkg/platform/strings"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	MetricsAddr string

	StoreBackend string
	Redis        RedisConfig
	DatabaseURL  string

	JWTSigningKey string
	JWTIssuer     string

	// MatchAutoRelease returns a charger to Available when its match is
	// confirmed.
	MatchAutoRelease bool
	DelegationsFile  string

	AuditBrokers []string
	AuditTopic   string

	// WriteRateLimit caps write requests per caller within WriteRateWindow.
	// Zero disables the limit.
	WriteRateLimit  int
	WriteRateWindow time.Duration

	// TrustProxy honours X-Forwarded-For when keying anonymous callers.
	TrustProxy bool

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig configures the go-redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:             fallback(os.Getenv("TOPCHARGER_ADDR"), ":8080"),
		MetricsAddr:      fallback(os.Getenv("METRICS_ADDR"), ":9090"),
		StoreBackend:     strings.ToLower(fallback(os.Getenv("STORE_BACKEND"), BackendMemory)),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSigningKey:    fallback(os.Getenv("JWT_SIGNING_KEY"), devSigningKey),
		JWTIssuer:        fallback(os.Getenv("JWT_ISSUER"), "topcharger"),
		MatchAutoRelease: boolEnv("MATCH_AUTO_RELEASE", true),
		DelegationsFile:  strings.TrimSpace(os.Getenv("AUTHORITY_DELEGATIONS_FILE")),
		AuditBrokers:     parseCSV(os.Getenv("AUDIT_BROKERS")),
		AuditTopic:       fallback(os.Getenv("AUDIT_TOPIC"), "topcharger.audit"),
		WriteRateLimit:   limitEnv("WRITE_RATE_LIMIT", 60),
		WriteRateWindow:  durationEnv("WRITE_RATE_WINDOW", time.Minute),
		TrustProxy:       boolEnv("TRUST_PROXY", false),
		RequestTimeout:   durationEnv("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout:  durationEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
		Redis: RedisConfig{
			URL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
			PoolSize:     intEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}

	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Redis.URL == "" {
			return Server{}, fmt.Errorf("REDIS_URL is required for the %s backend", BackendRedis)
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Server{}, fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	default:
		return Server{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// UsesDevSigningKey reports whether JWT_SIGNING_KEY was left unset.
func (s Server) UsesDevSigningKey() bool {
	return s.JWTSigningKey == devSigningKey
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func boolEnv(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func intEnv(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// limitEnv is intEnv where an explicit zero or negative value means "off".
func limitEnv(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return max(v, 0)
}

func durationEnv(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func parseCSV(raw string) []string {
	return platformstrings.SplitList(raw)
}
