package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// RedisConfig contains Redis configuration. The same Redis instance backs the
// record store, the task queue and the task state documents.
type RedisConfig struct {
	// Host keeps the historical REDIS_DB variable name: it is the host, not a DB index.
	Host               string   `env:"DB"                   envDefault:"localhost"`
	Port               int      `env:"PORT"                 envDefault:"6379"`
	URI                string   `env:"URI"                  envDefault:""`
	Password           string   `env:"PASSWORD"             envDefault:""`
	Database           int      `env:"DATABASE"             envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}

// Addr returns host:port for direct connections.
func (r RedisConfig) Addr() string {
	host := strings.TrimSpace(r.Host)
	if host == "" {
		host = "localhost"
	}
	port := r.Port
	if port <= 0 {
		port = 6379
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// DBConfig contains PostgreSQL database configuration.
// Only used when RECORD_STORE_BACKEND=postgres.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"clinic"`
	Password string `env:"PASSWORD"                envDefault:"clinic"`
	Name     string `env:"NAME"                    envDefault:"clinic"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RecordBackend selects where completed appointment records are persisted.
type RecordBackend string

const (
	// RecordBackendRedis stores records as plain keys in Redis.
	RecordBackendRedis RecordBackend = "redis"
	// RecordBackendPostgres stores records in the appointment_records table.
	RecordBackendPostgres RecordBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for RecordBackend.
func (b *RecordBackend) UnmarshalText(text []byte) error {
	v := RecordBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case RecordBackendRedis, RecordBackendPostgres:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid RecordBackend: %q (valid options: redis, postgres)", v)
	}
}

// DefaultRecordKeyPattern selects UUID-shaped keys only, skipping queue bookkeeping keys.
const DefaultRecordKeyPattern = "????????-????-*"

// RecordStoreConfig contains record store configuration.
type RecordStoreConfig struct {
	Backend    RecordBackend `env:"RECORD_STORE_BACKEND" envDefault:"redis"`
	KeyPattern string        `env:"RECORD_KEY_PATTERN"   envDefault:"????????-????-*"`
	// ScanCount is the COUNT hint passed to Redis SCAN.
	ScanCount int64 `env:"RECORD_SCAN_COUNT" envDefault:"100"`
}

// Sanitize applies guardrails to record store configuration values.
func (r *RecordStoreConfig) Sanitize() {
	if r.Backend == "" {
		r.Backend = RecordBackendRedis
	}
	if strings.TrimSpace(r.KeyPattern) == "" {
		r.KeyPattern = DefaultRecordKeyPattern
	}
	if r.ScanCount < 1 {
		r.ScanCount = 100
	}
}

// UsesPostgres reports whether the PostgreSQL backend is selected.
func (r *RecordStoreConfig) UsesPostgres() bool {
	return r.Backend == RecordBackendPostgres
}
