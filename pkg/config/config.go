// Package config loads the process-level configuration surface from the
// environment (§6): dispatcher tuning, the HTTP introspection server, and
// the optional audit database, the same way the teacher's
// pkg/database.LoadConfigFromEnv does it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jdibridge/bridge/pkg/jdiarg"
)

// AuditDB holds the audit sink's PostgreSQL connection settings. Zero value
// is only meaningful when Enabled is false.
type AuditDB struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Config is the engine's full process configuration.
type Config struct {
	DispatchBufferSize   int
	ReconcileInterval    time.Duration
	DefaultSuspendPolicy jdiarg.SuspendPolicy

	HTTPPort string
	HTTPMode string // GIN_MODE: debug, release, test

	Audit AuditDB
}

// LoadFromEnv loads Config from the environment, applying the defaults
// named in §6 and validating the result.
func LoadFromEnv() (Config, error) {
	reconcileInterval, err := time.ParseDuration(getEnvOrDefault("BRIDGE_RECONCILE_INTERVAL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid BRIDGE_RECONCILE_INTERVAL: %w", err)
	}

	bufSize, err := strconv.Atoi(getEnvOrDefault("BRIDGE_DISPATCH_BUFFER_SIZE", "256"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid BRIDGE_DISPATCH_BUFFER_SIZE: %w", err)
	}

	policy, err := jdiarg.ParseSuspendPolicy(getEnvOrDefault("BRIDGE_DEFAULT_SUSPEND_POLICY", "event_thread"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid BRIDGE_DEFAULT_SUSPEND_POLICY: %w", err)
	}

	auditEnabled, err := strconv.ParseBool(getEnvOrDefault("AUDIT_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid AUDIT_ENABLED: %w", err)
	}

	audit, err := loadAuditDBFromEnv(auditEnabled)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DispatchBufferSize:   bufSize,
		ReconcileInterval:    reconcileInterval,
		DefaultSuspendPolicy: policy,
		HTTPPort:             getEnvOrDefault("BRIDGE_HTTP_PORT", "8080"),
		HTTPMode:             getEnvOrDefault("GIN_MODE", getEnvOrDefault("BRIDGE_HTTP_MODE", "release")),
		Audit:                audit,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadAuditDBFromEnv(enabled bool) (AuditDB, error) {
	if !enabled {
		return AuditDB{Enabled: false}, nil
	}

	port, err := strconv.Atoi(getEnvOrDefault("AUDIT_DB_PORT", "5432"))
	if err != nil {
		return AuditDB{}, fmt.Errorf("invalid AUDIT_DB_PORT: %w", err)
	}
	maxOpen, err := strconv.Atoi(getEnvOrDefault("AUDIT_DB_MAX_OPEN_CONNS", "10"))
	if err != nil {
		return AuditDB{}, fmt.Errorf("invalid AUDIT_DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := strconv.Atoi(getEnvOrDefault("AUDIT_DB_MAX_IDLE_CONNS", "5"))
	if err != nil {
		return AuditDB{}, fmt.Errorf("invalid AUDIT_DB_MAX_IDLE_CONNS: %w", err)
	}
	maxLifetime, err := time.ParseDuration(getEnvOrDefault("AUDIT_DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return AuditDB{}, fmt.Errorf("invalid AUDIT_DB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("AUDIT_DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return AuditDB{}, fmt.Errorf("invalid AUDIT_DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := AuditDB{
		Enabled:         true,
		Host:            getEnvOrDefault("AUDIT_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("AUDIT_DB_USER", "jdibridge"),
		Password:        os.Getenv("AUDIT_DB_PASSWORD"),
		Name:            getEnvOrDefault("AUDIT_DB_NAME", "jdibridge"),
		SSLMode:         getEnvOrDefault("AUDIT_DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
		ConnMaxIdleTime: maxIdleTime,
	}
	if err := cfg.validate(); err != nil {
		return AuditDB{}, err
	}
	return cfg, nil
}

// Validate checks invariants across the whole configuration.
func (c Config) Validate() error {
	if c.DispatchBufferSize < 1 {
		return fmt.Errorf("%w: BRIDGE_DISPATCH_BUFFER_SIZE must be at least 1", ErrInvalidValue)
	}
	if c.ReconcileInterval < 0 {
		return fmt.Errorf("%w: BRIDGE_RECONCILE_INTERVAL cannot be negative", ErrInvalidValue)
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("%w: BRIDGE_HTTP_PORT", ErrMissingRequiredField)
	}
	return nil
}

func (c AuditDB) validate() error {
	if c.Password == "" {
		return fmt.Errorf("%w: AUDIT_DB_PASSWORD (required when AUDIT_ENABLED=true)", ErrMissingRequiredField)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("%w: AUDIT_DB_MAX_IDLE_CONNS (%d) cannot exceed AUDIT_DB_MAX_OPEN_CONNS (%d)",
			ErrInvalidValue, c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("%w: AUDIT_DB_MAX_OPEN_CONNS must be at least 1", ErrInvalidValue)
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
