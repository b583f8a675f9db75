// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"claimsreg/pkg/domain"
)

// Config is the complete server configuration.
type Config struct {
	Server      Server
	Registry    Registry
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Attestation AttestationConfig
	Audit       AuditConfig
	LogLevel    string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Registry struct {
	Owner         domain.Address
	AdminAPIToken string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// AttestationConfig selects issue semantics and the read cache in front of
// the attestation backend. A zero CacheSize disables the cache.
type AttestationConfig struct {
	IssuePolicy   string
	SignerBinding bool
	CacheSize     int
	CacheTTL      time.Duration
}

type AuditConfig struct {
	// Buffer > 0 makes the audit publisher asynchronous.
	Buffer int
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() (Config, error) {
	owner, err := domain.ParseAddress(os.Getenv("REGISTRY_OWNER"))
	if err != nil || owner.IsNil() {
		return Config{}, fmt.Errorf("REGISTRY_OWNER must be a non-null 0x-prefixed address")
	}

	cfg := Config{
		Server: Server{
			Addr:            envOr("CLAIMS_ADDR", ":8080"),
			Environment:     envOr("CLAIMS_ENV", "development"),
			ReadTimeout:     durationOr("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    durationOr("HTTP_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: durationOr("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Registry: Registry{
			Owner:         owner,
			AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),
		},
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: intOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "claimsreg.audit"),
		},
		Attestation: AttestationConfig{
			IssuePolicy:   envOr("ISSUE_POLICY", "reject"),
			SignerBinding: boolOr("SIGNER_BINDING", false),
			CacheSize:     intOr("ATTESTATION_CACHE_SIZE", 10000),
			CacheTTL:      durationOr("ATTESTATION_CACHE_TTL", 30*time.Second),
		},
		Audit:    AuditConfig{Buffer: intOr("AUDIT_BUFFER", 0)},
		LogLevel: envOr("LOG_LEVEL", "info"),
	}
	if cfg.Registry.AdminAPIToken == "" && cfg.Server.Environment != "development" {
		return Config{}, fmt.Errorf("ADMIN_API_TOKEN is required outside development")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func boolOr(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
