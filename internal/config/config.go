// Package config loads budgetcore settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
)

// Remote drivers.
const (
	RemoteNone     = "none"
	RemoteMemory   = "memory"
	RemotePostgres = "postgres"
	RemoteS3       = "s3"
)

// Config is the resolved runtime configuration.
type Config struct {
	CacheDriver string
	SQLitePath  string

	RemoteDriver string
	PostgresDSN  string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3PathStyle  bool

	JWTSecret  string
	SessionTTL time.Duration

	LogLevel string
	LogFile  string

	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Environment variables read by Load.
//
//	BUDGETCORE_CACHE_DRIVER: memory|sqlite (default sqlite)
//	BUDGETCORE_SQLITE_PATH: sqlite file (default budgetcore.db)
//	BUDGETCORE_REMOTE_DRIVER: none|memory|postgres|s3 (default none)
//	BUDGETCORE_POSTGRES_DSN: DSN when remote driver=postgres
//	BUDGETCORE_S3_BUCKET / _REGION / _ENDPOINT / _PATH_STYLE: when remote driver=s3
//	BUDGETCORE_JWT_SECRET: session signing secret (required for sign-in)
//	BUDGETCORE_SESSION_TTL: session lifetime, Go duration (default 24h)
//	BUDGETCORE_LOG_LEVEL: debug|info|warn|error (default info)
//	BUDGETCORE_LOG_FILE: rotate logs into this file instead of stderr
//	BUDGETCORE_BREAKER_FAILURES: consecutive remote failures before the circuit opens (default 3)
//	BUDGETCORE_BREAKER_TIMEOUT: open-circuit cool-down, Go duration (default 5s)

// Load reads envFile (if it exists) without overriding variables already set,
// then resolves the configuration from the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg := Config{
		CacheDriver:  strings.ToLower(getenv("BUDGETCORE_CACHE_DRIVER", CacheSQLite)),
		SQLitePath:   getenv("BUDGETCORE_SQLITE_PATH", "budgetcore.db"),
		RemoteDriver: strings.ToLower(getenv("BUDGETCORE_REMOTE_DRIVER", RemoteNone)),
		PostgresDSN:  os.Getenv("BUDGETCORE_POSTGRES_DSN"),
		S3Bucket:     os.Getenv("BUDGETCORE_S3_BUCKET"),
		S3Region:     os.Getenv("BUDGETCORE_S3_REGION"),
		S3Endpoint:   os.Getenv("BUDGETCORE_S3_ENDPOINT"),
		S3PathStyle:  strings.EqualFold(os.Getenv("BUDGETCORE_S3_PATH_STYLE"), "true"),
		JWTSecret:    os.Getenv("BUDGETCORE_JWT_SECRET"),
		LogLevel:     getenv("BUDGETCORE_LOG_LEVEL", "info"),
		LogFile:      os.Getenv("BUDGETCORE_LOG_FILE"),
	}
	var err error
	if cfg.SessionTTL, err = durationEnv("BUDGETCORE_SESSION_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.BreakerTimeout, err = durationEnv("BUDGETCORE_BREAKER_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	failures, err := strconv.ParseUint(getenv("BUDGETCORE_BREAKER_FAILURES", "3"), 10, 32)
	if err != nil {
		return Config{}, fmt.Errorf("parse BUDGETCORE_BREAKER_FAILURES: %w", err)
	}
	cfg.BreakerFailures = uint32(failures)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver names and driver-specific requirements.
func (c Config) Validate() error {
	switch c.CacheDriver {
	case CacheMemory, CacheSQLite:
	default:
		return fmt.Errorf("unknown cache driver %s", c.CacheDriver)
	}
	switch c.RemoteDriver {
	case RemoteNone, RemoteMemory, RemotePostgres:
	case RemoteS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("BUDGETCORE_S3_BUCKET required for s3 remote driver")
		}
	default:
		return fmt.Errorf("unknown remote driver %s", c.RemoteDriver)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
