package config

import (
	"fmt"
	"os"
	"time"
)

// Code generation modes. Secure is the default; positional is the legacy
// dense encoding whose codes reveal creation order.
const (
	ModeSecure     = "secure"
	ModePositional = "positional"
)

type Config struct {
	Env           string
	Addr          string
	DatabaseDSN   string
	RedisAddr     string // empty disables cache and click stream
	AdminToken    string
	CodeMode      string
	CodeSecret    string
	CacheTTL      time.Duration
	FlushInterval time.Duration
}

// Load reads configuration from the environment. Only DATABASE_DSN is
// required; in secure mode CODE_SECRET is too, since every code generated
// with the key must stay reproducible for the deployment's lifetime.
func Load() (*Config, error) {
	cfg := &Config{
		Env:           getenv("ENV", "development"),
		Addr:          getenv("ADDR", ":8080"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		CodeMode:      getenv("CODE_MODE", ModeSecure),
		CodeSecret:    os.Getenv("CODE_SECRET"),
		CacheTTL:      getduration("CACHE_TTL", 24*time.Hour),
		FlushInterval: getduration("FLUSH_INTERVAL", 30*time.Second),
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN not set")
	}
	switch cfg.CodeMode {
	case ModeSecure:
		if cfg.CodeSecret == "" {
			return nil, fmt.Errorf("CODE_SECRET required in secure mode")
		}
	case ModePositional:
	default:
		return nil, fmt.Errorf("unknown CODE_MODE %q", cfg.CodeMode)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
