// Package config builds runtime configuration from environment variables so
// main stays lean. Defaults match the documented engine behavior; every knob
// can be overridden with a CONCLAVE_* variable.
package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// Redis captures cache backend configuration. An empty URL means the Redis
// store is not configured and the engine falls back to the in-memory cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Engine holds the consensus engine knobs.
type Engine struct {
	// Dispatch
	Concurrency   int
	CallTimeout   time.Duration
	MaxRetries    int
	MinResponders int

	// Aggregation tier thresholds, as fractions of parseable records.
	PrimaryThreshold     float64
	AlternativeThreshold float64

	// Cache
	CacheTTL time.Duration

	// Synthesis
	FacetBudget int

	// Outbound responder endpoint
	GatewayURL   string
	GatewayKey   string
	SynthesisRef string // responder id used for facet synthesis calls

	// Optional catalogue / synonym overlays
	CataloguePath string
	SynonymsPath  string
}

// Config is the full application configuration.
type Config struct {
	Server Server
	Redis  Redis
	Engine Engine
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: envStr("CONCLAVE_ADDR", ":8080"),
		},
		Redis: Redis{
			URL:          os.Getenv("CONCLAVE_REDIS_URL"),
			PoolSize:     envInt("CONCLAVE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CONCLAVE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("CONCLAVE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CONCLAVE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CONCLAVE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Engine: Engine{
			Concurrency:          envInt("CONCLAVE_CONCURRENCY", 10),
			CallTimeout:          envDuration("CONCLAVE_CALL_TIMEOUT", 60*time.Second),
			MaxRetries:           envInt("CONCLAVE_MAX_RETRIES", 2),
			MinResponders:        envInt("CONCLAVE_MIN_RESPONDERS", 3),
			PrimaryThreshold:     envFloat("CONCLAVE_PRIMARY_THRESHOLD", 0.30),
			AlternativeThreshold: envFloat("CONCLAVE_ALTERNATIVE_THRESHOLD", 0.10),
			CacheTTL:             envDuration("CONCLAVE_CACHE_TTL", 24*time.Hour),
			FacetBudget:          envInt("CONCLAVE_FACET_BUDGET", 8192),
			GatewayURL:           envStr("CONCLAVE_GATEWAY_URL", "https://openrouter.ai/api/v1"),
			GatewayKey:           os.Getenv("CONCLAVE_GATEWAY_KEY"),
			SynthesisRef:         envStr("CONCLAVE_SYNTHESIS_RESPONDER", "anthropic/claude-sonnet"),
			CataloguePath:        os.Getenv("CONCLAVE_CATALOGUE_PATH"),
			SynonymsPath:         os.Getenv("CONCLAVE_SYNONYMS_PATH"),
		},
	}
}

func envStr(key, fallback string) string {
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
