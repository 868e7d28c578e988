package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean and deployments stay twelve-factor.
type Config struct {
	Addr            string
	PostgresDSN     string
	LedgerPath      string
	JWTSigningKey   string
	RedisURL        string
	KafkaBrokers    []string
	CentralBankName string
	StockCacheTTL   time.Duration
}

// CentralBankDefaultName is the well-known name that designates the
// first-choice allocation source when HEMOBANK_CENTRAL_BANK is unset.
const CentralBankDefaultName = "Central Blood Bank"

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("HEMOBANK_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("HEMOBANK_POSTGRES_DSN"),
		LedgerPath:      envOr("HEMOBANK_LEDGER_PATH", "data/blood-bookings.json"),
		JWTSigningKey:   os.Getenv("HEMOBANK_JWT_SIGNING_KEY"),
		RedisURL:        os.Getenv("HEMOBANK_REDIS_URL"),
		CentralBankName: envOr("HEMOBANK_CENTRAL_BANK", CentralBankDefaultName),
		StockCacheTTL:   30 * time.Second,
	}
	if cfg.JWTSigningKey == "" {
		// Development fallback; override in any real deployment.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if brokers := os.Getenv("HEMOBANK_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if ttl := os.Getenv("HEMOBANK_STOCK_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			cfg.StockCacheTTL = d
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
