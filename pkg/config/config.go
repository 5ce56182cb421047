// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Wallet   WalletConfig
	Ledger   LedgerConfig
	History  HistoryConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// WalletConfig points at the external user wallet service.
type WalletConfig struct {
	WithdrawURL string
	Timeout     time.Duration
}

// LedgerConfig holds the money rules of the platform.
type LedgerConfig struct {
	// Commission rates per operation kind, e.g. 0.03 for 3%.
	WithdrawalCommissionRate decimal.Decimal
	TransferCommissionRate   decimal.Decimal
	DepositCommissionRate    decimal.Decimal

	// MaxTransactionAmount bounds the gross amount of a single operation.
	MaxTransactionAmount decimal.Decimal
	// MaxAgentBalance is the float ceiling; mutations that would breach it
	// are rejected, not clamped.
	MaxAgentBalance decimal.Decimal
	// MinOperatingBalance is the floor below which transfers are blocked
	// outright, independent of the transfer amount.
	MinOperatingBalance decimal.Decimal

	// PendingReconcileAge is how old a pending entry must be before the
	// reconciliation job flags it.
	PendingReconcileAge time.Duration
}

type HistoryConfig struct {
	GrowthCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "localhost:6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Wallet: WalletConfig{
			WithdrawURL: getEnv("USER_WALLET_WITHDRAW_URL", "http://localhost:9000/api/v1/withdraw"),
			Timeout:     getDurationEnv("USER_WALLET_TIMEOUT", 10*time.Second),
		},
		Ledger: LedgerConfig{
			WithdrawalCommissionRate: getDecimalEnv("COMMISSION_RATE_WITHDRAWAL", "0.03"),
			TransferCommissionRate:   getDecimalEnv("COMMISSION_RATE_TRANSFER", "0.02"),
			DepositCommissionRate:    getDecimalEnv("COMMISSION_RATE_DEPOSIT", "0"),
			MaxTransactionAmount:     getDecimalEnv("MAX_TRANSACTION_AMOUNT", "10000.00"),
			MaxAgentBalance:          getDecimalEnv("MAX_AGENT_BALANCE", "100000.00"),
			MinOperatingBalance:      getDecimalEnv("MIN_OPERATING_BALANCE", "10.00"),
			PendingReconcileAge:      getDurationEnv("PENDING_RECONCILE_AGE", 24*time.Hour),
		},
		History: HistoryConfig{
			GrowthCacheTTL: getDurationEnv("GROWTH_CACHE_TTL", 5*time.Minute),
		},
	}
}

// ValidateCore rejects configurations the ledger cannot run with.
func (c *Config) ValidateCore() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Ledger.MaxAgentBalance.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("MAX_AGENT_BALANCE must be positive")
	}
	if c.Ledger.MaxTransactionAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("MAX_TRANSACTION_AMOUNT must be positive")
	}
	for _, rate := range []decimal.Decimal{
		c.Ledger.WithdrawalCommissionRate,
		c.Ledger.TransferCommissionRate,
		c.Ledger.DepositCommissionRate,
	} {
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("commission rates must be in [0, 1), got %s", rate)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getDecimalEnv(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(defaultValue)
	return d
}
