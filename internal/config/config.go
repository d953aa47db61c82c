package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	// Storage backend: "memory", "file", "redis", or "postgres"
	StoreDriver   string
	StorePath     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DBConn        string

	JWTSecret string

	// Reference rates: optional YAML table and optional XML feed
	RatesFile        string
	RatesFeedURL     string
	RatesRefreshSpec string

	// Fees charged by the ledger, in home currency
	TransferFee   string
	ExchangeFee   string
	WithdrawalFee string

	// SMTP receipts; disabled when SMTPHost is empty
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		StoreDriver:      getEnv("STORE_DRIVER", "file"),
		StorePath:        getEnv("STORE_PATH", "data"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          redisDB,
		DBConn:           getEnv("DB_CONN", "host=localhost port=5432 user=hwanbee password=hwanbee dbname=hwanbee sslmode=disable"),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		RatesFile:        getEnv("RATES_FILE", ""),
		RatesFeedURL:     getEnv("RATES_FEED_URL", ""),
		RatesRefreshSpec: getEnv("RATES_REFRESH_SPEC", "0 * * * *"),
		TransferFee:      getEnv("TRANSFER_FEE", "0"),
		ExchangeFee:      getEnv("EXCHANGE_FEE", "0"),
		WithdrawalFee:    getEnv("WITHDRAWAL_FEE", "0"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SenderEmail:      getEnv("SENDER_EMAIL", "no-reply@hwanbee.bank"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreDriver {
	case "memory", "file", "redis", "postgres":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
