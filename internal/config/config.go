package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the whole application configuration, populated from environment variables
type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Currency CurrencyConfig
	Checkout CheckoutConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	LogLevel    string
}

// StorageConfig selects where rules, promotions and the catalog live
type StorageConfig struct {
	Driver  string // postgres | json
	DataDir string // json driver only
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Password     string
	DB           int
	KeyPrefix    string
	RuleCacheTTL time.Duration
}

// JWTConfig: Secret is shared with the customer account service, which issues
// the customer tokens /checkout/finalize requires. Only admin tokens are issued here.
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry int // minutes
}

// AdminConfig is the single back-office account. PasswordHash is a bcrypt hash.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

// CurrencyConfig: fixed conversion rates relative to Base
type CurrencyConfig struct {
	Base     string
	Rates    map[string]decimal.Decimal
	CacheTTL time.Duration
}

type CheckoutConfig struct {
	ShippingFee         decimal.Decimal
	MaxFinalizeAttempts int
}

type JobsConfig struct {
	ExpirySweepCron string
	Concurrency     int
	HealthPort      string
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverJSON     = "json"

	defaultJWTSecret = "change-me-in-production"
)

// Load reads the configuration from the environment
func Load() (*Config, error) {
	base := strings.ToUpper(getEnv("CURRENCY_BASE", "EUR"))
	rates, err := ParseRates(getEnv("CURRENCY_RATES", base+":1"))
	if err != nil {
		return nil, fmt.Errorf("invalid CURRENCY_RATES: %w", err)
	}

	shippingFee, err := decimal.NewFromString(getEnv("CHECKOUT_SHIPPING_FEE", "4.90"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_SHIPPING_FEE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "ShopCMS API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver:  strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", true),
			Host:         getEnv("REDIS_HOST", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "shopcms:"),
			RuleCacheTTL: getEnvDuration("RULE_CACHE_TTL", time.Minute),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", defaultJWTSecret),
			AccessTokenExpiry: getEnvInt("JWT_ACCESS_EXPIRY", 60),
		},
		Admin: AdminConfig{
			Email:        getEnv("ADMIN_EMAIL", "admin@shopcms.local"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Currency: CurrencyConfig{
			Base:     base,
			Rates:    rates,
			CacheTTL: getEnvDuration("CURRENCY_CACHE_TTL", time.Hour),
		},
		Checkout: CheckoutConfig{
			ShippingFee:         shippingFee,
			MaxFinalizeAttempts: getEnvInt("CHECKOUT_MAX_FINALIZE_ATTEMPTS", 5),
		},
		Jobs: JobsConfig{
			ExpirySweepCron: getEnv("JOB_EXPIRY_SWEEP_CRON", "*/10 * * * *"),
			Concurrency:     getEnvInt("WORKER_CONCURRENCY", 5),
			HealthPort:      getEnv("WORKER_HEALTH_PORT", "9999"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects inconsistent or insecure settings
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverJSON:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageDriverPostgres, StorageDriverJSON, c.Storage.Driver)
	}

	if _, ok := c.Currency.Rates[c.Currency.Base]; !ok {
		return fmt.Errorf("CURRENCY_RATES must contain the base currency %s", c.Currency.Base)
	}

	if c.Checkout.MaxFinalizeAttempts < 1 {
		return fmt.Errorf("CHECKOUT_MAX_FINALIZE_ATTEMPTS must be at least 1")
	}

	if c.App.Environment == "production" {
		if c.JWT.Secret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Admin.PasswordHash == "" {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be set in production")
		}
	}

	return nil
}

// ParseRates parses "EUR:1,USD:1.08" into a currency -> rate map
func ParseRates(raw string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("expected CODE:RATE, got %q", pair)
		}

		code := strings.ToUpper(strings.TrimSpace(parts[0]))
		if len(code) != 3 {
			return nil, fmt.Errorf("currency code %q must have 3 letters", code)
		}

		rate, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", code)
		}

		rates[code] = rate
	}

	if len(rates) == 0 {
		return nil, fmt.Errorf("no rates configured")
	}
	return rates, nil
}

// SupportedCurrencies returns the configured currency codes, sorted
func (c CurrencyConfig) SupportedCurrencies() []string {
	codes := make([]string, 0, len(c.Rates))
	for code := range c.Rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
