package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Persistence backend: "memory" or "sqlite".
	DataBackend  string
	SQLiteDBPath string

	// Table defaults.
	PageSize int

	// Amount-range thresholds. Unit-agnostic: the display currency never
	// changes them.
	AmountLow  decimal.Decimal
	AmountHigh decimal.Decimal

	// Query result cache.
	CacheSize int
	CacheTTL  time.Duration

	// Demo seed for an empty store; 0 disables it.
	SeedDemo int

	LogLevel string
}

func Load() *Config {
	return &Config{
		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spendlog.db"),

		PageSize: getEnvInt("PAGE_SIZE", 10),

		AmountLow:  getEnvDecimal("AMOUNT_LOW", decimal.NewFromInt(50)),
		AmountHigh: getEnvDecimal("AMOUNT_HIGH", decimal.NewFromInt(200)),

		CacheSize: getEnvInt("CACHE_SIZE", 64),
		CacheTTL:  getEnvDuration("CACHE_TTL", time.Minute),

		SeedDemo: getEnvInt("SEED_DEMO", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate returns every configuration problem at once.
func (c *Config) Validate() error {
	var errs []string

	switch c.DataBackend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend %q: must be memory or sqlite", c.DataBackend))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory %q: %v", dir, err))
				}
			}
		}
	}

	if c.PageSize < 1 || c.PageSize > 500 {
		errs = append(errs, fmt.Sprintf("invalid page size %d: must be between 1 and 500", c.PageSize))
	}

	if c.AmountLow.IsNegative() {
		errs = append(errs, fmt.Sprintf("invalid low amount threshold %s: must not be negative", c.AmountLow))
	}
	if c.AmountHigh.LessThanOrEqual(c.AmountLow) {
		errs = append(errs, fmt.Sprintf("invalid amount thresholds %s/%s: high must exceed low", c.AmountLow, c.AmountHigh))
	}

	if c.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	if c.SeedDemo < 0 {
		errs = append(errs, fmt.Sprintf("invalid demo seed count %d: must not be negative", c.SeedDemo))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
