package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Tax    TaxConfig
	Number NumberConfig
}

// TaxConfig carries the configured levy/VAT defaults. Callers pass these into
// the tax engine explicitly; there is no process-wide settings cache.
type TaxConfig struct {
	ApplyPPDALevy      bool
	PPDALevyPercentage string
	VATPercentage      string
}

// NumberConfig controls document number formatting.
type NumberConfig struct {
	InvoicePrefix   string
	QuotationPrefix string
	Separator       string
	SequenceWidth   int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "tradebooks"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "tradebooks"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),

		Tax: TaxConfig{
			ApplyPPDALevy:      getenvBool("TAX_APPLY_PPDA_LEVY", true),
			PPDALevyPercentage: getenv("TAX_PPDA_LEVY_PERCENTAGE", "1.0"),
			VATPercentage:      getenv("TAX_VAT_PERCENTAGE", "16.5"),
		},
		Number: NumberConfig{
			InvoicePrefix:   getenv("NUMBER_INVOICE_PREFIX", "I-"),
			QuotationPrefix: getenv("NUMBER_QUOTATION_PREFIX", "Q-"),
			Separator:       getenv("NUMBER_SEPARATOR", "-"),
			SequenceWidth:   getenvInt("NUMBER_SEQUENCE_WIDTH", 3),
		},
	}

	return cfg
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("config: invalid integer for %s: %q", key, raw)
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("config: invalid boolean for %s: %q", key, raw)
		return fallback
	}
	return value
}
