package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// AppConfig holds all configuration for the pipeline.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core paths
	XMLInputPath      string
	JSONOutputPath    string
	DatabasePath      string
	DeadLetterPath    string
	CategoryRulesPath string
	LogLevel          string

	// Normalization settings
	DefaultCountryPrefix string
	MinTransactionAmount decimal.Decimal
	MaxTransactionAmount decimal.Decimal
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from a subdir)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	}

	prefix := getEnv("DEFAULT_COUNTRY_PREFIX", "+250")
	if !strings.HasPrefix(prefix, "+") {
		prefix = "+" + prefix
	}

	Cfg = &AppConfig{
		XMLInputPath:      getEnv("XML_INPUT_PATH", "data/raw/momo.xml"),
		JSONOutputPath:    getEnv("JSON_OUTPUT_PATH", "data/processed/dashboard.json"),
		DatabasePath:      getEnv("DATABASE_PATH", "data/momo.db"),
		DeadLetterPath:    getEnv("DEAD_LETTER_PATH", "data/dead_letter"),
		CategoryRulesPath: getEnv("CATEGORY_RULES_PATH", "config/category_rules.yaml"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),

		DefaultCountryPrefix: prefix,
		MinTransactionAmount: getEnvAsDecimal("MIN_TRANSACTION_AMOUNT", "0.01"),
		MaxTransactionAmount: getEnvAsDecimal("MAX_TRANSACTION_AMOUNT", "1000000"),
	}

	log.Printf("Configuration loaded: Input=%s, Output=%s, DBPath=%s, LogLevel=%s",
		Cfg.XMLInputPath, Cfg.JSONOutputPath, Cfg.DatabasePath, Cfg.LogLevel)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsDecimal retrieves an environment variable as a decimal or returns a fallback.
func getEnvAsDecimal(key, fallback string) decimal.Decimal {
	valueStr := getEnv(key, fallback)
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		log.Printf("Invalid decimal value for %s ('%s'), using default: %s", key, valueStr, fallback)
		value, _ = decimal.NewFromString(fallback)
	}
	return value
}
