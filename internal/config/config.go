// Package config loads cartsaver settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Oracle providers understood by the server.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Thresholds holds the savings gates and quote acceptance cutoffs used by the
// optimization engine.
type Thresholds struct {
	// PlanMinSavings is the plan-wide gate. A plan is viable only when its
	// total potential savings is strictly greater than this value.
	PlanMinSavings float64

	// ItemMinSavings is the absolute per-item improvement that qualifies a quote.
	ItemMinSavings float64

	// ItemMinSavingsPct is the relative per-item improvement (0.10 = 10%).
	ItemMinSavingsPct float64

	// MinConfidence is the lowest oracle confidence (1-10) a quote may carry.
	MinConfidence int

	// UncertainPenalty is subtracted from the confidence of quotes whose
	// availability is uncertain.
	UncertainPenalty int
}

// DefaultThresholds returns the stock gates: $5.00 per plan, $0.50 or 10% per item.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PlanMinSavings:    5.00,
		ItemMinSavings:    0.50,
		ItemMinSavingsPct: 0.10,
		MinConfidence:     5,
		UncertainPenalty:  2,
	}
}

// Config holds the configuration for the server and CLI.
type Config struct {
	Port     int
	DBPath   string
	LogLevel string

	// JWTSecret enables bearer-token verification when non-empty.
	JWTSecret string

	OracleProvider string
	GeminiAPIKey   string
	GeminiModel    string
	GroqAPIKey     string
	GroqModel      string

	StoreTimeout  time.Duration
	MaxCandidates int
	SessionTTL    time.Duration

	Thresholds Thresholds
}

// NewFromEnv creates a Config from environment variables. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win.
func NewFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg := &Config{
		DBPath:         getEnv("DB_PATH", "./data/cartsaver.db"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		OracleProvider: strings.ToLower(getEnv("ORACLE_PROVIDER", ProviderGemini)),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GroqAPIKey:     os.Getenv("GROQ_API_KEY"),
		GroqModel:      getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		Thresholds:     DefaultThresholds(),
	}

	var err error
	if cfg.Port, err = intEnv("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", 45*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxCandidates, err = intEnv("MAX_CANDIDATES", 5); err != nil {
		return nil, err
	}
	if cfg.Thresholds.MinConfidence, err = intEnv("MIN_CONFIDENCE", cfg.Thresholds.MinConfidence); err != nil {
		return nil, err
	}
	if cfg.Thresholds.PlanMinSavings, err = floatEnv("PLAN_MIN_SAVINGS", cfg.Thresholds.PlanMinSavings); err != nil {
		return nil, err
	}
	if cfg.Thresholds.ItemMinSavings, err = floatEnv("ITEM_MIN_SAVINGS", cfg.Thresholds.ItemMinSavings); err != nil {
		return nil, err
	}
	if cfg.Thresholds.ItemMinSavingsPct, err = floatEnv("ITEM_MIN_SAVINGS_PCT", cfg.Thresholds.ItemMinSavingsPct); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and that the selected oracle provider has a key.
func (c *Config) Validate() error {
	if c.MaxCandidates < 1 {
		return fmt.Errorf("MAX_CANDIDATES must be at least 1, got %d", c.MaxCandidates)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	if c.Thresholds.MinConfidence < 1 || c.Thresholds.MinConfidence > 10 {
		return fmt.Errorf("MIN_CONFIDENCE must be between 1 and 10, got %d", c.Thresholds.MinConfidence)
	}
	if c.Thresholds.PlanMinSavings < 0 || c.Thresholds.ItemMinSavings < 0 || c.Thresholds.ItemMinSavingsPct < 0 {
		return fmt.Errorf("savings thresholds cannot be negative")
	}

	switch c.OracleProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return fmt.Errorf("unknown ORACLE_PROVIDER %q", c.OracleProvider)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
