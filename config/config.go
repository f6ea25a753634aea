package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"binaryTradeBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Settlement Authority
	AuthorityBaseURL string
	AuthorityAPIKey  string
	UserID           string
	PushURL          string // WebSocket endpoint for the settlement event channel

	// Price Feed (Binance market data; keys optional for public streams)
	BinanceAPIKey    string
	BinanceSecretKey string
	IsTestnet        bool

	// Trading Parameters
	Symbol string

	// Reconciliation Engine
	DetectorInterval    time.Duration // Expiry detector tick
	PollInterval        time.Duration // Poll reconciler tick
	FallbackVerifyDelay time.Duration // Delay before the submitter's fallback verification
	FetchTimeout        time.Duration // Bound on authoritative fetch-by-id
	DisplayTTL          time.Duration // Auto-dismiss timer for the notification sink
	PriceGraceWindow    time.Duration // How long settlement may wait for a live price past expiry
	SubmitRetryAttempts int           // Completion submission attempts before giving up

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel

	// Connection Settings (push stream and price feed)
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string // Collect validation errors

	// Settlement Authority
	cfg.AuthorityBaseURL = getEnv("AUTHORITY_BASE_URL", "")
	if cfg.AuthorityBaseURL == "" {
		errs = append(errs, "AUTHORITY_BASE_URL must be set")
	}
	cfg.AuthorityAPIKey = getEnv("AUTHORITY_API_KEY", "")
	cfg.UserID = getEnv("USER_ID", "")
	if cfg.UserID == "" {
		errs = append(errs, "USER_ID must be set")
	}
	cfg.PushURL = getEnv("PUSH_WS_URL", "")
	if cfg.PushURL == "" {
		errs = append(errs, "PUSH_WS_URL must be set")
	}

	// Price Feed
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	// Trading Parameters
	cfg.Symbol = getEnv("SYMBOL", "BTCUSDT")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	// Reconciliation Engine
	cfg.DetectorInterval = getEnvAsDuration("DETECTOR_INTERVAL_MS", time.Second, &errs)
	cfg.PollInterval = getEnvAsDuration("POLL_INTERVAL_MS", 2*time.Second, &errs)
	cfg.FallbackVerifyDelay = getEnvAsDuration("FALLBACK_VERIFY_DELAY_MS", 2*time.Second, &errs)
	cfg.FetchTimeout = getEnvAsDuration("FETCH_TIMEOUT_MS", 5*time.Second, &errs)
	cfg.DisplayTTL = getEnvAsDuration("DISPLAY_TTL_MS", 25*time.Second, &errs)
	cfg.PriceGraceWindow = getEnvAsDuration("PRICE_GRACE_WINDOW_MS", 10*time.Second, &errs)

	cfg.SubmitRetryAttempts = getEnvAsInt("SUBMIT_RETRY_ATTEMPTS", 3)
	if cfg.SubmitRetryAttempts <= 0 {
		errs = append(errs, "SUBMIT_RETRY_ATTEMPTS must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trade_client.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	// Connection Settings
	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 1)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
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

func getEnvAsBool(key string, defaultValue bool) bool {
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

// getEnvAsDuration reads a millisecond-valued env var. Invalid or
// non-positive values are recorded as validation errors.
func getEnvAsDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	ms, err := strconv.Atoi(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid integer value '%s' for key %s", valueStr, key))
		return defaultValue
	}
	if ms <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be positive", key))
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
