package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "Paytos"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultRPCURL         = "https://sepolia.gateway.tenderly.co"
	defaultChainID        = 11155111
	defaultConfirmTTL     = 5 * time.Minute
	defaultReceiptTimeout = 2 * time.Minute
	defaultDedupeTTL      = 24 * time.Hour
	defaultHermesURL      = "https://hermes.pyth.network"
	defaultPYUSDDecimals  = 6

	defaultETHUSDFeedID = "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	RPCURL        string
	ChainID       int64
	EncryptionKey string
	PYUSDAddress  string
	PYUSDDecimals int32

	ConfirmTTL     time.Duration
	ReceiptTimeout time.Duration
	DedupeTTL      time.Duration
	ShutdownPeriod time.Duration

	HermesURL    string
	PriceFeedIDs map[string]string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RPCURL:         getEnv("ETH_RPC_URL", defaultRPCURL),
		ChainID:        defaultChainID,
		EncryptionKey:  os.Getenv("ENCRYPTION_KEY"),
		PYUSDAddress:   os.Getenv("PYUSD_ADDRESS"),
		PYUSDDecimals:  defaultPYUSDDecimals,
		ConfirmTTL:     defaultConfirmTTL,
		ReceiptTimeout: defaultReceiptTimeout,
		DedupeTTL:      defaultDedupeTTL,
		ShutdownPeriod: defaultShutdownDelay,
		HermesURL:      getEnv("PYTH_HERMES_HTTP", defaultHermesURL),
		PriceFeedIDs:   map[string]string{"ETHUSD": defaultETHUSDFeedID},
	}

	if v := os.Getenv("ETH_CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ETH_CHAIN_ID: %w", err)
		}
		cfg.ChainID = id
	}

	if v := os.Getenv("PYUSD_DECIMALS"); v != "" {
		d, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PYUSD_DECIMALS: %w", err)
		}
		cfg.PYUSDDecimals = int32(d)
	}

	var err error
	if cfg.ConfirmTTL, err = durationEnv("CONFIRMATION_TTL", cfg.ConfirmTTL); err != nil {
		return Config{}, err
	}
	if cfg.ReceiptTimeout, err = durationEnv("RECEIPT_TIMEOUT", cfg.ReceiptTimeout); err != nil {
		return Config{}, err
	}
	if cfg.DedupeTTL, err = durationEnv("SMS_DEDUPE_TTL", cfg.DedupeTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("PYTH_ETHUSD_ID"); v != "" {
		cfg.PriceFeedIDs["ETHUSD"] = v
	}
	if v := os.Getenv("PYTH_BTCUSD_ID"); v != "" {
		cfg.PriceFeedIDs["BTCUSD"] = v
	}

	if cfg.EncryptionKey == "" {
		return Config{}, fmt.Errorf("ENCRYPTION_KEY must be set")
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development environment, where
// in-memory fallbacks for Postgres and Redis are allowed.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
