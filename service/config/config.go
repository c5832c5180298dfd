package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/brojonat/solwallet/service/wallet"
)

// Supported networks.
const (
	NetworkDevnet   = "devnet"
	NetworkTestnet  = "testnet"
	NetworkMainnet  = "mainnet"
	NetworkLocalnet = "localnet"
)

var defaultRPCURLs = map[string]string{
	NetworkDevnet:   "https://api.devnet.solana.com",
	NetworkTestnet:  "https://api.testnet.solana.com",
	NetworkMainnet:  "https://api.mainnet-beta.solana.com",
	NetworkLocalnet: "http://127.0.0.1:8899",
}

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana configuration
	SolanaNetwork    string
	SolanaRPCURLs    []string
	SolanaCommitment string

	// Query tuning
	HistoryLimit   int
	RPCConcurrency int

	// Airdrops
	AirdropMaxSOL  float64
	ConfirmTimeout time.Duration

	// Optional integrations; empty disables them.
	DatabaseURL  string
	NATSURL      string
	TemporalHost string

	TemporalNamespace string
	TemporalTaskQueue string
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables and validates all fields.
// Returns an error listing every invalid setting.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))

	cfg.SolanaNetwork = strings.ToLower(getEnvOrDefault("SOLANA_NETWORK", NetworkDevnet))
	if _, ok := defaultRPCURLs[cfg.SolanaNetwork]; !ok {
		errs = append(errs, fmt.Errorf("SOLANA_NETWORK must be one of devnet, testnet, mainnet, localnet; got %q", cfg.SolanaNetwork))
	}
	cfg.SolanaRPCURLs = splitList(getEnvOrDefault("SOLANA_RPC_URL", defaultRPCURLs[cfg.SolanaNetwork]))
	if len(cfg.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}
	cfg.SolanaCommitment = strings.ToLower(getEnvOrDefault("SOLANA_COMMITMENT", "confirmed"))

	historyLimit, err := parseInt("HISTORY_LIMIT", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.HistoryLimit = historyLimit
	}

	concurrency, err := parseInt("RPC_CONCURRENCY", 4)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RPCConcurrency = concurrency
	}

	maxSOL, err := parseFloat("AIRDROP_MAX_SOL", 2)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.AirdropMaxSOL = maxSOL
	}

	confirmTimeout, err := parseDuration("CONFIRM_TIMEOUT", "60s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmTimeout = confirmTimeout
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.TemporalHost = os.Getenv("TEMPORAL_HOST")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "solwallet-airdrops")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.ServerAddr == "" {
		errs = append(errs, fmt.Errorf("ServerAddr is required"))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if _, ok := defaultRPCURLs[c.SolanaNetwork]; !ok {
		errs = append(errs, fmt.Errorf("SolanaNetwork %q is not supported", c.SolanaNetwork))
	}

	if len(c.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SolanaRPCURLs is required"))
	}
	for _, u := range c.SolanaRPCURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			errs = append(errs, fmt.Errorf("RPC URL %q must be http(s)", u))
		}
	}

	switch c.SolanaCommitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("SolanaCommitment must be processed, confirmed or finalized; got %q", c.SolanaCommitment))
	}

	if c.HistoryLimit < 1 || c.HistoryLimit > 100 {
		errs = append(errs, fmt.Errorf("HistoryLimit must be between 1 and 100"))
	}

	if c.RPCConcurrency < 1 {
		errs = append(errs, fmt.Errorf("RPCConcurrency must be at least 1"))
	}

	if c.AirdropMaxSOL <= 0 {
		errs = append(errs, fmt.Errorf("AirdropMaxSOL must be positive"))
	}

	if c.ConfirmTimeout < time.Second || c.ConfirmTimeout > wallet.MaxConfirmTimeout {
		errs = append(errs, fmt.Errorf("ConfirmTimeout must be between 1s and %s", wallet.MaxConfirmTimeout))
	}

	if c.TemporalHost != "" {
		if c.TemporalNamespace == "" {
			errs = append(errs, fmt.Errorf("TemporalNamespace is required when TemporalHost is set"))
		}
		if c.TemporalTaskQueue == "" {
			errs = append(errs, fmt.Errorf("TemporalTaskQueue is required when TemporalHost is set"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// ExplorerCluster is the cluster query value used by explorer links.
// Mainnet links carry no cluster parameter.
func (c *Config) ExplorerCluster() string {
	switch c.SolanaNetwork {
	case NetworkMainnet:
		return ""
	case NetworkLocalnet:
		return "custom"
	default:
		return c.SolanaNetwork
	}
}

// ParseLogLevel maps a LOG_LEVEL value onto a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
