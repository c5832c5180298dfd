package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"SERVER_ADDR", "LOG_LEVEL", "SOLANA_NETWORK", "SOLANA_RPC_URL", "SOLANA_COMMITMENT",
	"HISTORY_LIMIT", "RPC_CONCURRENCY", "AIRDROP_MAX_SOL", "CONFIRM_TIMEOUT",
	"DATABASE_URL", "NATS_URL", "TEMPORAL_HOST", "TEMPORAL_NAMESPACE", "TEMPORAL_TASK_QUEUE",
}

// clearEnv blanks every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, NetworkDevnet, cfg.SolanaNetwork)
	assert.Equal(t, []string{"https://api.devnet.solana.com"}, cfg.SolanaRPCURLs)
	assert.Equal(t, "confirmed", cfg.SolanaCommitment)
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 4, cfg.RPCConcurrency)
	assert.Equal(t, 2.0, cfg.AirdropMaxSOL)
	assert.Equal(t, 60*time.Second, cfg.ConfirmTimeout)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.NATSURL)
	assert.Empty(t, cfg.TemporalHost)
	assert.Equal(t, "default", cfg.TemporalNamespace)
	assert.Equal(t, "solwallet-airdrops", cfg.TemporalTaskQueue)
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SOLANA_NETWORK", "testnet")
	t.Setenv("SOLANA_RPC_URL", "https://a.example.com, https://b.example.com ,")
	t.Setenv("HISTORY_LIMIT", "25")
	t.Setenv("RPC_CONCURRENCY", "8")
	t.Setenv("AIRDROP_MAX_SOL", "0.5")
	t.Setenv("CONFIRM_TIMEOUT", "45s")
	t.Setenv("DATABASE_URL", "postgres://localhost/solwallet")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("TEMPORAL_HOST", "localhost:7233")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, NetworkTestnet, cfg.SolanaNetwork)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.SolanaRPCURLs)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.Equal(t, 8, cfg.RPCConcurrency)
	assert.Equal(t, 0.5, cfg.AirdropMaxSOL)
	assert.Equal(t, 45*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, "postgres://localhost/solwallet", cfg.DatabaseURL)
	assert.Equal(t, "localhost:7233", cfg.TemporalHost)
}

func TestLoad_NetworkSelectsDefaultRPC(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOLANA_NETWORK", "mainnet")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, cfg.SolanaRPCURLs)
}

func TestLoad_AccumulatesErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("HISTORY_LIMIT", "ten")
	t.Setenv("CONFIRM_TIMEOUT", "soon")
	t.Setenv("AIRDROP_MAX_SOL", "lots")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "HISTORY_LIMIT")
	assert.Contains(t, err.Error(), "invalid duration")
	assert.Contains(t, err.Error(), "AIRDROP_MAX_SOL")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "unknown network", key: "SOLANA_NETWORK", value: "moonnet", wantErr: "SOLANA_NETWORK"},
		{name: "non-http RPC", key: "SOLANA_RPC_URL", value: "wss://api.devnet.solana.com", wantErr: "must be http(s)"},
		{name: "bad commitment", key: "SOLANA_COMMITMENT", value: "max", wantErr: "SolanaCommitment"},
		{name: "history limit too large", key: "HISTORY_LIMIT", value: "500", wantErr: "HistoryLimit"},
		{name: "zero concurrency", key: "RPC_CONCURRENCY", value: "0", wantErr: "RPCConcurrency"},
		{name: "negative airdrop cap", key: "AIRDROP_MAX_SOL", value: "-1", wantErr: "AirdropMaxSOL"},
		{name: "short confirm timeout", key: "CONFIRM_TIMEOUT", value: "10ms", wantErr: "ConfirmTimeout"},
		{name: "confirm timeout outlasts inline airdrop", key: "CONFIRM_TIMEOUT", value: "90s", wantErr: "ConfirmTimeout must be between 1s and 1m15s"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "chatty", wantErr: "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_CONCURRENCY", "many")

	assert.Panics(t, func() { MustLoad() })
}

func TestValidate_TemporalRequiresQueue(t *testing.T) {
	cfg := &Config{
		ServerAddr:       ":8080",
		LogLevel:         "info",
		SolanaNetwork:    NetworkDevnet,
		SolanaRPCURLs:    []string{"https://api.devnet.solana.com"},
		SolanaCommitment: "confirmed",
		HistoryLimit:     10,
		RPCConcurrency:   4,
		AirdropMaxSOL:    1,
		ConfirmTimeout:   time.Minute,
	}
	require.NoError(t, cfg.Validate())

	cfg.TemporalHost = "localhost:7233"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TemporalTaskQueue")
}

func TestExplorerCluster(t *testing.T) {
	assert.Equal(t, "devnet", (&Config{SolanaNetwork: NetworkDevnet}).ExplorerCluster())
	assert.Equal(t, "", (&Config{SolanaNetwork: NetworkMainnet}).ExplorerCluster())
	assert.Equal(t, "custom", (&Config{SolanaNetwork: NetworkLocalnet}).ExplorerCluster())
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_ADDR", ":7000") // already set: not overridden
	// godotenv only fills variables that are absent, not merely empty.
	require.NoError(t, os.Unsetenv("HISTORY_LIMIT"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SERVER_ADDR=:1234\nHISTORY_LIMIT=20\n"), 0o600))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ServerAddr)
	assert.Equal(t, 20, cfg.HistoryLimit)
}
