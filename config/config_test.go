package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "crypto-trading-bot/internal/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credentialed() MapSource {
	return MapSource{
		"COINBASE_API_KEY":    "cb-key",
		"COINBASE_API_SECRET": "cb-secret",
		"KRAKEN_API_KEY":      "kr-key",
		"KRAKEN_PRIVATE_KEY":  "kr-private",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(MapSource{})
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ModePaper, cfg.TradingMode)
	assert.Equal(t, []Exchange{ExchangeCoinbase, ExchangeKraken}, cfg.ActiveExchanges())
	assert.Equal(t, []string{"WIF-USD", "PEPE-USD", "BONK-USD"}, cfg.PrimaryPairs())
	assert.Equal(t, DefaultDatabaseURL, cfg.Database.URL)
	assert.Equal(t, 5, cfg.Database.PoolSize)
	assert.Equal(t, 10, cfg.Database.MaxOverflow)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "logs/trading_bot.log", cfg.Logging.FilePath)
	assert.Equal(t, "America/Chicago", cfg.Timezone)
	assert.True(t, cfg.Risk.MaxPositionPct.Equal(decimal.RequireFromString("0.20")))
	assert.True(t, cfg.Risk.DailyLossLimitPct.Equal(decimal.RequireFromString("0.006")))
	assert.True(t, cfg.Risk.MaxMemecoinExposurePct.Equal(decimal.RequireFromString("0.15")))
	assert.True(t, cfg.Risk.MaxTotalExposureUSD.Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, 30*time.Second, cfg.WebSocket.HeartbeatInterval)
	assert.Equal(t, 10, cfg.Coinbase.RateLimitPerSecond)
	assert.Equal(t, 6, cfg.Kraken.RateLimitPerSecond)
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoad_Deterministic(t *testing.T) {
	src := credentialed()
	src["PRIMARY_PAIRS"] = "BTC-USD, ETH-USD"
	src["MAX_POSITION_PCT"] = "0.1"

	a, err := Load(src)
	require.NoError(t, err)
	b, err := Load(src)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestLoad_SetButEmptyValueIsInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"TRADING_MODE", ""},
		{"ENVIRONMENT", ""},
		{"ACTIVE_EXCHANGES", ""},
		{"PRIMARY_PAIRS", " "},
		{"DB_POOL_SIZE", ""},
		{"MAX_POSITION_PCT", "  "},
		{"TIMEZONE", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, err := Load(MapSource{tt.key: tt.value})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidConfigValue)
			assert.Equal(t, tt.key, apperrors.FieldOf(err))
		})
	}
}

func TestLoad_EmptyOptionalValues(t *testing.T) {
	cfg, err := Load(MapSource{"REDIS_URL": "", "COINBASE_API_PASSPHRASE": "", "TELEGRAM_CHAT_ID": ""})
	require.NoError(t, err)
	assert.Empty(t, cfg.Redis.URL)
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoad_EmptyEnvironmentFallsBackToLowerLayer(t *testing.T) {
	cfg, err := Load(Layered(MapSource{"TRADING_MODE": ""}, MapSource{"TRADING_MODE": "live"}, credentialed()))
	require.NoError(t, err)
	assert.Equal(t, ModeLive, cfg.TradingMode)
}

func TestLoad_TradingModeIsCaseSensitive(t *testing.T) {
	for _, mode := range []string{"LIVE", "Paper", "demo"} {
		t.Run(mode, func(t *testing.T) {
			_, err := Load(MapSource{"TRADING_MODE": mode})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidConfigValue)
			assert.Equal(t, "TRADING_MODE", apperrors.FieldOf(err))
		})
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	_, err := Load(MapSource{"ENVIRONMENT": "Production"})
	require.Error(t, err)
	assert.Equal(t, "ENVIRONMENT", apperrors.FieldOf(err))
}

func TestLoad_FieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-decimal pct", "MAX_POSITION_PCT", "abc"},
		{"negative pct", "DAILY_LOSS_LIMIT_PCT", "-0.1"},
		{"pct above one", "MAX_MEMECOIN_EXPOSURE_PCT", "1.5"},
		{"zero pct", "MAX_POSITION_PCT", "0"},
		{"non-integer pool", "DB_POOL_SIZE", "five"},
		{"negative overflow", "DB_MAX_OVERFLOW", "-1"},
		{"zero pool", "DB_POOL_SIZE", "0"},
		{"only separators", "PRIMARY_PAIRS", ",,"},
		{"unknown exchange", "ACTIVE_EXCHANGES", "coinbase,binance"},
		{"position over exposure", "MAX_POSITION_SIZE_USD", "10000"},
		{"bad timezone", "TIMEZONE", "Mars/Olympus"},
		{"zero rate", "KRAKEN_RATE_LIMIT_PER_SECOND", "0"},
		{"bad redis url", "REDIS_URL", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(MapSource{tt.key: tt.value})
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidConfigValue)
			assert.Equal(t, tt.key, apperrors.FieldOf(err))
		})
	}
}

func TestLoad_ExchangeListNormalised(t *testing.T) {
	cfg, err := Load(MapSource{"ACTIVE_EXCHANGES": "Kraken, coinbase ,kraken,"})
	require.NoError(t, err)
	assert.Equal(t, []Exchange{ExchangeKraken, ExchangeCoinbase}, cfg.ActiveExchanges())
}

func TestLoad_LiveWithoutCredentials(t *testing.T) {
	_, err := Load(MapSource{
		"TRADING_MODE":        "live",
		"ACTIVE_EXCHANGES":    "coinbase,kraken",
		"COINBASE_API_KEY":    "cb-key",
		"COINBASE_API_SECRET": "cb-secret",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigurationInvalid)
	assert.Contains(t, err.Error(), "Kraken API credentials are required but not set")
	assert.NotContains(t, err.Error(), "Coinbase")
}

func TestLoad_LiveWithCredentials(t *testing.T) {
	src := credentialed()
	src["TRADING_MODE"] = "live"
	src["ENVIRONMENT"] = "production"

	cfg, err := Load(src)
	require.NoError(t, err)
	assert.Equal(t, ModeLive, cfg.TradingMode)
}

func TestAccessorsReturnCopies(t *testing.T) {
	cfg, err := Load(MapSource{})
	require.NoError(t, err)

	ex := cfg.ActiveExchanges()
	ex[0] = "mutated"
	pairs := cfg.PrimaryPairs()
	pairs[0] = "mutated"

	assert.Equal(t, ExchangeCoinbase, cfg.ActiveExchanges()[0])
	assert.Equal(t, "WIF-USD", cfg.PrimaryPairs()[0])
}

func TestSummaryHidesCredentials(t *testing.T) {
	cfg, err := Load(credentialed())
	require.NoError(t, err)

	summary := cfg.Summary()
	assert.Equal(t, "set (6 chars)", summary["coinbase_api_key"])
	assert.Equal(t, "set (6 chars)", summary["kraken_api_key"])
	for _, v := range summary {
		assert.NotEqual(t, "cb-secret", v)
		assert.NotEqual(t, "kr-private", v)
	}
}

func TestLayered(t *testing.T) {
	src := Layered(
		MapSource{"A": "", "B": "env"},
		nil,
		MapSource{"A": "file", "B": "file", "C": ""},
	)

	v, ok := src.Lookup("A")
	assert.True(t, ok)
	assert.Equal(t, "file", v)

	v, _ = src.Lookup("B")
	assert.Equal(t, "env", v)

	v, ok = src.Lookup("C")
	assert.True(t, ok)
	assert.Empty(t, v)

	_, ok = src.Lookup("D")
	assert.False(t, ok)
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TRADING_MODE=paper\nPRIMARY_PAIRS=BTC-USD\n"), 0o600))

	src, err := DotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", src["PRIMARY_PAIRS"])

	missing, err := DotEnv(filepath.Join(dir, "absent.env"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestLoadVault(t *testing.T) {
	assert.False(t, LoadVault(MapSource{"VAULT_ADDR": "http://vault:8200"}).Enabled)

	v := LoadVault(MapSource{"VAULT_ADDR": "http://vault:8200", "VAULT_TOKEN": "t"})
	assert.True(t, v.Enabled)
	assert.Equal(t, "secret", v.MountPath)
	assert.Equal(t, "trading-bot/exchange-keys", v.SecretPath)
}
