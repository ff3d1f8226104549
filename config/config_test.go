package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/coinrank/internal/domain"
	"github.com/vadiminshakov/coinrank/internal/services/scoring"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("coins: [btc, eth]\n"))
	require.NoError(t, err)

	assert.Equal(t, "USDT", cfg.Quote)
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.Coins)
	assert.Equal(t, "1h", cfg.KlineInterval)
	assert.Equal(t, 100, cfg.KlineLimit)
	assert.Equal(t, time.Duration(0), cfg.PollInterval)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.True(t, cfg.OrderValue.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 1, cfg.MaxBuysPerCycle)
	assert.True(t, cfg.TakeProfitBps.Equal(decimal.NewFromInt(500)))
	assert.True(t, cfg.StopLossBps.Equal(decimal.NewFromInt(300)))
	assert.True(t, cfg.ProtectBuys)
	assert.False(t, cfg.TrailingStop)
	assert.Equal(t, 30.0, cfg.Thresholds.Sell)
	assert.Equal(t, 70.0, cfg.Thresholds.Buy)
	assert.Equal(t, scoring.AllFormulas(), cfg.Scoring.Formulas)
	assert.Equal(t, scoring.DefaultBonus, cfg.Scoring.Bonus)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.SimulateQuoteBalance.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "./wal", cfg.WALDir)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestParse_Overrides(t *testing.T) {
	data := []byte(`
quote: busd
coins: [SOL]
kline_interval: 4h
kline_limit: 200
poll_interval: 15m
order_value: "50.5"
max_buys_per_cycle: 0
take_profit_bps: "800"
stop_loss_bps: "150"
protect_buys: false
trailing_stop: true
sell_threshold: "25"
buy_threshold: "80"
dry_run: false
log_level: DEBUG
scoring:
  formulas: [rsi_macd, deviation]
  bonus: "5"
  params:
    rsi_macd:
      normalizer: "3"
      weights:
        rsi: 2
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "BUSD", cfg.Quote)
	assert.Equal(t, 15*time.Minute, cfg.PollInterval)
	assert.True(t, cfg.OrderValue.Equal(decimal.RequireFromString("50.5")))
	assert.Equal(t, 0, cfg.MaxBuysPerCycle)
	assert.False(t, cfg.ProtectBuys)
	assert.True(t, cfg.TrailingStop)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 25.0, cfg.Thresholds.Sell)
	assert.Equal(t, 80.0, cfg.Thresholds.Buy)

	assert.Equal(t, []scoring.Formula{scoring.FormulaRSIMACD, scoring.FormulaDeviation}, cfg.Scoring.Formulas)
	assert.Equal(t, 5.0, cfg.Scoring.Bonus)
	p := cfg.Scoring.Params[scoring.FormulaRSIMACD]
	assert.Equal(t, 3.0, p.Normalizer)
	assert.Equal(t, 2.0, p.Weights[scoring.TermRSI])
	// untouched weights keep their defaults
	assert.Equal(t, scoring.DefaultParams()[scoring.FormulaRSIMACD].Weights[scoring.TermSMA], p.Weights[scoring.TermSMA])

	// live trading without credentials
	assert.Error(t, cfg.Validate())
	cfg.Credentials = Credentials{APIKey: "k", APISecret: "s"}
	assert.NoError(t, cfg.Validate())
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"order value", "coins: [BTC]\norder_value: abc\n"},
		{"threshold", "coins: [BTC]\nbuy_threshold: high\n"},
		{"formula", "coins: [BTC]\nscoring:\n  formulas: [magic]\n"},
		{"params formula", "coins: [BTC]\nscoring:\n  params:\n    magic:\n      normalizer: \"1\"\n"},
		{"yaml", "coins: [BTC\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg, err := Parse([]byte("coins: [BTC, ETH]\n"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		is     error
	}{
		{"no coins", func(c *Config) { c.Coins = nil }, nil},
		{"duplicate coin", func(c *Config) { c.Coins = []string{"BTC", "BTC"} }, nil},
		{"coin is quote", func(c *Config) { c.Coins = []string{"USDT"} }, nil},
		{"bad interval", func(c *Config) { c.KlineInterval = "7m" }, nil},
		{"too few klines", func(c *Config) { c.KlineLimit = 20 }, nil},
		{"zero order value", func(c *Config) { c.OrderValue = decimal.Zero }, domain.ErrConfiguration},
		{"negative stop loss", func(c *Config) { c.StopLossBps = decimal.NewFromInt(-1) }, domain.ErrConfiguration},
		{"inverted thresholds", func(c *Config) { c.Thresholds.Sell, c.Thresholds.Buy = 70, 30 }, domain.ErrConfiguration},
		{"unknown term", func(c *Config) {
			c.Scoring.Params[scoring.FormulaRSISMA].Weights["volume"] = 1
		}, nil},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, nil},
		{"negative poll", func(c *Config) { c.PollInterval = -time.Second }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coins: [BTC]\ndry_run: false\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.Credentials.APIKey)
	assert.Equal(t, "secret", cfg.Credentials.APISecret)
	assert.False(t, cfg.DryRun)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"-config", "bot.yaml", "-history", "5"})
	require.NoError(t, err)
	assert.Equal(t, "bot.yaml", f.ConfigPath)
	assert.Equal(t, 5, f.History)
	assert.False(t, f.Setup)

	f, err = ParseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", f.ConfigPath)

	_, err = ParseFlags([]string{"-history", "-1"})
	assert.Error(t, err)
}
