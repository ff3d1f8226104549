package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/coinrank/internal/domain"
	"github.com/vadiminshakov/coinrank/internal/services/market/indicators"
	"github.com/vadiminshakov/coinrank/internal/services/ranking"
	"github.com/vadiminshakov/coinrank/internal/services/scoring"
)

const (
	defaultQuote                = "USDT"
	defaultKlineInterval        = "1h"
	defaultKlineLimit           = 100
	defaultFetchConcurrency     = 4
	defaultMaxBuysPerCycle      = 1
	defaultWALDir               = "./wal"
	defaultLogLevel             = "info"
	defaultOrderValue           = "20"
	defaultTakeProfitBps        = "500"
	defaultStopLossBps          = "300"
	defaultSimulateQuoteBalance = "1000"
)

var (
	klineIntervals = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1M"}
	logLevels      = []string{"debug", "info", "warn", "error"}
)

// Credentials Binance API keys, read from the environment.
type Credentials struct {
	APIKey    string `env:"BINANCE_API_KEY"`
	APISecret string `env:"BINANCE_API_SECRET"`
}

// Config bot configuration.
type Config struct {
	Quote            string
	Coins            []string
	KlineInterval    string
	KlineLimit       int
	PollInterval     time.Duration
	FetchConcurrency int

	OrderValue      decimal.Decimal
	MaxBuysPerCycle int

	TakeProfitBps decimal.Decimal
	StopLossBps   decimal.Decimal
	ProtectBuys   bool
	TrailingStop  bool

	Thresholds ranking.Thresholds
	Scoring    scoring.Config

	DryRun               bool
	SimulateQuoteBalance decimal.Decimal

	WALDir      string
	MetricsAddr string
	LogLevel    string

	Credentials Credentials
}

// ConfigTmp raw yaml layout.
type ConfigTmp struct {
	Quote                string        `yaml:"quote,omitempty"`
	Coins                []string      `yaml:"coins"`
	KlineInterval        string        `yaml:"kline_interval,omitempty"`
	KlineLimit           int           `yaml:"kline_limit,omitempty"`
	PollInterval         time.Duration `yaml:"poll_interval,omitempty"`
	FetchConcurrency     int           `yaml:"fetch_concurrency,omitempty"`
	OrderValue           string        `yaml:"order_value,omitempty"`
	MaxBuysPerCycle      *int          `yaml:"max_buys_per_cycle,omitempty"`
	TakeProfitBps        string        `yaml:"take_profit_bps,omitempty"`
	StopLossBps          string        `yaml:"stop_loss_bps,omitempty"`
	ProtectBuys          *bool         `yaml:"protect_buys,omitempty"`
	TrailingStop         bool          `yaml:"trailing_stop,omitempty"`
	SellThreshold        string        `yaml:"sell_threshold,omitempty"`
	BuyThreshold         string        `yaml:"buy_threshold,omitempty"`
	Scoring              ScoringTmp    `yaml:"scoring,omitempty"`
	DryRun               *bool         `yaml:"dry_run,omitempty"`
	SimulateQuoteBalance string        `yaml:"simulate_quote_balance,omitempty"`
	WALDir               string        `yaml:"wal_dir,omitempty"`
	MetricsAddr          string        `yaml:"metrics_addr,omitempty"`
	LogLevel             string        `yaml:"log_level,omitempty"`
}

// ScoringTmp raw yaml layout of the scoring section.
type ScoringTmp struct {
	Formulas []string                    `yaml:"formulas,omitempty"`
	Bonus    string                      `yaml:"bonus,omitempty"`
	Params   map[string]FormulaParamsTmp `yaml:"params,omitempty"`
}

// FormulaParamsTmp overrides of a single formula's params.
type FormulaParamsTmp struct {
	Normalizer string             `yaml:"normalizer,omitempty"`
	Weights    map[string]float64 `yaml:"weights,omitempty"`
}

// Load reads the yaml config at path, adds credentials from the environment
// (and .env when present) and validates the result.
func Load(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}

	cfg, err := Parse(f)
	if err != nil {
		return Config{}, err
	}

	creds, err := LoadCredentials()
	if err != nil {
		return Config{}, err
	}
	cfg.Credentials = creds

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Parse decodes yaml data and applies defaults. It does not validate.
func Parse(data []byte) (Config, error) {
	var tmp ConfigTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode yaml config")
	}
	return FromTmp(tmp)
}

// LoadCredentials reads Binance credentials from the environment after loading .env.
func LoadCredentials() (Credentials, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Credentials{}, errors.Wrap(err, "failed to load .env")
	}

	var creds Credentials
	if err := env.ParseWithOptions(&creds, env.Options{}); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	return creds, nil
}

// FromTmp converts the raw layout into Config, filling defaults.
func FromTmp(c ConfigTmp) (Config, error) {
	cfg := Config{
		Quote:            strings.ToUpper(lo.CoalesceOrEmpty(c.Quote, defaultQuote)),
		Coins:            lo.Map(c.Coins, func(coin string, _ int) string { return strings.ToUpper(strings.TrimSpace(coin)) }),
		KlineInterval:    lo.CoalesceOrEmpty(c.KlineInterval, defaultKlineInterval),
		KlineLimit:       lo.CoalesceOrEmpty(c.KlineLimit, defaultKlineLimit),
		PollInterval:     c.PollInterval,
		FetchConcurrency: lo.CoalesceOrEmpty(c.FetchConcurrency, defaultFetchConcurrency),
		MaxBuysPerCycle:  defaultMaxBuysPerCycle,
		ProtectBuys:      true,
		TrailingStop:     c.TrailingStop,
		DryRun:           true,
		WALDir:           lo.CoalesceOrEmpty(c.WALDir, defaultWALDir),
		MetricsAddr:      c.MetricsAddr,
		LogLevel:         strings.ToLower(lo.CoalesceOrEmpty(c.LogLevel, defaultLogLevel)),
	}
	if c.MaxBuysPerCycle != nil {
		cfg.MaxBuysPerCycle = *c.MaxBuysPerCycle
	}
	if c.ProtectBuys != nil {
		cfg.ProtectBuys = *c.ProtectBuys
	}
	if c.DryRun != nil {
		cfg.DryRun = *c.DryRun
	}

	var err error
	if cfg.OrderValue, err = parseDecimal("order_value", c.OrderValue, defaultOrderValue); err != nil {
		return Config{}, err
	}
	if cfg.TakeProfitBps, err = parseDecimal("take_profit_bps", c.TakeProfitBps, defaultTakeProfitBps); err != nil {
		return Config{}, err
	}
	if cfg.StopLossBps, err = parseDecimal("stop_loss_bps", c.StopLossBps, defaultStopLossBps); err != nil {
		return Config{}, err
	}
	if cfg.SimulateQuoteBalance, err = parseDecimal("simulate_quote_balance", c.SimulateQuoteBalance, defaultSimulateQuoteBalance); err != nil {
		return Config{}, err
	}

	cfg.Thresholds = ranking.DefaultThresholds()
	if cfg.Thresholds.Sell, err = parseFloat("sell_threshold", c.SellThreshold, cfg.Thresholds.Sell); err != nil {
		return Config{}, err
	}
	if cfg.Thresholds.Buy, err = parseFloat("buy_threshold", c.BuyThreshold, cfg.Thresholds.Buy); err != nil {
		return Config{}, err
	}

	if cfg.Scoring, err = scoringFromTmp(c.Scoring); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func scoringFromTmp(s ScoringTmp) (scoring.Config, error) {
	cfg := scoring.DefaultConfig()

	if len(s.Formulas) > 0 {
		cfg.Formulas = make([]scoring.Formula, 0, len(s.Formulas))
		for _, name := range s.Formulas {
			f, err := scoring.ParseFormula(name)
			if err != nil {
				return scoring.Config{}, fmt.Errorf("incorrect 'scoring.formulas' param in yaml config, error: %w", err)
			}
			cfg.Formulas = append(cfg.Formulas, f)
		}
	}

	var err error
	if cfg.Bonus, err = parseFloat("scoring.bonus", s.Bonus, cfg.Bonus); err != nil {
		return scoring.Config{}, err
	}

	for name, override := range s.Params {
		f, err := scoring.ParseFormula(name)
		if err != nil {
			return scoring.Config{}, fmt.Errorf("incorrect 'scoring.params' param in yaml config, error: %w", err)
		}

		p := cfg.Params[f]
		weights := make(map[scoring.Term]float64, len(p.Weights)+len(override.Weights))
		for term, w := range p.Weights {
			weights[term] = w
		}
		for term, w := range override.Weights {
			weights[scoring.Term(term)] = w
		}
		p.Weights = weights

		if p.Normalizer, err = parseFloat("scoring.params."+name+".normalizer", override.Normalizer, p.Normalizer); err != nil {
			return scoring.Config{}, err
		}
		cfg.Params[f] = p
	}

	return cfg, nil
}

// Validate checks the configuration is usable. Inverted thresholds are rejected here
// rather than being left for the decision engine to warn about.
func (c Config) Validate() error {
	if c.Quote == "" {
		return errors.New("quote asset must be set")
	}
	if len(c.Coins) == 0 {
		return errors.New("at least one coin must be configured")
	}
	for _, coin := range c.Coins {
		if coin == "" {
			return errors.New("coin names must not be empty")
		}
		if coin == c.Quote {
			return fmt.Errorf("coin %s is the quote asset", coin)
		}
	}
	if dup := lo.FindDuplicates(c.Coins); len(dup) > 0 {
		return fmt.Errorf("coin %s is configured twice", dup[0])
	}
	if !lo.Contains(klineIntervals, c.KlineInterval) {
		return fmt.Errorf("incorrect 'kline_interval' param in yaml config: %s", c.KlineInterval)
	}
	if c.KlineLimit < indicators.MinCandles || c.KlineLimit > 1000 {
		return fmt.Errorf("kline_limit must be between %d and 1000, got %d", indicators.MinCandles, c.KlineLimit)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must not be negative, got %s", c.PollInterval)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("fetch_concurrency must be positive, got %d", c.FetchConcurrency)
	}
	if !c.OrderValue.IsPositive() {
		return &domain.InvalidInputError{Field: "order_value", Value: c.OrderValue}
	}
	if c.MaxBuysPerCycle < 0 {
		return fmt.Errorf("max_buys_per_cycle must not be negative, got %d", c.MaxBuysPerCycle)
	}
	if c.TakeProfitBps.IsNegative() {
		return &domain.InvalidInputError{Field: "take_profit_bps", Value: c.TakeProfitBps}
	}
	if c.StopLossBps.IsNegative() {
		return &domain.InvalidInputError{Field: "stop_loss_bps", Value: c.StopLossBps}
	}
	if c.SimulateQuoteBalance.IsNegative() {
		return &domain.InvalidInputError{Field: "simulate_quote_balance", Value: c.SimulateQuoteBalance}
	}
	if err := c.Thresholds.Validate(); err != nil {
		return errors.Wrap(err, "invalid decision thresholds")
	}
	if err := c.Scoring.Validate(); err != nil {
		return errors.Wrap(err, "invalid scoring config")
	}
	if !lo.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if !c.DryRun && (c.Credentials.APIKey == "" || c.Credentials.APISecret == "") {
		return errors.New("BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set when dry_run is false")
	}

	return nil
}

func parseDecimal(name, raw, fallback string) (decimal.Decimal, error) {
	if raw == "" {
		raw = fallback
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("incorrect '%s' param in yaml config (must be a decimal), error: %w", name, err)
	}
	return v, nil
}

func parseFloat(name, raw string, fallback float64) (float64, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("incorrect '%s' param in yaml config (must be a number), error: %w", name, err)
	}
	return v, nil
}
