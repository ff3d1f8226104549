// Package collector gathers prices, symbol filters and klines for the
// configured coins from the exchange.
package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/coinrank/internal/domain"
	"github.com/vadiminshakov/coinrank/pkg/retrier"
)

const (
	defaultConcurrency = 4
	klinesTimeout      = 2 * time.Minute
	statusTrading      = "TRADING"
)

// SymbolInfo exchange metadata of one symbol.
type SymbolInfo struct {
	Symbol     string
	Status     string
	BaseAsset  string
	QuoteAsset string
	Filters    []domain.FilterRecord
}

// Exchange REST calls needed to collect market data.
type Exchange interface {
	Symbols(ctx context.Context) ([]SymbolInfo, error)
	Prices(ctx context.Context) (map[string]decimal.Decimal, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
}

// Options collection parameters.
type Options struct {
	Quote       string
	Interval    string
	Limit       int
	Concurrency int
}

// Failure a coin that could not be collected.
type Failure struct {
	Coin string
	Err  error
}

// Result market data in the order coins were requested, plus the coins that failed.
type Result struct {
	Data     []domain.MarketData
	Failures []Failure
}

// Prices latest price of every collected coin keyed by coin.
func (r Result) Prices() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(r.Data))
	for _, md := range r.Data {
		prices[md.Coin] = md.Price
	}
	return prices
}

// Collector fetches market data for a set of coins.
type Collector struct {
	exchange Exchange
	opts     Options
	retrier  *retrier.Retrier
	logger   *zap.Logger
}

// NewCollector creates a Collector.
func NewCollector(exchange Exchange, opts Options, r *retrier.Retrier, logger *zap.Logger) *Collector {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if r == nil {
		r = retrier.New(retrier.DefaultPolicy(), retrier.WithRetryIf(Retryable), retrier.WithWaitFor(RateLimitWait))
	}
	return &Collector{
		exchange: exchange,
		opts:     opts,
		retrier:  r,
		logger:   logger,
	}
}

// Collect returns market data for coins. Exchange-wide calls failing abort the
// collection, a single coin failing is reported in Result.Failures.
func (c *Collector) Collect(ctx context.Context, coins []string) (Result, error) {
	symbols, err := retrier.DoWithData(c.retrier, ctx, c.exchange.Symbols)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to fetch exchange info")
	}
	prices, err := retrier.DoWithData(c.retrier, ctx, c.exchange.Prices)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to fetch prices")
	}

	bySymbol := make(map[string]SymbolInfo, len(symbols))
	for _, s := range symbols {
		bySymbol[s.Symbol] = s
	}

	var (
		data = make([]domain.MarketData, len(coins))
		errs = make([]error, len(coins))
		g    errgroup.Group
	)
	g.SetLimit(c.opts.Concurrency)

	for i, coin := range coins {
		g.Go(func() error {
			data[i], errs[i] = c.collectCoin(ctx, coin, bySymbol, prices)
			return nil
		})
	}
	_ = g.Wait()

	var result Result
	for i, coin := range coins {
		if errs[i] != nil {
			c.logger.Warn("skipping coin without market data", zap.String("coin", coin), zap.Error(errs[i]))
			result.Failures = append(result.Failures, Failure{Coin: coin, Err: errs[i]})
			continue
		}
		result.Data = append(result.Data, data[i])
	}

	return result, nil
}

func (c *Collector) collectCoin(
	ctx context.Context,
	coin string,
	bySymbol map[string]SymbolInfo,
	prices map[string]decimal.Decimal,
) (domain.MarketData, error) {
	pair := domain.NewPair(coin, c.opts.Quote)
	symbol := pair.Symbol()

	info, ok := bySymbol[symbol]
	if !ok {
		return domain.MarketData{}, &domain.MissingMarketDataError{Coin: coin, Reason: "symbol " + symbol + " is not listed"}
	}
	if info.Status != statusTrading {
		return domain.MarketData{}, &domain.MissingMarketDataError{Coin: coin, Reason: "symbol " + symbol + " is " + info.Status}
	}
	price, ok := prices[symbol]
	if !ok || !price.IsPositive() {
		return domain.MarketData{}, &domain.MissingMarketDataError{Coin: coin, Reason: "no price for " + symbol}
	}

	klinesCtx, cancel := context.WithTimeout(ctx, klinesTimeout)
	defer cancel()

	candles, err := retrier.DoWithData(c.retrier, klinesCtx, func(ctx context.Context) ([]domain.Candle, error) {
		return c.exchange.Klines(ctx, symbol, c.opts.Interval, c.opts.Limit)
	})
	if err != nil {
		return domain.MarketData{}, errors.Wrapf(err, "failed to fetch klines for %s", symbol)
	}
	if len(candles) == 0 {
		return domain.MarketData{}, &domain.MissingMarketDataError{Coin: coin, Reason: "no klines for " + symbol}
	}

	return domain.MarketData{
		Coin:    pair.From,
		Pair:    pair,
		Price:   price,
		Filters: info.Filters,
		Candles: candles,
	}, nil
}
