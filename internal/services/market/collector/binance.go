package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

// binance error codes worth another attempt
const (
	codeDisconnected    = -1001
	codeTooManyRequests = -1003
	codeTooManyOrders   = -1015
	codeTimestamp       = -1021
)

// rateLimitPause Binance asks clients to back off for a full window after -1003.
const rateLimitPause = time.Minute

// BinanceExchange reads market data from the Binance spot REST API.
type BinanceExchange struct {
	client *binance.Client
}

// NewBinanceExchange creates a BinanceExchange.
func NewBinanceExchange(client *binance.Client) *BinanceExchange {
	return &BinanceExchange{client: client}
}

// Symbols returns every symbol with its raw filters.
func (e *BinanceExchange) Symbols(ctx context.Context) ([]SymbolInfo, error) {
	info, err := e.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch binance exchange info")
	}

	symbols := make([]SymbolInfo, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		filters := make([]domain.FilterRecord, 0, len(s.Filters))
		for _, f := range s.Filters {
			filters = append(filters, domain.FilterRecord(f))
		}
		symbols = append(symbols, SymbolInfo{
			Symbol:     s.Symbol,
			Status:     s.Status,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Filters:    filters,
		})
	}

	return symbols, nil
}

// Prices returns the latest price of every symbol.
func (e *BinanceExchange) Prices(ctx context.Context) (map[string]decimal.Decimal, error) {
	list, err := e.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch binance prices")
	}

	prices := make(map[string]decimal.Decimal, len(list))
	for _, p := range list {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse price of %s", p.Symbol)
		}
		prices[p.Symbol] = price
	}

	return prices, nil
}

// Klines fetches candles for symbol, oldest first.
func (e *BinanceExchange) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	klines, err := e.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", symbol)
	}

	result := make([]domain.Candle, len(klines))
	for i, k := range klines {
		candle, err := parseKline(k)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse kline at index %d", i)
		}
		result[i] = candle
	}

	return result, nil
}

func parseKline(k *binance.Kline) (domain.Candle, error) {
	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "open price")
	}
	high, err := decimal.NewFromString(k.High)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "high price")
	}
	low, err := decimal.NewFromString(k.Low)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "low price")
	}
	closePrice, err := decimal.NewFromString(k.Close)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "close price")
	}
	volume, err := decimal.NewFromString(k.Volume)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "volume")
	}

	return domain.Candle{
		OpenTime:  time.UnixMilli(k.OpenTime),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		CloseTime: time.UnixMilli(k.CloseTime),
	}, nil
}

// Retryable reports whether an exchange error is transient. Binance API errors
// are permanent unless they signal rate limiting or clock drift; transport
// errors are always retried.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case codeDisconnected, codeTooManyRequests, codeTooManyOrders, codeTimestamp:
			return true
		default:
			return false
		}
	}

	return true
}

// RateLimitWait overrides the backoff delay when Binance reports the request
// weight limit was hit.
func RateLimitWait(err error) (time.Duration, bool) {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeTooManyRequests {
		return rateLimitPause, true
	}
	return 0, false
}
