// Package indicators computes the technical indicators used for scoring.
// It uses the cinar/indicator library on close, high and low series and
// reduces every series to its latest value.
package indicators

import (
	"fmt"
	"sync"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/samber/lo"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

const (
	smaPeriod = 14
	emaPeriod = 14
	rsiPeriod = 14
	atrPeriod = 14
	cciPeriod = 20

	rsiOversold          = 30
	rsiOverbought        = 70
	stochasticOversold   = 20
	stochasticOverbought = 80

	bullishConditionFactor = 1.2
	bearishConditionFactor = 0.8
	neutralConditionFactor = 1.0

	// MinCandles is what MACD(12,26,9) needs to emit a signal value.
	MinCandles = 35
)

// Calculate builds an indicator snapshot from candles ordered oldest first.
func Calculate(candles []domain.Candle) (domain.IndicatorSnapshot, error) {
	if len(candles) < MinCandles {
		return domain.IndicatorSnapshot{}, &domain.MissingIndicatorError{
			Field:  domain.FieldClose,
			Reason: fmt.Sprintf("not enough candles: need %d, got %d", MinCandles, len(candles)),
		}
	}

	closes := lo.Map(candles, func(c domain.Candle, _ int) float64 { return c.Close.InexactFloat64() })
	highs := lo.Map(candles, func(c domain.Candle, _ int) float64 { return c.High.InexactFloat64() })
	lows := lo.Map(candles, func(c domain.Candle, _ int) float64 { return c.Low.InexactFloat64() })

	s := series{}
	closePrice := closes[len(closes)-1]

	sma := s.last(domain.FieldSMA, helper.ChanToSlice(
		trend.NewSmaWithPeriod[float64](smaPeriod).Compute(helper.SliceToChan(closes))))
	ema := s.last(domain.FieldEMA, helper.ChanToSlice(
		trend.NewEmaWithPeriod[float64](emaPeriod).Compute(helper.SliceToChan(closes))))
	rsi := s.last(domain.FieldRSI, helper.ChanToSlice(
		momentum.NewRsiWithPeriod[float64](rsiPeriod).Compute(helper.SliceToChan(closes))))

	macdLines := collect(trend.NewMacd[float64]().Compute(helper.SliceToChan(closes)))
	macd := s.last(domain.FieldMACD, macdLines[0])
	signal := s.last(domain.FieldMACDSignal, macdLines[1])

	bands := collect(volatility.NewBollingerBands[float64]().Compute(helper.SliceToChan(closes)))
	upper := s.last(domain.FieldBollingerWidth, bands[0])
	middle := s.last(domain.FieldBollingerDeviation, bands[1])
	lower := s.last(domain.FieldBollingerWidth, bands[2])

	atr := s.last(domain.FieldATR, helper.ChanToSlice(
		volatility.NewAtrWithPeriod[float64](atrPeriod).Compute(
			helper.SliceToChan(highs), helper.SliceToChan(lows), helper.SliceToChan(closes))))

	stochastic := collect(momentum.NewStochasticOscillator[float64]().Compute(
		helper.SliceToChan(highs), helper.SliceToChan(lows), helper.SliceToChan(closes)))
	k := s.last(domain.FieldStochasticK, stochastic[0])
	d := s.last(domain.FieldStochasticD, stochastic[1])

	williamsR := s.last(domain.FieldWilliamsR, helper.ChanToSlice(
		momentum.NewWilliamsR[float64]().Compute(
			helper.SliceToChan(highs), helper.SliceToChan(lows), helper.SliceToChan(closes))))

	if s.err != nil {
		return domain.IndicatorSnapshot{}, s.err
	}

	aboveSMA := closePrice > sma
	macdTrend := domain.SignalBearish
	if macd > signal {
		macdTrend = domain.SignalBullish
	}

	b := domain.NewIndicatorBuilder().
		Number(domain.FieldClose, closePrice).
		Number(domain.FieldSMA, sma).
		Number(domain.FieldEMA, ema).
		Number(domain.FieldRSI, rsi).
		Number(domain.FieldMACD, macd).
		Number(domain.FieldMACDSignal, signal).
		Number(domain.FieldMACDHistogram, macd-signal).
		Number(domain.FieldATR, atr).
		Number(domain.FieldBollingerWidth, upper-lower).
		Number(domain.FieldStochasticK, k).
		Number(domain.FieldStochasticD, d).
		Number(domain.FieldWilliamsR, williamsR).
		Number(domain.FieldMarketConditionFactor, conditionFactor(macdTrend, aboveSMA)).
		Flag(domain.FieldAboveSMA, aboveSMA).
		Flag(domain.FieldCloseAboveUpper, closePrice > upper).
		Flag(domain.FieldCloseBelowLower, closePrice < lower).
		Label(domain.FieldMACDTrend, macdTrend).
		Label(domain.FieldRSISignal, zone(rsi, rsiOversold, rsiOverbought)).
		Label(domain.FieldStochasticZone, zone(k, stochasticOversold, stochasticOverbought)).
		// %K/%D crossover; the oversold/overbought reading of %K is Stochastic_zone
		Label(domain.FieldStochasticSignal, crossSignal(k, d))

	// deviations are left out rather than divided by zero
	if sma != 0 {
		b.Number(domain.FieldSMADeviation, (closePrice-sma)/sma*100)
	}
	if middle != 0 {
		b.Number(domain.FieldBollingerDeviation, (closePrice-middle)/middle*100)
	}

	longHistory(b, highs, lows, closes)

	return b.Build(), nil
}

// longHistory adds the indicators whose warm-up exceeds MinCandles. They are
// left out of the snapshot, not reported missing, when the history is short.
func longHistory(b *domain.IndicatorBuilder, highs, lows, closes []float64) {
	cci := helper.ChanToSlice(trend.NewCciWithPeriod[float64](cciPeriod).Compute(
		helper.SliceToChan(highs), helper.SliceToChan(lows), helper.SliceToChan(closes)))
	if len(cci) > 0 {
		b.Number(domain.FieldCCI, lo.LastOrEmpty(cci))
	}

	// the lagging span is drained with the rest but not kept
	cloud := collect(momentum.NewIchimokuCloud[float64]().Compute(
		helper.SliceToChan(highs), helper.SliceToChan(lows), helper.SliceToChan(closes)))
	fields := []domain.Field{
		domain.FieldIchimokuConversion,
		domain.FieldIchimokuBase,
		domain.FieldIchimokuLeadingA,
		domain.FieldIchimokuLeadingB,
	}
	for i, f := range fields {
		if len(cloud[i]) > 0 {
			b.Number(f, lo.LastOrEmpty(cloud[i]))
		}
	}
}

func zone(v float64, oversold, overbought float64) domain.Signal {
	switch {
	case v < oversold:
		return domain.SignalOversold
	case v > overbought:
		return domain.SignalOverbought
	default:
		return domain.SignalNeutral
	}
}

func crossSignal(k, d float64) domain.Signal {
	if k > d {
		return domain.SignalBullish
	}
	return domain.SignalBearish
}

func conditionFactor(trend domain.Signal, aboveSMA bool) float64 {
	switch {
	case trend == domain.SignalBullish && aboveSMA:
		return bullishConditionFactor
	case trend == domain.SignalBearish && !aboveSMA:
		return bearishConditionFactor
	default:
		return neutralConditionFactor
	}
}

// series picks the latest value of each computed series and remembers the
// first one that came out empty.
type series struct {
	err error
}

func (s *series) last(f domain.Field, values []float64) float64 {
	if len(values) == 0 {
		if s.err == nil {
			s.err = &domain.MissingIndicatorError{Field: f, Reason: "indicator produced no values"}
		}
		return 0
	}
	return lo.LastOrEmpty(values)
}

// collect drains every output concurrently, multi-output indicators block otherwise.
func collect(outputs ...<-chan float64) [][]float64 {
	var wg sync.WaitGroup
	values := make([][]float64, len(outputs))
	for i := 1; i < len(outputs); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			values[i] = helper.ChanToSlice(outputs[i])
		}(i)
	}

	values[0] = helper.ChanToSlice(outputs[0])
	wg.Wait()

	return values
}
