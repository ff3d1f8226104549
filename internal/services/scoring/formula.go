// Package scoring turns an indicator snapshot into a composite score in [-100, 100].
package scoring

import (
	"fmt"
	"math"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

const (
	minScore = -100
	maxScore = 100
)

// Formula is one of the fixed scoring heuristics.
type Formula int

const (
	FormulaRSIMACD Formula = iota + 1
	FormulaRSISMA
	FormulaSMAHeavy
	FormulaVolatility
	FormulaEMAStochastic
	FormulaDeviation
	FormulaMarketCondition
)

var formulaNames = map[Formula]string{
	FormulaRSIMACD:         "rsi_macd",
	FormulaRSISMA:          "rsi_sma",
	FormulaSMAHeavy:        "sma_heavy",
	FormulaVolatility:      "volatility",
	FormulaEMAStochastic:   "ema_stochastic",
	FormulaDeviation:       "deviation",
	FormulaMarketCondition: "market_condition",
}

// AllFormulas returns every formula in evaluation order.
func AllFormulas() []Formula {
	return []Formula{
		FormulaRSIMACD,
		FormulaRSISMA,
		FormulaSMAHeavy,
		FormulaVolatility,
		FormulaEMAStochastic,
		FormulaDeviation,
		FormulaMarketCondition,
	}
}

func (f Formula) String() string {
	if name, ok := formulaNames[f]; ok {
		return name
	}
	return fmt.Sprintf("formula(%d)", int(f))
}

// ParseFormula resolves a formula by its configuration name.
func ParseFormula(s string) (Formula, error) {
	for f, name := range formulaNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown scoring formula %q", s)
}

// Term is a weighted component of a formula.
type Term string

const (
	TermRSI                Term = "rsi"
	TermSMA                Term = "sma"
	TermEMA                Term = "ema"
	TermATR                Term = "atr"
	TermMACDHistogram      Term = "macd_histogram"
	TermBollingerWidth     Term = "bollinger_width"
	TermSMADeviation       Term = "sma_deviation"
	TermBollingerDeviation Term = "bollinger_deviation"
	// TermConditionPivot is the market condition factor at which ATR stops contributing.
	TermConditionPivot Term = "condition_pivot"
)

// Terms lists the weights a formula reads.
func (f Formula) Terms() []Term {
	switch f {
	case FormulaRSIMACD:
		return []Term{TermRSI, TermSMA, TermMACDHistogram}
	case FormulaRSISMA, FormulaSMAHeavy:
		return []Term{TermRSI, TermSMA}
	case FormulaVolatility:
		return []Term{TermATR, TermSMA, TermBollingerWidth}
	case FormulaEMAStochastic:
		return []Term{TermEMA, TermRSI, TermATR}
	case FormulaDeviation:
		return []Term{TermSMADeviation, TermBollingerDeviation, TermRSI}
	case FormulaMarketCondition:
		return []Term{TermRSI, TermATR, TermSMA, TermConditionPivot}
	}
	return nil
}

// Params tunable constants of one formula.
type Params struct {
	Weights    map[Term]float64
	Normalizer float64
}

func (p Params) w(t Term) float64 {
	return p.Weights[t]
}

// Score evaluates the formula. bonus is the magnitude awarded for boolean and
// categorical fields. The result is clamped to [-100, 100].
func (f Formula) Score(snap domain.IndicatorSnapshot, p Params, bonus float64) (float64, error) {
	if p.Normalizer == 0 {
		return 0, fmt.Errorf("formula %s has zero normalizer", f)
	}

	r := reader{snap: snap}
	var raw float64

	switch f {
	case FormulaRSIMACD:
		raw = r.num(domain.FieldRSI)*p.w(TermRSI) +
			r.num(domain.FieldSMA)*p.w(TermSMA) +
			r.num(domain.FieldMACDHistogram)*p.w(TermMACDHistogram)
	case FormulaRSISMA, FormulaSMAHeavy:
		raw = r.num(domain.FieldRSI)*p.w(TermRSI) +
			r.num(domain.FieldSMA)*p.w(TermSMA)
	case FormulaVolatility:
		raw = r.num(domain.FieldATR)*p.w(TermATR) +
			r.num(domain.FieldSMA)*p.w(TermSMA) +
			r.flagBonus(domain.FieldAboveSMA, bonus) +
			r.num(domain.FieldBollingerWidth)*p.w(TermBollingerWidth)
	case FormulaEMAStochastic:
		emaWeight := p.w(TermEMA)
		if !r.flag(domain.FieldAboveSMA) {
			emaWeight = -emaWeight
		}
		raw = r.num(domain.FieldEMA)*emaWeight +
			r.num(domain.FieldRSI)*p.w(TermRSI) +
			r.bullishBonus(domain.FieldStochasticSignal, bonus) +
			r.num(domain.FieldATR)*p.w(TermATR)
	case FormulaDeviation:
		raw = math.Abs(r.num(domain.FieldSMADeviation))*p.w(TermSMADeviation) +
			math.Abs(r.num(domain.FieldBollingerDeviation))*p.w(TermBollingerDeviation) +
			r.num(domain.FieldRSI)*p.w(TermRSI)
	case FormulaMarketCondition:
		factor := r.num(domain.FieldMarketConditionFactor)
		momentum := r.num(domain.FieldRSI)*p.w(TermRSI) + r.bullishBonus(domain.FieldStochasticSignal, bonus)
		raw = momentum*factor +
			r.num(domain.FieldATR)*p.w(TermATR)*(p.w(TermConditionPivot)-factor) +
			r.num(domain.FieldSMA)*p.w(TermSMA)*factor
	default:
		return 0, fmt.Errorf("unknown scoring formula %d", int(f))
	}

	if r.err != nil {
		return 0, r.err
	}

	return clamp(raw / p.Normalizer), nil
}

func clamp(v float64) float64 {
	return math.Max(minScore, math.Min(maxScore, v))
}

// reader keeps the first missing field so a formula reads as a plain expression.
type reader struct {
	snap domain.IndicatorSnapshot
	err  error
}

func (r *reader) num(f domain.Field) float64 {
	v, err := r.snap.Number(f)
	r.keep(err)
	return v
}

func (r *reader) flag(f domain.Field) bool {
	v, err := r.snap.Flag(f)
	r.keep(err)
	return v
}

func (r *reader) flagBonus(f domain.Field, bonus float64) float64 {
	if r.flag(f) {
		return bonus
	}
	return -bonus
}

func (r *reader) bullishBonus(f domain.Field, bonus float64) float64 {
	v, err := r.snap.Label(f)
	r.keep(err)
	if v == domain.SignalBullish {
		return bonus
	}
	return -bonus
}

func (r *reader) keep(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}
