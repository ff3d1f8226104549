package domain

import (
	"math"
	"sort"
)

// Field names an indicator value consumed by scoring.
type Field string

// numeric fields
const (
	FieldClose                 Field = "close"
	FieldSMA                   Field = "SMA"
	FieldEMA                   Field = "EMA"
	FieldRSI                   Field = "RSI"
	FieldMACD                  Field = "MACD_current"
	FieldMACDSignal            Field = "MACD_signal"
	FieldMACDHistogram         Field = "MACD_histogram"
	FieldATR                   Field = "ATR"
	FieldBollingerWidth        Field = "Bollinger_width"
	FieldStochasticK           Field = "Stochastic_%K"
	FieldStochasticD           Field = "Stochastic_%D"
	FieldSMADeviation          Field = "SMA_deviation"
	FieldBollingerDeviation    Field = "Bollinger_deviation"
	FieldMarketConditionFactor Field = "market_condition_factor"
	FieldWilliamsR             Field = "Williams_%R"

	// present only when the candle history is long enough
	FieldCCI                Field = "CCI"
	FieldIchimokuConversion Field = "Ichimoku_tenkan_sen"
	FieldIchimokuBase       Field = "Ichimoku_kijun_sen"
	FieldIchimokuLeadingA   Field = "Ichimoku_senkou_span_a"
	FieldIchimokuLeadingB   Field = "Ichimoku_senkou_span_b"
)

// boolean fields
const (
	FieldAboveSMA        Field = "above_SMA"
	FieldCloseAboveUpper Field = "close_above_upper"
	FieldCloseBelowLower Field = "close_below_lower"
)

// categorical fields
const (
	FieldMACDTrend        Field = "MACD_trend"
	FieldRSISignal        Field = "RSI_signal"
	FieldStochasticSignal Field = "Stochastic_signal"
	FieldStochasticZone   Field = "Stochastic_zone"
)

// Signal is the value of a categorical indicator field.
type Signal string

const (
	SignalBullish    Signal = "bullish"
	SignalBearish    Signal = "bearish"
	SignalNeutral    Signal = "neutral"
	SignalOversold   Signal = "oversold"
	SignalOverbought Signal = "overbought"
)

// IndicatorSnapshot immutable set of indicator values for one coin at one point in time.
// Accessors never substitute a default for an absent value.
type IndicatorSnapshot struct {
	numbers map[Field]float64
	flags   map[Field]bool
	labels  map[Field]Signal
}

// Number returns a finite numeric field.
func (s IndicatorSnapshot) Number(f Field) (float64, error) {
	v, ok := s.numbers[f]
	if !ok {
		return 0, &MissingIndicatorError{Field: f}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &MissingIndicatorError{Field: f, Reason: "value is not finite"}
	}
	return v, nil
}

// Flag returns a boolean field.
func (s IndicatorSnapshot) Flag(f Field) (bool, error) {
	v, ok := s.flags[f]
	if !ok {
		return false, &MissingIndicatorError{Field: f}
	}
	return v, nil
}

// Label returns a categorical field.
func (s IndicatorSnapshot) Label(f Field) (Signal, error) {
	v, ok := s.labels[f]
	if !ok || v == "" {
		return "", &MissingIndicatorError{Field: f}
	}
	return v, nil
}

// Len returns the number of fields present.
func (s IndicatorSnapshot) Len() int {
	return len(s.numbers) + len(s.flags) + len(s.labels)
}

// Values flattens the snapshot for logging and persistence.
func (s IndicatorSnapshot) Values() map[string]any {
	out := make(map[string]any, s.Len())
	for k, v := range s.numbers {
		out[string(k)] = v
	}
	for k, v := range s.flags {
		out[string(k)] = v
	}
	for k, v := range s.labels {
		out[string(k)] = string(v)
	}
	return out
}

// Fields returns the names of all present fields in lexical order.
func (s IndicatorSnapshot) Fields() []Field {
	fields := make([]Field, 0, s.Len())
	for k := range s.numbers {
		fields = append(fields, k)
	}
	for k := range s.flags {
		fields = append(fields, k)
	}
	for k := range s.labels {
		fields = append(fields, k)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// IndicatorBuilder accumulates fields before producing an IndicatorSnapshot.
type IndicatorBuilder struct {
	numbers map[Field]float64
	flags   map[Field]bool
	labels  map[Field]Signal
}

// NewIndicatorBuilder creates an empty builder.
func NewIndicatorBuilder() *IndicatorBuilder {
	return &IndicatorBuilder{
		numbers: make(map[Field]float64),
		flags:   make(map[Field]bool),
		labels:  make(map[Field]Signal),
	}
}

// Number sets a numeric field.
func (b *IndicatorBuilder) Number(f Field, v float64) *IndicatorBuilder {
	b.numbers[f] = v
	return b
}

// Flag sets a boolean field.
func (b *IndicatorBuilder) Flag(f Field, v bool) *IndicatorBuilder {
	b.flags[f] = v
	return b
}

// Label sets a categorical field.
func (b *IndicatorBuilder) Label(f Field, v Signal) *IndicatorBuilder {
	b.labels[f] = v
	return b
}

// Build returns a snapshot detached from the builder.
func (b *IndicatorBuilder) Build() IndicatorSnapshot {
	snap := IndicatorSnapshot{
		numbers: make(map[Field]float64, len(b.numbers)),
		flags:   make(map[Field]bool, len(b.flags)),
		labels:  make(map[Field]Signal, len(b.labels)),
	}
	for k, v := range b.numbers {
		snap.numbers[k] = v
	}
	for k, v := range b.flags {
		snap.flags[k] = v
	}
	for k, v := range b.labels {
		snap.labels[k] = v
	}
	return snap
}
