package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

// btcFilters mirrors the exchangeInfo filters of a typical spot symbol.
// Trailing deltas are float64 because the exchange sends them as JSON numbers.
func btcFilters() []domain.FilterRecord {
	return []domain.FilterRecord{
		{"filterType": "PRICE_FILTER", "minPrice": "0.01000000", "maxPrice": "1000000.00000000", "tickSize": "0.01000000"},
		{"filterType": "LOT_SIZE", "minQty": "0.00100000", "maxQty": "100.00000000", "stepSize": "0.00100000"},
		{"filterType": "ICEBERG_PARTS", "limit": float64(10)},
		{"filterType": "NOTIONAL", "minNotional": "10.00000000", "applyMinToMarket": true, "maxNotional": "9000000.00000000"},
		{"filterType": "TRAILING_DELTA", "minTrailingAboveDelta": float64(10), "maxTrailingAboveDelta": float64(2000),
			"minTrailingBelowDelta": float64(10), "maxTrailingBelowDelta": float64(2000)},
	}
}

func without(records []domain.FilterRecord, kind domain.FilterKind) []domain.FilterRecord {
	out := make([]domain.FilterRecord, 0, len(records))
	for _, r := range records {
		if r.Kind() != kind {
			out = append(out, r)
		}
	}
	return out
}

func TestExtractFilters(t *testing.T) {
	params, err := ExtractFilters(btcFilters())
	require.NoError(t, err)

	assert.True(t, params.Price.MinPrice.Equal(d("0.01")))
	assert.True(t, params.Price.MaxPrice.Equal(d("1000000")))
	assert.True(t, params.Price.TickSize.Equal(d("0.01")))
	assert.True(t, params.LotSize.MinQty.Equal(d("0.001")))
	assert.True(t, params.LotSize.MaxQty.Equal(d("100")))
	assert.True(t, params.LotSize.StepSize.Equal(d("0.001")))
	assert.True(t, params.Notional.MinNotional.Equal(d("10")))
	assert.True(t, params.TrailingDelta.MinAbove.Equal(d("10")))
	assert.True(t, params.TrailingDelta.MaxAbove.Equal(d("2000")))
	assert.True(t, params.TrailingDelta.MinBelow.Equal(d("10")))
	assert.True(t, params.TrailingDelta.MaxBelow.Equal(d("2000")))
}

func TestExtractFilters_MissingKind(t *testing.T) {
	kinds := []domain.FilterKind{
		domain.FilterPrice,
		domain.FilterLotSize,
		domain.FilterNotional,
		domain.FilterTrailingDelta,
	}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			_, err := ExtractFilters(without(btcFilters(), kind))

			var missing *domain.MissingFilterError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, kind, missing.Kind)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestExtractFilters_LegacyMinNotional(t *testing.T) {
	records := without(btcFilters(), domain.FilterNotional)
	records = append(records, domain.FilterRecord{"filterType": "MIN_NOTIONAL", "minNotional": "5.00000000"})

	params, err := ExtractFilters(records)
	require.NoError(t, err)
	assert.True(t, params.Notional.MinNotional.Equal(d("5")))
}

func TestExtractFilters_FirstRecordWins(t *testing.T) {
	records := append(btcFilters(), domain.FilterRecord{
		"filterType": "LOT_SIZE", "minQty": "1", "maxQty": "2", "stepSize": "1",
	})

	params, err := ExtractFilters(records)
	require.NoError(t, err)
	assert.True(t, params.LotSize.StepSize.Equal(d("0.001")))
}

func TestExtractFilters_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		kind  domain.FilterKind
		field string
		value any
	}{
		{name: "non numeric", kind: domain.FilterPrice, field: "tickSize", value: "abc"},
		{name: "negative", kind: domain.FilterLotSize, field: "minQty", value: "-1"},
		{name: "missing value", kind: domain.FilterNotional, field: "minNotional", value: nil},
		{name: "unsupported type", kind: domain.FilterTrailingDelta, field: "maxTrailingBelowDelta", value: []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := btcFilters()
			for _, r := range records {
				if r.Kind() == tt.kind {
					r[tt.field] = tt.value
				}
			}

			_, err := ExtractFilters(records)

			var malformed *domain.MalformedFilterError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.kind, malformed.Kind)
			assert.Equal(t, tt.field, malformed.Field)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestExtractFilters_NonPositiveStep(t *testing.T) {
	records := btcFilters()
	records[1]["stepSize"] = "0.00000000"

	_, err := ExtractFilters(records)

	var stepErr *domain.InvalidStepSizeError
	require.ErrorAs(t, err, &stepErr)
}

func TestExtractFilters_MinAboveMax(t *testing.T) {
	records := btcFilters()
	records[1]["minQty"] = "200"

	_, err := ExtractFilters(records)

	var malformed *domain.MalformedFilterError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "minQty", malformed.Field)
}

func TestExtractFilters_ZeroMaxQty(t *testing.T) {
	records := btcFilters()
	records[1]["maxQty"] = "0"

	params, err := ExtractFilters(records)
	require.NoError(t, err)
	assert.True(t, params.LotSize.MaxQty.IsZero())
	assert.True(t, params.LotSize.MinQty.Equal(d("0.001")))
}
