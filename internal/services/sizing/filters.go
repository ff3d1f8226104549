// Package sizing turns a quote budget and exchange symbol filters into
// order quantities and protective trigger prices that the exchange accepts.
package sizing

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

// ExtractFilters reads the filters needed for sizing out of raw exchange records.
// For each kind the first matching record wins. The legacy MIN_NOTIONAL record
// stands in for NOTIONAL when the latter is absent.
func ExtractFilters(records []domain.FilterRecord) (domain.FilterParams, error) {
	byKind := make(map[domain.FilterKind]domain.FilterRecord, len(records))
	for _, r := range records {
		kind := r.Kind()
		if _, seen := byKind[kind]; !seen {
			byKind[kind] = r
		}
	}
	if _, ok := byKind[domain.FilterNotional]; !ok {
		if legacy, ok := byKind[domain.FilterMinNotional]; ok {
			byKind[domain.FilterNotional] = legacy
		}
	}

	required := []domain.FilterKind{
		domain.FilterPrice,
		domain.FilterLotSize,
		domain.FilterNotional,
		domain.FilterTrailingDelta,
	}
	for _, kind := range required {
		if _, ok := byKind[kind]; !ok {
			return domain.FilterParams{}, &domain.MissingFilterError{Kind: kind}
		}
	}

	var (
		params domain.FilterParams
		p      = fieldParser{}
	)

	price := byKind[domain.FilterPrice]
	params.Price.MinPrice = p.parse(price, domain.FilterPrice, "minPrice")
	params.Price.MaxPrice = p.parse(price, domain.FilterPrice, "maxPrice")
	params.Price.TickSize = p.parse(price, domain.FilterPrice, "tickSize")

	lot := byKind[domain.FilterLotSize]
	params.LotSize.MinQty = p.parse(lot, domain.FilterLotSize, "minQty")
	params.LotSize.MaxQty = p.parse(lot, domain.FilterLotSize, "maxQty")
	params.LotSize.StepSize = p.parse(lot, domain.FilterLotSize, "stepSize")

	params.Notional.MinNotional = p.parse(byKind[domain.FilterNotional], domain.FilterNotional, "minNotional")

	td := byKind[domain.FilterTrailingDelta]
	params.TrailingDelta.MinAbove = p.parse(td, domain.FilterTrailingDelta, "minTrailingAboveDelta")
	params.TrailingDelta.MaxAbove = p.parse(td, domain.FilterTrailingDelta, "maxTrailingAboveDelta")
	params.TrailingDelta.MinBelow = p.parse(td, domain.FilterTrailingDelta, "minTrailingBelowDelta")
	params.TrailingDelta.MaxBelow = p.parse(td, domain.FilterTrailingDelta, "maxTrailingBelowDelta")

	if p.err != nil {
		return domain.FilterParams{}, p.err
	}

	if !params.Price.TickSize.IsPositive() {
		return domain.FilterParams{}, &domain.InvalidStepSizeError{Step: params.Price.TickSize}
	}
	if !params.LotSize.StepSize.IsPositive() {
		return domain.FilterParams{}, &domain.InvalidStepSizeError{Step: params.LotSize.StepSize}
	}
	if lot := params.LotSize; lot.MaxQty.IsPositive() && lot.MinQty.GreaterThan(lot.MaxQty) {
		return domain.FilterParams{}, &domain.MalformedFilterError{
			Kind:   domain.FilterLotSize,
			Field:  "minQty",
			Value:  params.LotSize.MinQty.String(),
			Reason: "greater than maxQty " + params.LotSize.MaxQty.String(),
		}
	}

	return params, nil
}

// fieldParser keeps the first parse error so the caller can read all fields in sequence.
type fieldParser struct {
	err error
}

func (p *fieldParser) parse(record domain.FilterRecord, kind domain.FilterKind, field string) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}

	raw, ok := record[field]
	if !ok || raw == nil {
		p.err = &domain.MalformedFilterError{Kind: kind, Field: field, Value: raw, Reason: "value is missing"}
		return decimal.Zero
	}

	v, err := toDecimal(raw)
	if err != nil {
		p.err = &domain.MalformedFilterError{Kind: kind, Field: field, Value: raw, Reason: "value is not numeric"}
		return decimal.Zero
	}
	if v.IsNegative() {
		p.err = &domain.MalformedFilterError{Kind: kind, Field: field, Value: raw, Reason: "value is negative"}
		return decimal.Zero
	}

	return v
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, errNotFinite
		}
		return decimal.NewFromFloat(v), nil
	case float32:
		return toDecimal(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt(int64(v)), nil
	case decimal.Decimal:
		return v, nil
	default:
		return decimal.Zero, errUnsupportedType
	}
}
