package sizing

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

var (
	errNotFinite       = errors.New("value is not finite")
	errUnsupportedType = errors.New("unsupported value type")

	two = decimal.NewFromInt(2)
)

// RoundToStep rounds value to the nearest multiple of step, ties away from zero.
// The computation is exact: 3.258e-05 with a step of 1e-08 stays 3.258e-05.
func RoundToStep(value, step decimal.Decimal) (decimal.Decimal, error) {
	if !step.IsPositive() {
		return decimal.Zero, &domain.InvalidStepSizeError{Step: step}
	}

	q, r := value.QuoRem(step, 0)
	if r.Abs().Mul(two).GreaterThanOrEqual(step) {
		q = q.Add(decimal.NewFromInt(int64(value.Sign())))
	}

	return q.Mul(step), nil
}

// FloorToStep truncates value toward zero to a multiple of step.
func FloorToStep(value, step decimal.Decimal) (decimal.Decimal, error) {
	if !step.IsPositive() {
		return decimal.Zero, &domain.InvalidStepSizeError{Step: step}
	}

	q, _ := value.QuoRem(step, 0)
	return q.Mul(step), nil
}

// FormatPrice renders price with as many decimals as the normalised tick has,
// so "0.01000000" yields two decimals.
func FormatPrice(price, tick decimal.Decimal) (string, error) {
	places, err := decimalPlaces(tick)
	if err != nil {
		return "", err
	}

	return price.StringFixed(places), nil
}

func decimalPlaces(tick decimal.Decimal) (int32, error) {
	if !tick.IsPositive() {
		return 0, &domain.InvalidStepSizeError{Step: tick}
	}

	maxPlaces := -tick.Exponent()
	for p := int32(0); p < maxPlaces; p++ {
		if tick.Shift(p).IsInteger() {
			return p, nil
		}
	}
	if maxPlaces < 0 {
		return 0, nil
	}

	return maxPlaces, nil
}
