package domain

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Error classes. Every typed error below matches exactly one of them via errors.Is.
var (
	ErrConfiguration       = errors.New("configuration error")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrMissingData         = errors.New("missing data")
)

// MissingFilterError a required symbol filter is absent.
type MissingFilterError struct {
	Kind FilterKind
}

func (e *MissingFilterError) Error() string {
	return fmt.Sprintf("required filter %s is missing", e.Kind)
}

func (e *MissingFilterError) Is(target error) bool { return target == ErrConfiguration }

// MalformedFilterError a filter field is absent, non-numeric or out of range.
type MalformedFilterError struct {
	Kind   FilterKind
	Field  string
	Value  any
	Reason string
}

func (e *MalformedFilterError) Error() string {
	return fmt.Sprintf("malformed %s.%s value %v: %s", e.Kind, e.Field, e.Value, e.Reason)
}

func (e *MalformedFilterError) Is(target error) bool { return target == ErrConfiguration }

// InvalidStepSizeError step or tick size is not positive.
type InvalidStepSizeError struct {
	Step decimal.Decimal
}

func (e *InvalidStepSizeError) Error() string {
	return fmt.Sprintf("step size must be positive, got %s", e.Step.String())
}

func (e *InvalidStepSizeError) Is(target error) bool { return target == ErrConfiguration }

// InvalidInputError a sizing input such as price or budget is out of domain.
type InvalidInputError struct {
	Field string
	Value decimal.Decimal
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Value.String())
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrConfiguration }

// InvertedThresholdsError the sell threshold is above the buy threshold.
type InvertedThresholdsError struct {
	Sell float64
	Buy  float64
}

func (e *InvertedThresholdsError) Error() string {
	return fmt.Sprintf("sell threshold %.2f is greater than buy threshold %.2f", e.Sell, e.Buy)
}

func (e *InvertedThresholdsError) Is(target error) bool { return target == ErrConfiguration }

// BelowMinQuantityError quantity is under LOT_SIZE.minQty.
type BelowMinQuantityError struct {
	Quantity decimal.Decimal
	MinQty   decimal.Decimal
}

func (e *BelowMinQuantityError) Error() string {
	return fmt.Sprintf("quantity %s is below the minimum allowed quantity of %s",
		e.Quantity.String(), e.MinQty.String())
}

func (e *BelowMinQuantityError) Is(target error) bool { return target == ErrConstraintViolation }

// AboveMaxQuantityError quantity is over LOT_SIZE.maxQty.
type AboveMaxQuantityError struct {
	Quantity decimal.Decimal
	MaxQty   decimal.Decimal
}

func (e *AboveMaxQuantityError) Error() string {
	return fmt.Sprintf("quantity %s exceeds the maximum allowed quantity of %s",
		e.Quantity.String(), e.MaxQty.String())
}

func (e *AboveMaxQuantityError) Is(target error) bool { return target == ErrConstraintViolation }

// BelowMinNotionalError quantity*price is under NOTIONAL.minNotional.
type BelowMinNotionalError struct {
	Notional    decimal.Decimal
	MinNotional decimal.Decimal
}

func (e *BelowMinNotionalError) Error() string {
	return fmt.Sprintf("total value %s is below the minimum notional value of %s",
		e.Notional.String(), e.MinNotional.String())
}

func (e *BelowMinNotionalError) Is(target error) bool { return target == ErrConstraintViolation }

// MissingIndicatorError an indicator needed for scoring is absent or not finite.
type MissingIndicatorError struct {
	Field  Field
	Reason string
}

func (e *MissingIndicatorError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("indicator %s is missing", e.Field)
	}
	return fmt.Sprintf("indicator %s is missing: %s", e.Field, e.Reason)
}

func (e *MissingIndicatorError) Is(target error) bool { return target == ErrMissingData }

// MissingMarketDataError the exchange returned nothing usable for a coin.
type MissingMarketDataError struct {
	Coin   string
	Reason string
}

func (e *MissingMarketDataError) Error() string {
	return fmt.Sprintf("no market data for %s: %s", e.Coin, e.Reason)
}

func (e *MissingMarketDataError) Is(target error) bool { return target == ErrMissingData }

// ProtectionError the market order was filled but its protective orders were not placed.
type ProtectionError struct {
	Coin    string
	OrderID string
	Err     error
}

func (e *ProtectionError) Error() string {
	return fmt.Sprintf("order %s for %s filled without protection: %v", e.OrderID, e.Coin, e.Err)
}

func (e *ProtectionError) Unwrap() error { return e.Err }

// ErrorKind classifies an error for logs and metric labels.
func ErrorKind(err error) string {
	var protection *ProtectionError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &protection):
		return "protection"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint"
	case errors.Is(err, ErrMissingData):
		return "missing_data"
	default:
		return "exchange"
	}
}
