package sizing

import (
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/coinrank/internal/domain"
)

// ValidateQuantity checks minQty <= quantity <= maxQty and quantity*price >= minNotional.
// All bounds are inclusive. A zero maxQty means no upper bound.
func ValidateQuantity(quantity, minQty, maxQty, price, minNotional decimal.Decimal) error {
	if quantity.LessThan(minQty) {
		return &domain.BelowMinQuantityError{Quantity: quantity, MinQty: minQty}
	}
	if maxQty.IsPositive() && quantity.GreaterThan(maxQty) {
		return &domain.AboveMaxQuantityError{Quantity: quantity, MaxQty: maxQty}
	}
	if notional := quantity.Mul(price); notional.LessThan(minNotional) {
		return &domain.BelowMinNotionalError{Notional: notional, MinNotional: minNotional}
	}

	return nil
}
