// Package money holds the decimal helpers and server-side amount checks shared by
// requisitions and payments.
package money

import (
	"github.com/shopspring/decimal"

	"github.com/brickflow/brickflow/internal/shared"
)

// Tolerance is the absolute difference, in currency units, below which two amounts
// are considered equal.
var Tolerance = decimal.New(1, -2)

// Scale is the number of decimal places persisted for amounts.
const Scale = 2

// Equal reports whether a and b differ by at most Tolerance.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// Round rounds d to the persisted scale.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Format renders d with the persisted scale.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// VerifyTotal fails with CalculationMismatch when submitted differs from
// quantity x unitPrice by more than Tolerance.
func VerifyTotal(quantity, unitPrice, submitted decimal.Decimal) error {
	expected := quantity.Mul(unitPrice)
	if Equal(expected, submitted) {
		return nil
	}
	return shared.NewCalculationMismatch(expected, submitted, quantity, unitPrice)
}

// VerifyPriceUnchanged fails with PriceChanged when the client-side price is stale.
func VerifyPriceUnchanged(current, submitted decimal.Decimal) error {
	if Equal(current, submitted) {
		return nil
	}
	return shared.NewPriceChanged(current, submitted)
}

// VerifyPaymentWithinBounds fails with PaymentExceedsOrder when attempted, the new
// absolute received amount, is above total. alreadyReceived is the persisted amount
// before the change. The bound is exact: amount_received <= total_amount is a storage
// constraint, so no tolerance applies.
func VerifyPaymentWithinBounds(total, alreadyReceived, attempted decimal.Decimal) error {
	if attempted.LessThanOrEqual(total) {
		return nil
	}
	return shared.NewPaymentExceedsOrder(total, attempted, alreadyReceived, total.Sub(alreadyReceived))
}
