package reports

import (
	"github.com/shopspring/decimal"
)

// Money is an amount kept in floating point while aggregating. It is only
// rounded to cents when rendered.
type Money float64

// LineAmount is price × quantity.
func LineAmount(price float64, quantity int) Money {
	return Money(price * float64(quantity))
}

// String renders the amount with two decimals.
func (m Money) String() string {
	return decimal.NewFromFloat(float64(m)).StringFixed(2)
}

// MarshalJSON renders the amount as a fixed two-decimal JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}
