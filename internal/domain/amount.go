package domain

import (
	"strings" // Input trimming

	"github.com/shopspring/decimal" // Fixed-point arithmetic
)

// AmountPlaces is the fixed precision of every balance and amount
const AmountPlaces = 2

// maxAmountDigits bounds the input accepted by ParseAmount
const maxAmountDigits = 40

// maxAmountScale bounds the exponent of an amount before it is rescaled
const maxAmountScale = 18

// MaxAmount is the largest amount a decimal(20,2) column holds
var MaxAmount = decimal.New(1, 18).Sub(decimal.New(1, -AmountPlaces))

// ParseAmount parses a user-supplied amount, rejecting anything that is not
// a positive value representable at two decimal places.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxAmountDigits {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks an already-parsed amount. The exponent is bounded
// before anything rescales it.
func ValidateAmount(d decimal.Decimal) error {
	if e := d.Exponent(); e < -maxAmountScale || e > maxAmountScale {
		return ErrInvalidAmount
	}
	if !d.IsPositive() || d.GreaterThan(MaxAmount) || !d.Equal(d.Round(AmountPlaces)) {
		return ErrInvalidAmount
	}
	return nil
}
