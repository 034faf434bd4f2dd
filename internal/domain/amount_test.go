package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	for _, in := range []string{"250.00", "0.01", "1", " 12.5 ", "999999999999999999.99", "1.5e2"} {
		d, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.True(t, d.IsPositive(), in)
	}

	for _, in := range []string{"0", "0.00", "-1", "1.001", "abc", "", "1000000000000000000", "1e19"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestParseAmountRejectsExtremeExponentsQuickly(t *testing.T) {
	start := time.Now()
	for _, in := range []string{"1e5000000", "1e-5000000", "1e20000000", "1" + strings.Repeat("0", 100)} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	// Amounts built in code still go through the exponent check
	assert.ErrorIs(t, ValidateAmount(decimal.New(1, 20000000)), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(decimal.New(1, -5000000)), ErrInvalidAmount)
}

func TestValidateAmountTrailingZeros(t *testing.T) {
	// 1.500 has three fractional digits but is exactly representable at two
	assert.NoError(t, ValidateAmount(decimal.RequireFromString("1.500")))
	assert.ErrorIs(t, ValidateAmount(decimal.RequireFromString("1.505")), ErrInvalidAmount)
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "bob@example.com", NormalizeIdentifier("  Bob@Example.COM "))
}

func TestTransferRecordValidate(t *testing.T) {
	rec := TransferRecord{
		FromAccountID: "a",
		ToAccountID:   "b",
		Amount:        decimal.RequireFromString("1.00"),
		Type:          TypeTransfer,
	}
	assert.NoError(t, rec.Validate(false))
	assert.True(t, errors.Is(rec.Validate(true), ErrMalformedRecord))

	self := rec
	self.ToAccountID = "a"
	assert.ErrorIs(t, self.Validate(false), ErrSelfTransfer)

	zero := rec
	zero.Amount = decimal.Zero
	assert.ErrorIs(t, zero.Validate(false), ErrInvalidAmount)
}

func TestDirectionFor(t *testing.T) {
	rec := TransferRecord{FromAccountID: "a", ToAccountID: "b", FromDisplayName: "A", ToDisplayName: "B"}
	assert.Equal(t, DirectionOut, rec.DirectionFor("a"))
	assert.Equal(t, DirectionIn, rec.DirectionFor("b"))

	id, name := rec.Counterparty("b")
	assert.Equal(t, "a", id)
	assert.Equal(t, "A", name)
}

func TestUnavailableWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("get account", cause)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Unavailable("noop", nil))
}
