// Package money implements the fixed-point amounts moved by the ledger.
// Amounts are integer minor units; currency and precision must match across
// operands of every arithmetic operation.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an immutable amount in minor units
type Money struct {
	Amount    int64  `json:"amount" bson:"amount"`
	Precision int    `json:"precision" bson:"precision"`
	Currency  string `json:"currency" bson:"currency"`
}

// ErrIncompatible indicates an operation between amounts of different currency or precision
type ErrIncompatible struct {
	Left  Money
	Right Money
}

func (e ErrIncompatible) Error() string {
	return fmt.Sprintf("incompatible amounts: %s/%d and %s/%d", e.Left.Currency, e.Left.Precision, e.Right.Currency, e.Right.Precision)
}

// New creates an amount of minor units
func New(amount int64, currency string, precision int) Money {
	return Money{Amount: amount, Precision: precision, Currency: currency}
}

// Parse reads a decimal string in major units such as "-12.50". More decimals
// than the precision allows is an error rather than a rounding.
func Parse(s, currency string, precision int) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	minor := d.Shift(int32(precision))
	if !minor.Equal(minor.Truncate(0)) {
		return Money{}, fmt.Errorf("invalid amount %q: more than %d decimals", s, precision)
	}
	return New(minor.IntPart(), currency, precision), nil
}

// Zero returns a zero amount in the given currency
func Zero(currency string, precision int) Money {
	return New(0, currency, precision)
}

// Compatible reports whether both amounts share currency and precision
func (m Money) Compatible(other Money) bool {
	return m.Currency == other.Currency && m.Precision == other.Precision
}

func (m Money) Add(other Money) (Money, error) {
	if !m.Compatible(other) {
		return Money{}, ErrIncompatible{Left: m, Right: other}
	}
	return New(m.Amount+other.Amount, m.Currency, m.Precision), nil
}

func (m Money) Subtract(other Money) (Money, error) {
	return m.Add(other.Negate())
}

// Multiply scales the amount by an integer factor, e.g. a row quantity
func (m Money) Multiply(factor int64) Money {
	return New(m.Amount*factor, m.Currency, m.Precision)
}

func (m Money) Negate() Money {
	return New(-m.Amount, m.Currency, m.Precision)
}

// Abs returns the magnitude of the amount
func (m Money) Abs() Money {
	if m.Amount < 0 {
		return m.Negate()
	}
	return m
}

func (m Money) IsZero() bool     { return m.Amount == 0 }
func (m Money) IsPositive() bool { return m.Amount > 0 }
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Cmp compares two compatible amounts and returns -1, 0 or +1
func (m Money) Cmp(other Money) (int, error) {
	if !m.Compatible(other) {
		return 0, ErrIncompatible{Left: m, Right: other}
	}
	switch {
	case m.Amount < other.Amount:
		return -1, nil
	case m.Amount > other.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// Decimal returns the amount in major units
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -int32(m.Precision))
}

// ExcludingVAT removes the given VAT percentage from an amount that includes it.
// The result is rounded to the amount's precision with banker's rounding
// (half to even), so 0.5 minor units never drift in one direction over many rows.
func (m Money) ExcludingVAT(percentage float64) Money {
	if percentage == 0 {
		return m
	}
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(percentage).Div(decimal.NewFromInt(100)))
	excl := m.Decimal().Div(factor).RoundBank(int32(m.Precision))
	return New(excl.Shift(int32(m.Precision)).IntPart(), m.Currency, m.Precision)
}

// String formats the amount as "EUR 8.00"
func (m Money) String() string {
	return m.Currency + " " + m.Decimal().StringFixed(int32(m.Precision))
}

// Sum adds all amounts, starting from zero in the given currency
func Sum(currency string, precision int, amounts ...Money) (Money, error) {
	total := Zero(currency, precision)
	for _, amount := range amounts {
		var err error
		if total, err = total.Add(amount); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
