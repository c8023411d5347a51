// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents; decimal.Decimal is only used at the
// edges where user input is parsed or amounts are rendered.
package core

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// MaxCents is the largest amount a single transaction may carry.
const MaxCents int64 = 1_000_000_000_000_000

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountOverflow = errors.New("amount out of range")
)

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxCents)
)

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Only
// strictly positive amounts up to MaxCents are accepted.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() || cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// FromDecimal converts a decimal amount to Money, rounding half away from zero.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals, e.g. "-12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxCents {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// CheckedAdd is Add that reports int64 overflow instead of wrapping.
func (m Money) CheckedAdd(o Money) (Money, error) {
	if (o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents) || (o.Cents < 0 && m.Cents < math.MinInt64-o.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: m.Cents + o.Cents}, nil
}

// CheckedSub is Sub that reports int64 overflow instead of wrapping.
func (m Money) CheckedSub(o Money) (Money, error) {
	if (o.Cents < 0 && m.Cents > math.MaxInt64+o.Cents) || (o.Cents > 0 && m.Cents < math.MinInt64+o.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: m.Cents - o.Cents}, nil
}

func (m Money) IsNegative() bool {
	return m.Cents < 0
}
