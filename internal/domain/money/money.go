// Package money holds the fixed-point arithmetic used for quote totals.
//
// Amounts are shopspring decimals end to end: requests, storage and responses never
// pass through float64. Line totals are rounded to Scale places, ties away from zero,
// which is round-half-up for the non-negative amounts quotes carry.
package money

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept for monetary amounts.
const Scale int32 = 2

// Zero is the additive identity at money scale.
var Zero = decimal.Zero

// Round rounds d to Scale places, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// LineTotal returns round2(quantity × rate).
func LineTotal(quantity, rate decimal.Decimal) decimal.Decimal {
	return Round(quantity.Mul(rate))
}

// Sum adds values exactly. An empty input sums to zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Equal compares by value, so 2.5 and 2.50 are equal.
func Equal(a, b decimal.Decimal) bool {
	return a.Equal(b)
}

// Format renders d with exactly Scale places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Parse reads an exact decimal from its string form.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("money: empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// maxInspectedPlaces bounds the trailing-zero scan in Shape. Anything with more places than
// this is reported without trimming.
const maxInspectedPlaces = 64

// Shape returns the number of integer digits and significant decimal places of d without
// materializing it, so inputs like 1e20000000 are cheap to reject. Trailing fractional
// zeros do not count as places: 1.50 has one.
func Shape(d decimal.Decimal) (intDigits, places int) {
	exp := int(d.Exponent())
	digits := d.NumDigits()
	if d.IsZero() {
		return 0, 0
	}
	if exp >= 0 {
		return digits + exp, 0
	}
	places = -exp
	if places <= maxInspectedPlaces {
		c := d.Coefficient()
		c.Abs(c)
		ten := big.NewInt(10)
		rem := new(big.Int)
		for places > 0 {
			q, r := new(big.Int).QuoRem(c, ten, rem)
			if r.Sign() != 0 {
				break
			}
			c = q
			places--
			exp++
		}
		digits = len(c.String())
	}
	if intDigits = digits + exp; intDigits < 0 {
		intDigits = 0
	}
	return intDigits, places
}
