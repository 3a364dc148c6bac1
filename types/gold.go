package types

import (
	"fmt"
	"math"
	"strconv"
)

// Gold is an amount of shop currency. The shop trades in whole gold pieces
// only, so all arithmetic is integer-only.
type Gold int64

// Add returns g + other.
func (g Gold) Add(other Gold) Gold { return g + other }

// Times returns the price of qty units at g each.
func (g Gold) Times(qty int64) Gold { return g * Gold(qty) }

// AddChecked returns g + other, or false when the sum overflows.
func (g Gold) AddChecked(other Gold) (Gold, bool) {
	sum, ok := AddInt64(int64(g), int64(other))
	return Gold(sum), ok
}

// TimesChecked returns the price of qty units at g each, or false when
// the product overflows.
func (g Gold) TimesChecked(qty int64) (Gold, bool) {
	p, ok := MulInt64(int64(g), qty)
	return Gold(p), ok
}

// Negate returns the negative of g.
func (g Gold) Negate() Gold { return -g }

// IsZero returns true if the amount is zero.
func (g Gold) IsZero() bool { return g == 0 }

// IsPositive returns true if the amount is greater than zero.
func (g Gold) IsPositive() bool { return g > 0 }

// IsNegative returns true if the amount is less than zero.
func (g Gold) IsNegative() bool { return g < 0 }

// Int64 returns the raw amount for storage.
func (g Gold) Int64() int64 { return int64(g) }

// String returns a human-readable amount, e.g. "150 gold".
func (g Gold) String() string {
	return strconv.FormatInt(int64(g), 10) + " gold"
}

// ParseGold parses a plain decimal amount.
func ParseGold(s string) (Gold, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("gold: parse %q: %w", s, err)
	}
	return Gold(v), nil
}

// SumGold calculates the sum of multiple Gold values.
func SumGold(values ...Gold) Gold {
	var total Gold
	for _, v := range values {
		total += v
	}
	return total
}

// AddInt64 returns a + b, or false when the sum overflows.
func AddInt64(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// MulInt64 returns a * b, or false when the product overflows.
func MulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}
