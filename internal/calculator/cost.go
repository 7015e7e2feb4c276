// Package calculator holds the pure cost arithmetic shared by the optimizer
// and anything that displays prices. It has no side effects.
package calculator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for negative prices or quantities.
var ErrInvalidInput = errors.New("INVALID_INPUT")

// epsilon absorbs float noise when comparing cent amounts.
const epsilon = 1e-9

// ItemGate is the minimum improvement a quote must offer over an item's
// current total cost. Either bound is enough.
type ItemGate struct {
	MinSavings    float64 // absolute, e.g. 0.50
	MinSavingsPct float64 // relative to the original total, e.g. 0.10
}

// TotalCost returns what the shopper pays for an item:
// price × quantity when the price is per unit, otherwise price as-is.
func TotalCost(price, quantity float64, perUnit bool) (float64, error) {
	if price < 0 {
		return 0, fmt.Errorf("%w: price cannot be negative (%v)", ErrInvalidInput, price)
	}
	if quantity < 0 {
		return 0, fmt.Errorf("%w: quantity cannot be negative (%v)", ErrInvalidInput, quantity)
	}
	if perUnit {
		return price * quantity, nil
	}
	return price, nil
}

// RoundCents rounds to two decimal places, half away from zero.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Savings returns originalTotal - optimizedTotal rounded to cents.
// A negative result means the optimized option costs more.
func Savings(originalTotal, optimizedTotal float64) float64 {
	return RoundCents(originalTotal - optimizedTotal)
}

// MeetsItemGate reports whether savings qualifies against originalTotal.
// Savings must be positive and reach the absolute or the relative bound.
func MeetsItemGate(savings, originalTotal float64, gate ItemGate) bool {
	if savings <= epsilon {
		return false
	}
	if savings+epsilon >= gate.MinSavings {
		return true
	}
	if originalTotal <= 0 {
		return false
	}
	return savings/originalTotal+epsilon >= gate.MinSavingsPct
}

// Exceeds reports whether v is strictly greater than gate, ignoring float noise.
func Exceeds(v, gate float64) bool {
	return v > gate+epsilon
}

// Sum adds amounts and rounds the result to cents.
func Sum(amounts ...float64) float64 {
	var total float64
	for _, a := range amounts {
		total += a
	}
	return RoundCents(total)
}
