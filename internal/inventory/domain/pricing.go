package domain

import (
	"math"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// WeightedAveragePrice recomputes the average purchase price (in cents) after
// a stock-in of newQty units at newPrice. The result is weighted by quantity
// and rounded to the nearest cent, half away from zero.
//
// When oldQty is zero the incoming price defines the average. Returns
// ErrInvalidInput if oldQty is negative or newQty is not positive.
func WeightedAveragePrice(oldQty int, oldPrice int64, newQty int, newPrice int64) (int64, error) {
	if oldQty < 0 {
		return 0, apperrors.InvalidInput("old quantity cannot be negative")
	}
	if newQty <= 0 {
		return 0, apperrors.InvalidInput("new quantity must be positive")
	}

	if oldQty == 0 {
		return newPrice, nil
	}

	total := int64(oldQty)*oldPrice + int64(newQty)*newPrice
	return roundDiv(total, int64(oldQty+newQty)), nil
}

// InventoryValue returns the inventory value in cents for the given stock
// level and average purchase price. Negative inputs yield zero.
func InventoryValue(stock int, avgPrice int64) int64 {
	if stock < 0 || avgPrice < 0 {
		return 0
	}
	return int64(stock) * avgPrice
}

// Margin is the profit margin on a product: absolute amount in cents and
// percentage relative to cost.
type Margin struct {
	Amount     int64   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// ProfitMargin computes the margin between selling price and average purchase
// price. Cost-free inventory (avgPrice == 0) is treated as 100% margin.
func ProfitMargin(sellingPrice, avgPrice int64) Margin {
	if avgPrice == 0 {
		return Margin{Amount: sellingPrice, Percentage: 100}
	}

	amount := sellingPrice - avgPrice
	pct := float64(amount) / float64(avgPrice) * 100
	return Margin{
		Amount:     amount,
		Percentage: round2(pct),
	}
}

// roundDiv divides a by b rounding to the nearest integer, half away from zero.
func roundDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	q := a / b
	r := a % b
	if r == 0 {
		return q
	}
	if 2*abs(r) >= abs(b) {
		if (a < 0) != (b < 0) {
			return q - 1
		}
		return q + 1
	}
	return q
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
