package aggregator

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// extraPrecision is the number of fractional digits kept beyond the finest
// input when dividing. More than float64 can carry.
const extraPrecision = 16

// Mean computes the arithmetic mean of prices in decimal arithmetic.
// The mean of equal values is that value exactly.
func Mean(prices []decimal.Decimal) (decimal.Decimal, error) {
	if len(prices) == 0 {
		return decimal.Zero, ErrNoValues
	}

	sum := decimal.Zero
	var scale int32
	for _, price := range prices {
		sum = sum.Add(price)
		if exp := -price.Exponent(); exp > scale {
			scale = exp
		}
	}

	count := decimal.NewFromInt(int64(len(prices)))
	return sum.DivRound(count, scale+extraPrecision), nil
}

// Aggregate computes the consensus value: the arithmetic mean of the
// verified worker means.
func Aggregate(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoValues
	}

	prices := make([]decimal.Decimal, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: value %d is %v", ErrNonFinite, i, v)
		}
		prices = append(prices, decimal.NewFromFloat(v))
	}

	mean, err := Mean(prices)
	if err != nil {
		return 0, err
	}

	f, _ := mean.Float64()
	return f, nil
}
