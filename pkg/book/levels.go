package book

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PricePoint is a target level plus the actual price an order should be
// placed at for that level. WeightedPrice starts equal to Price and is
// adjusted by the strategy (precision, FX).
type PricePoint struct {
	Price         decimal.Decimal
	WeightedPrice decimal.Decimal
}

// StepFunc returns the price offset of level i from the starting price.
type StepFunc func(i int, size decimal.Decimal) decimal.Decimal

// Step policies are resolved once at configuration-load time; an unknown
// name is a configuration error, never a runtime lookup.
var stepFuncs = map[string]StepFunc{
	"constant": func(i int, size decimal.Decimal) decimal.Decimal {
		return size
	},
	"linear": func(i int, size decimal.Decimal) decimal.Decimal {
		return size.Mul(decimal.NewFromInt(int64(i + 1)))
	},
	"exp": func(i int, size decimal.Decimal) decimal.Decimal {
		return size.Mul(decimal.NewFromFloat(math.Exp(float64(i))))
	},
}

// StepPolicy resolves a step policy by name.
func StepPolicy(name string) (StepFunc, error) {
	fn, ok := stepFuncs[name]
	if !ok {
		return nil, fmt.Errorf("unknown levels price function %q", name)
	}
	return fn, nil
}

// PricePoints generates count target levels walking away from start: upward
// for sells, downward for buys. Level 0 sits at the starting price itself.
func PricePoints(side Side, start decimal.Decimal, count int, step StepFunc, size decimal.Decimal) []PricePoint {
	points := make([]PricePoint, 0, count)
	price := start
	for i := 0; i < count; i++ {
		if i > 0 {
			offset := step(i-1, size)
			if side == Sell {
				price = price.Add(offset)
			} else {
				price = price.Sub(offset)
			}
		}
		points = append(points, PricePoint{Price: price, WeightedPrice: price})
	}
	return points
}
