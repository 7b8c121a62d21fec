package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketmaker/pkg/book"
)

// riskyPriorityBase puts risky-order cancellations ahead of every level
// adjustment: an order resting at a now-undesirable price is immediate risk.
const riskyPriorityBase = 1e9

// levelPriorityBase scales level adjustments; levels nearer the best price
// come first.
const levelPriorityBase = 1e3

// Smart computes a minimal adjustment plan. Live orders priced more
// aggressively than the new desired best are cancelled outright; the rest of
// the book is diffed level by level against the desired amounts. The result
// is unordered, carrying explicit priorities; SortByPriority (or the
// executor) decides dispatch order.
func Smart(current, desired *book.Book, market string, points map[book.Side][]book.PricePoint, maxAmountPerOrder decimal.Decimal) ([]Action, error) {
	if err := validateDesired(desired); err != nil {
		return nil, err
	}

	var out []Action
	for _, side := range book.Sides {
		risky := map[string]bool{}
		if best, ok := desired.BestPrice(side); ok {
			out = append(out, cancelRiskyOrders(current, side, best, market, risky)...)
		}
		out = append(out, adjustLevels(current, desired, side, points[side], market, maxAmountPerOrder, risky)...)
	}
	return out, nil
}

// cancelRiskyOrders stops every live order priced more aggressively than the
// desired best on its side. Priority grows with the distance from the new
// best: the further inside, the more urgent.
func cancelRiskyOrders(current *book.Book, side book.Side, desiredBest decimal.Decimal, market string, risky map[string]bool) []Action {
	var out []Action
	for _, o := range current.Orders(side) {
		aggressive := false
		if side == book.Sell {
			aggressive = o.Price.LessThan(desiredBest)
		} else {
			aggressive = o.Price.GreaterThan(desiredBest)
		}
		if !aggressive {
			continue
		}
		dist, _ := o.Price.Sub(desiredBest).Abs().Float64()
		out = append(out, Action{
			Type:     ActionStop,
			Market:   market,
			Order:    o,
			ID:       o.ID,
			Priority: riskyPriorityBase + dist,
		})
		risky[o.ID] = true
	}
	return out
}

// adjustLevels diffs live against desired amounts per price level. A deficit
// stops live orders at the level in source order until covered; a surplus
// creates orders at the level's weighted price, split at maxAmountPerOrder.
// Orders already flagged risky are excluded so they are not stopped twice.
func adjustLevels(current, desired *book.Book, side book.Side, points []book.PricePoint, market string, maxAmountPerOrder decimal.Decimal, risky map[string]bool) []Action {
	if len(points) == 0 {
		// No target levels for the side: everything live is unwanted.
		var out []Action
		for _, o := range current.Orders(side) {
			if risky[o.ID] {
				continue
			}
			out = append(out, Action{
				Type:     ActionStop,
				Market:   market,
				Order:    o,
				ID:       o.ID,
				Priority: levelPriorityBase,
			})
		}
		return out
	}

	curBuckets := current.GroupByLevel(side, points)
	desBuckets := desired.GroupByLevel(side, points)

	var out []Action
	for i := range points {
		var orders []book.Order
		currentAmount := decimal.Zero
		for _, o := range curBuckets[i].Orders {
			if risky[o.ID] {
				continue
			}
			orders = append(orders, o)
			currentAmount = currentAmount.Add(o.Amount)
		}

		diff := desBuckets[i].Amount.Sub(currentAmount)
		priority := levelPriorityBase * (1 + 1/float64(i+1))

		switch {
		case diff.IsNegative():
			need := diff.Neg()
			for _, o := range orders {
				if !need.IsPositive() {
					break
				}
				out = append(out, Action{
					Type:     ActionStop,
					Market:   market,
					Order:    o,
					ID:       o.ID,
					Priority: priority,
				})
				need = need.Sub(o.Amount)
			}
		case diff.IsPositive():
			price := points[i].WeightedPrice
			if !price.IsPositive() {
				continue
			}
			remaining := diff
			for remaining.IsPositive() {
				chunk := remaining
				if maxAmountPerOrder.IsPositive() && chunk.GreaterThan(maxAmountPerOrder) {
					chunk = maxAmountPerOrder
				}
				out = append(out, Action{
					Type:   ActionCreate,
					Market: market,
					Order: book.Order{
						Market: market,
						Price:  price,
						Amount: chunk,
						Side:   side,
					},
					Priority: priority,
				})
				remaining = remaining.Sub(chunk)
			}
		}
	}
	return out
}
