package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketmaker/pkg/book"
)

// Simple computes a full teardown-and-rebuild plan: stop every live order,
// create every desired level, woven per side so that creates never outrun
// the amount freed by earlier stops.
//
// The side whose new quotes are least likely to cross the live book goes
// first. Output priorities encode the emission order (strictly decreasing),
// so a priority sort reproduces it exactly.
func Simple(current, desired *book.Book, market string) ([]Action, error) {
	if err := validateDesired(desired); err != nil {
		return nil, err
	}

	stops := map[book.Side][]Action{}
	creates := map[book.Side][]Action{}
	for _, side := range book.Sides {
		for _, o := range current.Orders(side) {
			stops[side] = append(stops[side], Action{
				Type:   ActionStop,
				Market: market,
				Order:  o,
				ID:     o.ID,
			})
		}
		for _, lvl := range desired.Levels(side) {
			if !lvl.Price.IsPositive() || !lvl.Amount.IsPositive() {
				continue
			}
			creates[side] = append(creates[side], Action{
				Type:   ActionCreate,
				Market: market,
				Order: book.Order{
					Market: market,
					Price:  lvl.Price,
					Amount: lvl.Amount,
					Side:   side,
				},
			})
		}
	}

	order := []book.Side{book.Sell, book.Buy}
	desiredBestBuy, hasDesiredBuy := desired.BestPrice(book.Buy)
	currentBestSell, hasCurrentSell := current.BestPrice(book.Sell)
	if hasDesiredBuy && hasCurrentSell && desiredBestBuy.LessThan(currentBestSell) {
		order = []book.Side{book.Buy, book.Sell}
	}

	var out []Action
	for _, side := range order {
		out = append(out, weave(stops[side], creates[side])...)
	}
	for i := range out {
		out[i].Priority = float64(len(out) - i)
	}
	return out, nil
}

// weave interleaves one side's stops and creates under a freed-amount
// accumulator: a create is only emitted once earlier stops have freed at
// least its amount. Once stops run out the remaining creates follow as is.
func weave(stops, creates []Action) []Action {
	out := make([]Action, 0, len(stops)+len(creates))
	freed := decimal.Zero
	ci := 0
	for _, s := range stops {
		freed = freed.Add(s.Order.Amount)
		out = append(out, s)
		for ci < len(creates) && creates[ci].Order.Amount.LessThanOrEqual(freed) {
			freed = freed.Sub(creates[ci].Order.Amount)
			out = append(out, creates[ci])
			ci++
		}
	}
	out = append(out, creates[ci:]...)
	return out
}
