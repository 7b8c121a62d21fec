package book

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Level is one price level of a snapshot. Desired books carry only the
// aggregate Amount; live books also carry the resting orders that make it up,
// in exchange source order.
type Level struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
	Orders []Order
}

// LevelBucket is the result of grouping a side against a set of price points:
// the aggregate amount assigned to that point plus, for live books, the
// contributing orders.
type LevelBucket struct {
	Amount decimal.Decimal
	Orders []Order
}

// Book is one snapshot of a side-keyed price structure. Snapshots are rebuilt
// every tick and never mutated across ticks.
type Book struct {
	sides map[Side][]Level
}

func NewBook() *Book {
	return &Book{sides: map[Side][]Level{}}
}

// AddLevel accumulates a desired amount at a price on one side.
func (b *Book) AddLevel(side Side, price, amount decimal.Decimal) {
	levels := b.sides[side]
	for i := range levels {
		if levels[i].Price.Equal(price) {
			levels[i].Amount = levels[i].Amount.Add(amount)
			b.sides[side] = levels
			return
		}
	}
	b.sides[side] = append(levels, Level{Price: price, Amount: amount})
}

// AddOrder inserts a live order, grouping it under its price level.
func (b *Book) AddOrder(o Order) {
	levels := b.sides[o.Side]
	for i := range levels {
		if levels[i].Price.Equal(o.Price) {
			levels[i].Amount = levels[i].Amount.Add(o.Amount)
			levels[i].Orders = append(levels[i].Orders, o)
			b.sides[o.Side] = levels
			return
		}
	}
	b.sides[o.Side] = append(levels, Level{Price: o.Price, Amount: o.Amount, Orders: []Order{o}})
}

// Levels returns one side sorted best-first: buys high to low, sells low to
// high.
func (b *Book) Levels(side Side) []Level {
	src := b.sides[side]
	levels := make([]Level, len(src))
	copy(levels, src)
	sort.SliceStable(levels, func(i, j int) bool {
		if side == Buy {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})
	return levels
}

// Orders flattens one side's live orders, best level first, source order
// within a level.
func (b *Book) Orders(side Side) []Order {
	var out []Order
	for _, lvl := range b.Levels(side) {
		out = append(out, lvl.Orders...)
	}
	return out
}

// BestPrice returns the most aggressive price for a side: highest bid,
// lowest ask. The second return is false when the side is empty.
func (b *Book) BestPrice(side Side) (decimal.Decimal, bool) {
	levels := b.sides[side]
	if len(levels) == 0 {
		return decimal.Zero, false
	}
	best := levels[0].Price
	for _, lvl := range levels[1:] {
		if side == Buy && lvl.Price.GreaterThan(best) {
			best = lvl.Price
		}
		if side == Sell && lvl.Price.LessThan(best) {
			best = lvl.Price
		}
	}
	return best, true
}

// Empty reports whether a side holds no levels.
func (b *Book) Empty(side Side) bool {
	return len(b.sides[side]) == 0
}

// GroupByLevel buckets one side into the index of the nearest price point.
// The result always has len(points) buckets; levels land in the bucket whose
// point price is closest, earlier index winning ties.
func (b *Book) GroupByLevel(side Side, points []PricePoint) []LevelBucket {
	if len(points) == 0 {
		return nil
	}
	buckets := make([]LevelBucket, len(points))
	for i := range buckets {
		buckets[i].Amount = decimal.Zero
	}
	for _, lvl := range b.Levels(side) {
		idx := nearestPoint(lvl.Price, points)
		buckets[idx].Amount = buckets[idx].Amount.Add(lvl.Amount)
		buckets[idx].Orders = append(buckets[idx].Orders, lvl.Orders...)
	}
	return buckets
}

func nearestPoint(price decimal.Decimal, points []PricePoint) int {
	idx := 0
	best := price.Sub(points[0].Price).Abs()
	for i := 1; i < len(points); i++ {
		d := price.Sub(points[i].Price).Abs()
		if d.LessThan(best) {
			best = d
			idx = i
		}
	}
	return idx
}
