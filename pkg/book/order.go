package book

import "github.com/shopspring/decimal"

// Side defines which half of the book an order rests on
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Sides in priority order: buys before sells, matching the scheduler's
// default iteration.
var Sides = []Side{Buy, Sell}

// Order is a single resting (or intended) order. ID is assigned by the
// exchange once placed; an order that has not been created yet carries an
// empty ID.
type Order struct {
	Market string
	Price  decimal.Decimal
	Amount decimal.Decimal
	Side   Side
	ID     string
}
