package schedule

import (
	"errors"
	"sort"

	"github.com/uhyunpark/marketmaker/pkg/book"
)

// ErrInvalidOrderBook means the desired book crosses itself. The tick's
// scheduling run is skipped; the pipeline retries next tick.
var ErrInvalidOrderBook = errors.New("invalid order book: Ask price < Bid price")

type ActionType int8

const (
	ActionCreate ActionType = iota
	ActionStop
)

func (t ActionType) String() string {
	switch t {
	case ActionCreate:
		return "create"
	case ActionStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Action is an immutable intent against the target exchange. Higher
// priority dispatches first; both schedulers emit explicit priorities under
// that single convention.
type Action struct {
	Type     ActionType
	Market   string
	Order    book.Order
	ID       string // exchange order id, stop actions only
	Priority float64
}

// SortByPriority orders actions for dispatch, highest priority first.
// The sort is stable so equal priorities keep scheduler emission order.
func SortByPriority(actions []Action) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority > actions[j].Priority
	})
}

// validateDesired rejects a crossed desired book.
func validateDesired(desired *book.Book) error {
	bestSell, okSell := desired.BestPrice(book.Sell)
	bestBuy, okBuy := desired.BestPrice(book.Buy)
	if okSell && okBuy && bestSell.LessThanOrEqual(bestBuy) {
		return ErrInvalidOrderBook
	}
	return nil
}
