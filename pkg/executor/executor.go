package executor

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/uhyunpark/marketmaker/pkg/exchange"
	"github.com/uhyunpark/marketmaker/pkg/schedule"
)

// Result is the outcome of one dispatched action. Err is nil on success;
// cancelling an order the exchange no longer holds counts as success.
type Result struct {
	Action schedule.Action
	Err    error
}

// Executor dispatches a scheduled batch against one exchange adapter.
// Actions are independent: a failed one is logged and the batch continues.
// There is no rollback; the next tick re-diffs from live state.
type Executor struct {
	ex       exchange.Exchange
	log      *zap.SugaredLogger
	onResult func(Result)
}

type Option func(*Executor)

// WithResultHook observes every dispatched action, used for journaling and
// status broadcasting.
func WithResultHook(fn func(Result)) Option {
	return func(e *Executor) { e.onResult = fn }
}

func New(ex exchange.Exchange, log *zap.SugaredLogger, opts ...Option) *Executor {
	e := &Executor{ex: ex, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute sorts the batch by priority (stable, highest first) and dispatches
// it. Returns the number of failed actions.
func (e *Executor) Execute(ctx context.Context, actions []schedule.Action) int {
	batch := make([]schedule.Action, len(actions))
	copy(batch, actions)
	schedule.SortByPriority(batch)

	failed := 0
	for _, a := range batch {
		err := e.dispatch(ctx, a)
		if err != nil {
			failed++
			e.log.Warnw("action_failed",
				"exchange", e.ex.Name(),
				"type", a.Type.String(),
				"market", a.Market,
				"price", a.Order.Price,
				"amount", a.Order.Amount,
				"err", err,
			)
		}
		if e.onResult != nil {
			e.onResult(Result{Action: a, Err: err})
		}
	}
	return failed
}

func (e *Executor) dispatch(ctx context.Context, a schedule.Action) error {
	switch a.Type {
	case schedule.ActionCreate:
		placed, err := e.ex.PlaceOrder(ctx, a.Order)
		if err != nil {
			return err
		}
		e.log.Debugw("order_placed",
			"exchange", e.ex.Name(),
			"market", a.Market,
			"id", placed.ID,
			"side", placed.Side.String(),
			"price", placed.Price,
			"amount", placed.Amount,
		)
		return nil
	case schedule.ActionStop:
		err := e.ex.CancelOrder(ctx, a.ID)
		if errors.Is(err, exchange.ErrOrderNotFound) {
			// Already gone: the goal state is reached either way.
			e.log.Debugw("order_already_gone", "exchange", e.ex.Name(), "id", a.ID)
			return nil
		}
		if err != nil {
			return err
		}
		e.log.Debugw("order_cancelled", "exchange", e.ex.Name(), "id", a.ID)
		return nil
	default:
		return errors.New("unknown action type")
	}
}
