package strategy

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketmaker/pkg/book"
	"github.com/uhyunpark/marketmaker/pkg/exchange"
)

// Limiter caps a side's desired levels using external state. Implementations
// must scale amounts down proportionally, never redistribute them.
type Limiter interface {
	Apply(ctx context.Context, side book.Side, levels []book.Level) ([]book.Level, error)
}

// BalanceLimiter caps desired exposure by the target account's balances:
// asks by the free base currency, bids by the free quote currency measured
// against each level's notional.
type BalanceLimiter struct {
	ex    exchange.Exchange
	base  string
	quote string
}

func NewBalanceLimiter(ex exchange.Exchange, base, quote string) *BalanceLimiter {
	return &BalanceLimiter{ex: ex, base: base, quote: quote}
}

func (l *BalanceLimiter) Apply(ctx context.Context, side book.Side, levels []book.Level) ([]book.Level, error) {
	if len(levels) == 0 {
		return levels, nil
	}
	balances, err := l.ex.FetchBalances(ctx)
	if err != nil {
		return nil, err
	}

	if side == book.Sell {
		total := decimal.Zero
		for _, lvl := range levels {
			total = total.Add(lvl.Amount)
		}
		return scale(levels, total, balances.Get(l.base)), nil
	}

	notional := decimal.Zero
	for _, lvl := range levels {
		notional = notional.Add(lvl.Price.Mul(lvl.Amount))
	}
	return scale(levels, notional, balances.Get(l.quote)), nil
}

// scale shrinks every amount by cap/total when total exceeds cap.
func scale(levels []book.Level, total, cap decimal.Decimal) []book.Level {
	if total.LessThanOrEqual(cap) {
		return levels
	}
	if !total.IsPositive() || !cap.IsPositive() {
		return nil
	}
	factor := cap.Div(total)
	out := make([]book.Level, 0, len(levels))
	for _, lvl := range levels {
		lvl.Amount = lvl.Amount.Mul(factor)
		out = append(out, lvl)
	}
	return out
}
