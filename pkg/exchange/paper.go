package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketmaker/pkg/book"
)

// Paper is an in-memory adapter. It holds resting orders and balances but
// never matches anything; the reconciliation loop runs against it in dev mode
// and in tests.
type Paper struct {
	mu       sync.RWMutex
	name     string
	seq      int64
	orders   map[string]book.Order // id -> order
	seedSide map[string]map[book.Side][]book.Level
	balances Balances
}

func NewPaper(name string) *Paper {
	return &Paper{
		name:     name,
		orders:   map[string]book.Order{},
		seedSide: map[string]map[book.Side][]book.Level{},
		balances: Balances{},
	}
}

func (p *Paper) Name() string { return p.name }

// SeedLevel plants a static reference level, visible in every snapshot of the
// market. Used to give the source exchange something to quote from.
func (p *Paper) SeedLevel(market string, side book.Side, price, amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seedSide[market] == nil {
		p.seedSide[market] = map[book.Side][]book.Level{}
	}
	p.seedSide[market][side] = append(p.seedSide[market][side], book.Level{Price: price, Amount: amount})
}

// SeedBalance sets the free balance of a currency.
func (p *Paper) SeedBalance(currency string, amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[currency] = amount
}

func (p *Paper) FetchOrderBook(ctx context.Context, market string) (*book.Book, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	b := book.NewBook()
	for side, levels := range p.seedSide[market] {
		for _, lvl := range levels {
			b.AddLevel(side, lvl.Price, lvl.Amount)
		}
	}
	for _, o := range p.orders {
		if o.Market == market {
			b.AddOrder(o)
		}
	}
	return b, nil
}

func (p *Paper) FetchBalances(ctx context.Context) (Balances, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(Balances, len(p.balances))
	for cur, v := range p.balances {
		out[cur] = v
	}
	return out, nil
}

func (p *Paper) PlaceOrder(ctx context.Context, o book.Order) (book.Order, error) {
	if !o.Price.IsPositive() || !o.Amount.IsPositive() {
		return book.Order{}, fmt.Errorf("paper: rejected order %s@%s", o.Amount, o.Price)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	o.ID = fmt.Sprintf("%s-%d", p.name, p.seq)
	p.orders[o.ID] = o
	return o, nil
}

func (p *Paper) CancelOrder(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.orders[id]; !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	delete(p.orders, id)
	return nil
}

// OpenOrders returns resting orders for a market, used by tests and the
// status API.
func (p *Paper) OpenOrders(market string) []book.Order {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []book.Order
	for _, o := range p.orders {
		if o.Market == market {
			out = append(out, o)
		}
	}
	return out
}
