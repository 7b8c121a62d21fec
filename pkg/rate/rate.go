package rate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/marketmaker/pkg/util"
)

// ErrRateUnavailable means the provider has no rate for the pair yet.
var ErrRateUnavailable = errors.New("rate not available")

// Source yields a conversion rate for a currency pair like "usdeur".
type Source interface {
	Rate(pair string) (decimal.Decimal, error)
}

// Static is a fixed rate table, used in tests and for pinned conversions.
type Static map[string]decimal.Decimal

func (s Static) Rate(pair string) (decimal.Decimal, error) {
	if v, ok := s[pair]; ok {
		return v, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s", ErrRateUnavailable, pair)
}

// Cache wraps a Source and refreshes a fixed set of pairs on its own timer.
// Reads are safe from any goroutine. Each owner constructs and starts its
// own Cache; there is no process-wide instance.
type Cache struct {
	src    Source
	pairs  []string
	every  time.Duration
	clock  util.Clock
	log    *zap.SugaredLogger
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

func NewCache(src Source, pairs []string, every time.Duration, clock util.Clock, log *zap.SugaredLogger) *Cache {
	return &Cache{
		src:   src,
		pairs: pairs,
		every: every,
		clock: clock,
		log:   log,
		rates: map[string]decimal.Decimal{},
	}
}

// Start refreshes once synchronously, then keeps refreshing in the
// background until Stop or context cancellation.
func (c *Cache) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.refresh()
	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.clock.After(c.every):
				c.refresh()
			}
		}
	}()
}

// Stop tears down the refresh loop and waits for it to exit.
func (c *Cache) Stop() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

func (c *Cache) refresh() {
	for _, pair := range c.pairs {
		v, err := c.src.Rate(pair)
		if err != nil {
			if c.log != nil {
				c.log.Warnw("rate_refresh_failed", "pair", pair, "err", err)
			}
			continue
		}
		c.mu.Lock()
		c.rates[pair] = v
		c.mu.Unlock()
	}
}

func (c *Cache) Rate(pair string) (decimal.Decimal, error) {
	c.mu.RLock()
	v, ok := c.rates[pair]
	c.mu.RUnlock()
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrRateUnavailable, pair)
	}
	return v, nil
}
