package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketmaker/pkg/util"
)

func TestStaticRate(t *testing.T) {
	src := Static{"usdeur": decimal.NewFromFloat(0.9)}

	v, err := src.Rate("usdeur")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !v.Equal(decimal.NewFromFloat(0.9)) {
		t.Errorf("rate = %s, want 0.9", v)
	}

	if _, err := src.Rate("usdjpy"); !errors.Is(err, ErrRateUnavailable) {
		t.Errorf("expected ErrRateUnavailable, got %v", err)
	}
}

func TestCacheRefreshesOnStart(t *testing.T) {
	src := Static{"usdeur": decimal.NewFromFloat(0.9)}
	c := NewCache(src, []string{"usdeur"}, time.Hour, util.RealClock{}, nil)

	if _, err := c.Rate("usdeur"); !errors.Is(err, ErrRateUnavailable) {
		t.Fatalf("expected unavailable before start, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	v, err := c.Rate("usdeur")
	if err != nil {
		t.Fatalf("rate after start: %v", err)
	}
	if !v.Equal(decimal.NewFromFloat(0.9)) {
		t.Errorf("rate = %s, want 0.9", v)
	}
}

func TestCacheKeepsLastGoodRate(t *testing.T) {
	src := Static{"usdeur": decimal.NewFromFloat(0.9)}
	c := NewCache(src, []string{"usdeur", "usdjpy"}, time.Hour, util.RealClock{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	// usdjpy never resolves but must not poison usdeur.
	if _, err := c.Rate("usdjpy"); !errors.Is(err, ErrRateUnavailable) {
		t.Errorf("expected unavailable for usdjpy, got %v", err)
	}
	if _, err := c.Rate("usdeur"); err != nil {
		t.Errorf("usdeur should be cached: %v", err)
	}
}
