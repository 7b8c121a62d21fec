package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketmaker/pkg/book"
	"github.com/uhyunpark/marketmaker/pkg/rate"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func baseConfig() Config {
	return Config{
		SpreadBids:      d("0.01"),
		SpreadAsks:      d("0.01"),
		LevelsCount:     2,
		LevelsPriceFunc: "constant",
		LevelsSize:      d("1"),
		LimitBidsBase:   d("2"),
		LimitAsksBase:   d("2"),
		PricePrecision:  2,
		AmountPrecision: 2,
		MinAmount:       d("0.01"),
	}
}

func refBook() *book.Book {
	ref := book.NewBook()
	ref.AddLevel(book.Buy, d("100"), d("5"))
	ref.AddLevel(book.Sell, d("100"), d("5"))
	return ref
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	cfg := baseConfig()
	cfg.LevelsPriceFunc = "quadratic"
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewRejectsFXWithoutRates(t *testing.T) {
	cfg := baseConfig()
	cfg.FXPair = "usdeur"
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestDesiredBookSpreads(t *testing.T) {
	s, err := New(baseConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	desired, err := s.DesiredBook(context.Background(), refBook(), "btcusd")
	if err != nil {
		t.Fatalf("desired: %v", err)
	}

	if best, _ := desired.Book.BestPrice(book.Buy); !best.Equal(d("99")) {
		t.Errorf("best desired bid = %s, want 99", best)
	}
	if best, _ := desired.Book.BestPrice(book.Sell); !best.Equal(d("101")) {
		t.Errorf("best desired ask = %s, want 101", best)
	}

	// Per-side limit split evenly across levels.
	for _, side := range book.Sides {
		for _, lvl := range desired.Book.Levels(side) {
			if !lvl.Amount.Equal(d("1")) {
				t.Errorf("%s level amount = %s, want 1", side, lvl.Amount)
			}
		}
		if len(desired.Points[side]) != 2 {
			t.Errorf("%s points = %d, want 2", side, len(desired.Points[side]))
		}
	}
}

func TestDesiredBookPrecisionAndMinAmount(t *testing.T) {
	cfg := baseConfig()
	cfg.LevelsCount = 3
	cfg.LimitAsksBase = d("0.0001") // floors to zero, clamps up to min
	cfg.SpreadAsks = d("0.0123")
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	desired, err := s.DesiredBook(context.Background(), refBook(), "btcusd")
	if err != nil {
		t.Fatalf("desired: %v", err)
	}

	asks := desired.Book.Levels(book.Sell)
	if len(asks) != 3 {
		t.Fatalf("expected 3 ask levels, got %d", len(asks))
	}
	// 100 * 1.0123 = 101.23 floored to 2 decimals.
	if !asks[0].Price.Equal(d("101.23")) {
		t.Errorf("ask price = %s, want 101.23", asks[0].Price)
	}
	for _, lvl := range asks {
		if !lvl.Amount.Equal(d("0.01")) {
			t.Errorf("amount = %s, want min 0.01", lvl.Amount)
		}
	}
}

func TestDesiredBookDropsNonPositivePrices(t *testing.T) {
	cfg := baseConfig()
	cfg.LevelsCount = 5
	cfg.LevelsSize = d("40") // bid ladder walks below zero
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	desired, err := s.DesiredBook(context.Background(), refBook(), "btcusd")
	if err != nil {
		t.Fatalf("desired: %v", err)
	}
	for _, lvl := range desired.Book.Levels(book.Buy) {
		if !lvl.Price.IsPositive() {
			t.Errorf("non-positive bid price survived: %s", lvl.Price)
		}
	}
	if len(desired.Book.Levels(book.Buy)) >= 5 {
		t.Errorf("expected some bid levels dropped")
	}
}

func TestDesiredBookEmptyReferenceSide(t *testing.T) {
	ref := book.NewBook()
	ref.AddLevel(book.Sell, d("100"), d("5"))

	s, err := New(baseConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	desired, err := s.DesiredBook(context.Background(), ref, "btcusd")
	if err != nil {
		t.Fatalf("desired: %v", err)
	}
	if !desired.Book.Empty(book.Buy) {
		t.Errorf("no reference bids should mean no desired bids")
	}
	if desired.Book.Empty(book.Sell) {
		t.Errorf("desired asks missing")
	}
}

func TestDesiredBookFXAppliedToPricesOnly(t *testing.T) {
	cfg := baseConfig()
	cfg.FXPair = "usdeur"
	s, err := New(cfg, WithRates(rate.Static{"usdeur": d("2")}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	desired, err := s.DesiredBook(context.Background(), refBook(), "btceur")
	if err != nil {
		t.Fatalf("desired: %v", err)
	}

	if best, _ := desired.Book.BestPrice(book.Sell); !best.Equal(d("202")) {
		t.Errorf("fx ask = %s, want 202", best)
	}
	if best, _ := desired.Book.BestPrice(book.Buy); !best.Equal(d("198")) {
		t.Errorf("fx bid = %s, want 198", best)
	}
	for _, lvl := range desired.Book.Levels(book.Sell) {
		if !lvl.Amount.Equal(d("1")) {
			t.Errorf("fx must not touch amounts, got %s", lvl.Amount)
		}
	}
	if p := desired.Points[book.Sell][0].WeightedPrice; !p.Equal(d("202")) {
		t.Errorf("fx weighted price = %s, want 202", p)
	}
}

func TestDesiredBookFXUnavailable(t *testing.T) {
	cfg := baseConfig()
	cfg.FXPair = "usdeur"
	s, err := New(cfg, WithRates(rate.Static{}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.DesiredBook(context.Background(), refBook(), "btceur"); !errors.Is(err, rate.ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable, got %v", err)
	}
}

type capLimiter struct {
	cap decimal.Decimal
}

func (l capLimiter) Apply(ctx context.Context, side book.Side, levels []book.Level) ([]book.Level, error) {
	total := decimal.Zero
	for _, lvl := range levels {
		total = total.Add(lvl.Amount)
	}
	if total.LessThanOrEqual(l.cap) {
		return levels, nil
	}
	factor := l.cap.Div(total)
	out := make([]book.Level, 0, len(levels))
	for _, lvl := range levels {
		lvl.Amount = lvl.Amount.Mul(factor)
		out = append(out, lvl)
	}
	return out, nil
}

func TestDesiredBookLimiterScalesProportionally(t *testing.T) {
	s, err := New(baseConfig(), WithLimiter(capLimiter{cap: d("1")}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	desired, err := s.DesiredBook(context.Background(), refBook(), "btcusd")
	if err != nil {
		t.Fatalf("desired: %v", err)
	}
	for _, side := range book.Sides {
		total := decimal.Zero
		for _, lvl := range desired.Book.Levels(side) {
			if !lvl.Amount.Equal(d("0.5")) {
				t.Errorf("%s amount = %s, want 0.5", side, lvl.Amount)
			}
			total = total.Add(lvl.Amount)
		}
		if total.GreaterThan(d("1")) {
			t.Errorf("%s total %s exceeds cap", side, total)
		}
	}
}
