package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/marketmaker/pkg/book"
	"github.com/uhyunpark/marketmaker/pkg/rate"
)

// Desired is one tick's target state: the book the engine wants resting on
// the exchange, plus the price points each side was generated from. The
// scheduler consumes both.
type Desired struct {
	Book   *book.Book
	Points map[book.Side][]book.PricePoint
}

// Strategy turns a reference market's live book into a target book for the
// market the engine trades. It is stateless between ticks.
type Strategy struct {
	cfg     Config
	step    book.StepFunc
	limiter Limiter
	rates   rate.Source
	log     *zap.SugaredLogger
}

type Option func(*Strategy)

// WithLimiter installs a balance-derived exposure limiter, applied before
// the scheduler ever sees the desired book.
func WithLimiter(l Limiter) Option {
	return func(s *Strategy) { s.limiter = l }
}

// WithRates installs a rate source; cfg.FXPair selects the conversion
// applied uniformly to every produced price.
func WithRates(src rate.Source) Option {
	return func(s *Strategy) { s.rates = src }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Strategy) { s.log = log }
}

// New validates the config and resolves the step policy once. An unknown
// policy fails here, not at tick time.
func New(cfg Config, opts ...Option) (*Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	step, err := book.StepPolicy(cfg.LevelsPriceFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s := &Strategy{cfg: cfg, step: step}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.FXPair != "" && s.rates == nil {
		return nil, fmt.Errorf("%w: fx pair %q set without a rate source", ErrInvalidConfig, cfg.FXPair)
	}
	return s, nil
}

// DesiredBook builds the target book for market from the reference book.
// A reference side with no orders produces no desired levels on that side.
func (s *Strategy) DesiredBook(ctx context.Context, ref *book.Book, market string) (*Desired, error) {
	fx := decimal.NewFromInt(1)
	if s.cfg.FXPair != "" {
		v, err := s.rates.Rate(s.cfg.FXPair)
		if err != nil {
			return nil, err
		}
		fx = v
	}

	out := &Desired{Book: book.NewBook(), Points: map[book.Side][]book.PricePoint{}}
	for _, side := range book.Sides {
		levels, points, err := s.sideLevels(ctx, ref, side)
		if err != nil {
			return nil, err
		}
		for i := range points {
			points[i].Price = points[i].Price.Mul(fx)
			points[i].WeightedPrice = points[i].WeightedPrice.Mul(fx)
		}
		for _, lvl := range levels {
			out.Book.AddLevel(side, lvl.Price.Mul(fx), lvl.Amount)
		}
		out.Points[side] = points
	}
	return out, nil
}

func (s *Strategy) sideLevels(ctx context.Context, ref *book.Book, side book.Side) ([]book.Level, []book.PricePoint, error) {
	refBest, ok := ref.BestPrice(side)
	if !ok {
		return nil, nil, nil
	}

	one := decimal.NewFromInt(1)
	var start decimal.Decimal
	var total decimal.Decimal
	if side == book.Sell {
		start = refBest.Mul(one.Add(s.cfg.SpreadAsks))
		total = s.cfg.LimitAsksBase
	} else {
		start = refBest.Mul(one.Sub(s.cfg.SpreadBids))
		total = s.cfg.LimitBidsBase
	}
	if !total.IsPositive() {
		return nil, nil, nil
	}

	points := book.PricePoints(side, start, s.cfg.LevelsCount, s.step, s.cfg.LevelsSize)
	perLevel := total.Div(decimal.NewFromInt(int64(s.cfg.LevelsCount)))

	var levels []book.Level
	for i := range points {
		price := points[i].Price.RoundFloor(s.cfg.PricePrecision)
		amount := perLevel.RoundFloor(s.cfg.AmountPrecision)
		if amount.LessThan(s.cfg.MinAmount) {
			amount = s.cfg.MinAmount
		}
		points[i].WeightedPrice = price
		if !price.IsPositive() || !amount.IsPositive() {
			// Dropped level: no order will ever be generated for it.
			continue
		}
		levels = append(levels, book.Level{Price: price, Amount: amount})
	}

	if s.limiter != nil {
		capped, err := s.limiter.Apply(ctx, side, levels)
		if err != nil {
			return nil, nil, err
		}
		levels = levels[:0]
		for _, lvl := range capped {
			lvl.Amount = lvl.Amount.RoundFloor(s.cfg.AmountPrecision)
			if lvl.Amount.IsPositive() {
				levels = append(levels, lvl)
			}
		}
	}
	return levels, points, nil
}
