package strategy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketmaker/pkg/book"
)

// ErrInvalidConfig marks configuration faults. They are fatal at startup:
// a pipeline with a bad config never starts.
var ErrInvalidConfig = errors.New("invalid strategy config")

// Config drives the desired-book generator.
type Config struct {
	SpreadBids        decimal.Decimal // fractional offset below reference best bid
	SpreadAsks        decimal.Decimal // fractional offset above reference best ask
	LevelsCount       int
	LevelsPriceFunc   string // constant, linear, exp
	LevelsSize        decimal.Decimal
	MaxAmountPerOrder decimal.Decimal
	LimitBidsBase     decimal.Decimal // target total base amount quoted on bids
	LimitAsksBase     decimal.Decimal // target total base amount quoted on asks
	PricePrecision    int32
	AmountPrecision   int32
	MinAmount         decimal.Decimal
	FXPair            string // optional, requires a rate source
}

func (c Config) Validate() error {
	if c.LevelsCount <= 0 {
		return fmt.Errorf("%w: levels_count must be positive", ErrInvalidConfig)
	}
	if !c.LevelsSize.IsPositive() {
		return fmt.Errorf("%w: levels_size must be positive", ErrInvalidConfig)
	}
	if _, err := book.StepPolicy(c.LevelsPriceFunc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.SpreadBids.IsNegative() || c.SpreadAsks.IsNegative() {
		return fmt.Errorf("%w: spreads must not be negative", ErrInvalidConfig)
	}
	if !c.LimitBidsBase.IsPositive() && !c.LimitAsksBase.IsPositive() {
		return fmt.Errorf("%w: at least one side limit must be positive", ErrInvalidConfig)
	}
	if c.MinAmount.IsNegative() {
		return fmt.Errorf("%w: min_amount must not be negative", ErrInvalidConfig)
	}
	return nil
}
