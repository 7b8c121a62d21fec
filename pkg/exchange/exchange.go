package exchange

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketmaker/pkg/book"
)

var (
	// ErrExchangeNotSupported means no factory is registered under the name.
	ErrExchangeNotSupported = errors.New("exchange not supported")
	// ErrMarketNotFound means the adapter knows nothing about the market.
	ErrMarketNotFound = errors.New("market not found")
	// ErrOrderNotFound means a cancel targeted an id the exchange no longer
	// holds. Callers treat it as success: the order is gone either way.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientBalance means a placement exceeded the account balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Balances maps currency to free amount.
type Balances map[string]decimal.Decimal

// Get returns the free balance of a currency, zero when absent.
func (b Balances) Get(currency string) decimal.Decimal {
	if v, ok := b[currency]; ok {
		return v
	}
	return decimal.Zero
}

// Exchange is the adapter capability the engine reconciles against. Wire
// protocols, auth, and rate limits live behind implementations of this
// interface; the core never sees them.
type Exchange interface {
	Name() string
	FetchOrderBook(ctx context.Context, market string) (*book.Book, error)
	FetchBalances(ctx context.Context) (Balances, error)
	PlaceOrder(ctx context.Context, o book.Order) (book.Order, error)
	CancelOrder(ctx context.Context, id string) error
}
