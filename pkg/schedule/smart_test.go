package schedule

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/marketmaker/pkg/book"
)

func sellPoints(prices ...string) map[book.Side][]book.PricePoint {
	points := map[book.Side][]book.PricePoint{}
	for _, p := range prices {
		points[book.Sell] = append(points[book.Sell], book.PricePoint{
			Price:         d(p),
			WeightedPrice: d(p),
		})
	}
	return points
}

func TestSmartCancelRiskyOrders(t *testing.T) {
	current := book.NewBook()
	current.AddOrder(book.Order{Market: "btcusd", Price: d("100"), Amount: d("1"), Side: book.Sell, ID: "1"})

	desired := book.NewBook()
	desired.AddLevel(book.Sell, d("105"), d("1"))

	actions, err := Smart(current, desired, "btcusd", sellPoints("105"), decimal.Zero)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	var stop *Action
	for i := range actions {
		if actions[i].Type == ActionStop && actions[i].ID == "1" {
			stop = &actions[i]
		}
	}
	if stop == nil {
		t.Fatalf("risky sell at 100 not cancelled: %+v", actions)
	}
	if stop.Priority != 1e9+5 {
		t.Errorf("risky priority = %v, want 1e9+5", stop.Priority)
	}
}

func TestSmartRiskyOutranksLevelAdjustments(t *testing.T) {
	current := book.NewBook()
	current.AddOrder(book.Order{Market: "btcusd", Price: d("100"), Amount: d("1"), Side: book.Sell, ID: "1"})

	desired := book.NewBook()
	desired.AddLevel(book.Sell, d("105"), d("2"))
	desired.AddLevel(book.Sell, d("106"), d("2"))

	actions, err := Smart(current, desired, "btcusd", sellPoints("105", "106"), decimal.Zero)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	for _, a := range actions {
		if a.Type == ActionStop && a.ID == "1" {
			if a.Priority < 1e9 {
				t.Errorf("risky cancel priority %v < 1e9", a.Priority)
			}
			continue
		}
		if a.Priority >= 1e9 {
			t.Errorf("level adjustment priority %v >= 1e9: %+v", a.Priority, a)
		}
	}

	SortByPriority(actions)
	if actions[0].Type != ActionStop || actions[0].ID != "1" {
		t.Errorf("risky cancel must dispatch first, got %+v", actions[0])
	}
}

func TestSmartLevelDeficitStopsInSourceOrder(t *testing.T) {
	current := book.NewBook()
	current.AddOrder(book.Order{Market: "btcusd", Price: d("105"), Amount: d("1"), Side: book.Sell, ID: "1"})
	current.AddOrder(book.Order{Market: "btcusd", Price: d("105"), Amount: d("1"), Side: book.Sell, ID: "2"})
	current.AddOrder(book.Order{Market: "btcusd", Price: d("105"), Amount: d("1"), Side: book.Sell, ID: "3"})

	desired := book.NewBook()
	desired.AddLevel(book.Sell, d("105"), d("1.5")) // deficit of 1.5 at the level

	actions, err := Smart(current, desired, "btcusd", sellPoints("105"), decimal.Zero)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	var stopped []string
	for _, a := range actions {
		if a.Type != ActionStop {
			t.Errorf("unexpected non-stop action: %+v", a)
			continue
		}
		stopped = append(stopped, a.ID)
	}
	// Freed 1 then 2 covers the 1.5 deficit; order 3 stays untouched.
	if len(stopped) != 2 || stopped[0] != "1" || stopped[1] != "2" {
		t.Errorf("stopped = %v, want [1 2]", stopped)
	}
}

func TestSmartLevelSurplusSplitsByMaxAmount(t *testing.T) {
	desired := book.NewBook()
	desired.AddLevel(book.Sell, d("105"), d("5"))

	actions, err := Smart(book.NewBook(), desired, "btcusd", sellPoints("105"), d("2"))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("expected 3 creates, got %d", len(actions))
	}
	want := []string{"2", "2", "1"}
	for i, a := range actions {
		if a.Type != ActionCreate {
			t.Fatalf("action %d type = %s, want create", i, a.Type)
		}
		if !a.Order.Amount.Equal(d(want[i])) {
			t.Errorf("create %d amount = %s, want %s", i, a.Order.Amount, want[i])
		}
		if !a.Order.Price.Equal(d("105")) {
			t.Errorf("create %d price = %s, want weighted 105", i, a.Order.Price)
		}
	}
}

func TestSmartRiskyNotDoubleCounted(t *testing.T) {
	current := book.NewBook()
	// Risky order near the level point must not count toward the level's
	// current amount once flagged.
	current.AddOrder(book.Order{Market: "btcusd", Price: d("104"), Amount: d("2"), Side: book.Sell, ID: "risky"})
	current.AddOrder(book.Order{Market: "btcusd", Price: d("105"), Amount: d("1"), Side: book.Sell, ID: "keep"})

	desired := book.NewBook()
	desired.AddLevel(book.Sell, d("105"), d("1"))

	actions, err := Smart(current, desired, "btcusd", sellPoints("105"), decimal.Zero)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	stops := 0
	for _, a := range actions {
		if a.Type == ActionStop {
			stops++
			if a.ID != "risky" {
				t.Errorf("only the risky order should be stopped, got %s", a.ID)
			}
		}
		if a.Type == ActionCreate {
			t.Errorf("level is already satisfied, unexpected create %+v", a)
		}
	}
	if stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}
}

func TestSmartCrossedBook(t *testing.T) {
	desired := book.NewBook()
	desired.AddLevel(book.Buy, d("101"), d("1"))
	desired.AddLevel(book.Sell, d("100"), d("1"))

	if _, err := Smart(book.NewBook(), desired, "btcusd", nil, decimal.Zero); !errors.Is(err, ErrInvalidOrderBook) {
		t.Fatalf("expected ErrInvalidOrderBook, got %v", err)
	}
}

func TestSmartNoPointsStopsEverything(t *testing.T) {
	current := book.NewBook()
	current.AddOrder(book.Order{Market: "btcusd", Price: d("95"), Amount: d("1"), Side: book.Buy, ID: "1"})

	actions, err := Smart(current, book.NewBook(), "btcusd", nil, decimal.Zero)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(actions) != 1 || actions[0].Type != ActionStop || actions[0].ID != "1" {
		t.Fatalf("expected a single stop of order 1, got %+v", actions)
	}
}

func TestSmartLevelPriorityDecaysWithDepth(t *testing.T) {
	desired := book.NewBook()
	desired.AddLevel(book.Sell, d("105"), d("1"))
	desired.AddLevel(book.Sell, d("106"), d("1"))
	desired.AddLevel(book.Sell, d("107"), d("1"))

	actions, err := Smart(book.NewBook(), desired, "btcusd", sellPoints("105", "106", "107"), decimal.Zero)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("expected 3 creates, got %d", len(actions))
	}
	// 1e3 * (1 + 1/(i+1))
	want := []float64{2000, 1500, 1000 + 1000.0/3}
	for i, a := range actions {
		if a.Priority != want[i] {
			t.Errorf("level %d priority = %v, want %v", i, a.Priority, want[i])
		}
	}
}
