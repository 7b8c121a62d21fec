package exchange

import (
	"fmt"
	"sync"
)

// Factory builds a fresh adapter instance.
type Factory func() Exchange

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

func init() {
	Register("paper", func() Exchange { return NewPaper("paper") })
}

// Register adds an adapter factory under a name. Adapters register themselves
// at init time; resolution happens once at configuration load.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// New resolves a registered adapter by name.
func New(name string) (Exchange, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExchangeNotSupported, name)
	}
	return f(), nil
}

// Supported lists registered adapter names.
func Supported() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
