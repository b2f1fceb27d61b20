package exchange

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// Registry holds quote providers by exchange name.
type Registry struct {
	providers map[string]domain.QuoteProvider
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry. Call Register to add providers.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]domain.QuoteProvider)}
}

// Register adds p under p.Name(), replacing any previous provider.
func (r *Registry) Register(p domain.QuoteProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider for name.
func (r *Registry) Get(name string) (domain.QuoteProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("exchange %q: %w", name, domain.ErrUnknownExchange)
	}
	return p, nil
}

// List returns all registered exchange names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin lists the exchanges New knows how to construct.
var Builtin = []string{"binance", "bybit", "gateio", "kraken", "kucoin"}

// New constructs the built-in REST adapter for name.
func New(name string, opts Options) (domain.QuoteProvider, error) {
	switch name {
	case "binance":
		return NewBinance(opts), nil
	case "kucoin":
		return NewKuCoin(opts), nil
	case "bybit":
		return NewBybit(opts), nil
	case "gateio":
		return NewGateIO(opts), nil
	case "kraken":
		return NewKraken(opts), nil
	default:
		return nil, fmt.Errorf("exchange %q: %w", name, domain.ErrUnknownExchange)
	}
}
