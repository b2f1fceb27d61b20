package exchange

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// Snapshots is the read side of a ticker store.
type Snapshots interface {
	Latest(ctx context.Context, exchange string) (domain.TickerSnapshot, error)
}

// Replay serves the last recorded quotes of one exchange instead of
// calling its API.
type Replay struct {
	name  string
	store Snapshots
}

// NewReplay returns a provider for name backed by store.
func NewReplay(name string, store Snapshots) *Replay {
	return &Replay{name: name, store: store}
}

func (r *Replay) Name() string { return r.name }

// FetchQuotes loads the stored snapshot.
func (r *Replay) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	snap, err := r.store.Latest(ctx, r.name)
	if err != nil {
		return nil, fmt.Errorf("%s: replay: %w", r.name, err)
	}
	return snap.Quotes, nil
}

// RegisterReplays registers a Replay for every name.
func RegisterReplays(reg *Registry, store Snapshots, names []string) {
	for _, n := range names {
		reg.Register(NewReplay(n, store))
	}
}
