package exchange

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/triscan/internal/domain"
)

const gateioURL = "https://api.gateio.ws"

// GateIO reads spot tickers from the Gate.io v4 public REST API.
type GateIO struct {
	c      *restClient
	quotes map[string]bool
}

// NewGateIO creates a Gate.io adapter.
func NewGateIO(opts Options) *GateIO {
	return &GateIO{c: newRESTClient("gateio", gateioURL, opts), quotes: assetSet(opts.QuoteAssets)}
}

func (g *GateIO) Name() string { return "gateio" }

type gateioPair struct {
	ID          string `json:"id"`
	Base        string `json:"base"`
	Quote       string `json:"quote"`
	TradeStatus string `json:"trade_status"`
}

type gateioTicker struct {
	CurrencyPair string `json:"currency_pair"`
	Last         string `json:"last"`
	QuoteVolume  string `json:"quote_volume"`
}

// FetchQuotes returns last prices of every tradable currency pair.
func (g *GateIO) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	var (
		pairs []gateioPair
		rows  []gateioTicker
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return g.c.getJSON(gctx, "/api/v4/spot/currency_pairs", &pairs) })
	eg.Go(func() error { return g.c.getJSON(gctx, "/api/v4/spot/tickers", &rows) })
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("gateio: fetch quotes: %w", err)
	}

	markets := make(map[string]market, len(pairs))
	for _, p := range pairs {
		if p.TradeStatus != "tradable" {
			continue
		}
		markets[p.ID] = market{base: asset(p.Base), quote: asset(p.Quote)}
	}
	tickers := make([]ticker, 0, len(rows))
	for _, r := range rows {
		tickers = append(tickers, ticker{symbol: r.CurrencyPair, last: r.Last, quoteVolume: r.QuoteVolume})
	}
	return buildQuotes(markets, tickers, g.quotes), nil
}
