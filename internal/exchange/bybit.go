package exchange

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/triscan/internal/domain"
)

const bybitURL = "https://api.bybit.com"

// DefaultBybitQuoteAssets are the quote assets scanned on Bybit unless
// overridden.
var DefaultBybitQuoteAssets = []string{"USDT", "USDC", "BTC", "ETH"}

// Bybit reads spot tickers from the Bybit v5 public REST API.
type Bybit struct {
	c      *restClient
	quotes map[string]bool
}

// NewBybit creates a Bybit adapter.
func NewBybit(opts Options) *Bybit {
	qa := opts.QuoteAssets
	if len(qa) == 0 {
		qa = DefaultBybitQuoteAssets
	}
	return &Bybit{c: newRESTClient("bybit", bybitURL, opts), quotes: assetSet(qa)}
}

func (b *Bybit) Name() string { return "bybit" }

type bybitEnvelope[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []T `json:"list"`
	} `json:"result"`
}

type bybitInstrument struct {
	Symbol    string `json:"symbol"`
	BaseCoin  string `json:"baseCoin"`
	QuoteCoin string `json:"quoteCoin"`
	Status    string `json:"status"`
}

type bybitTicker struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	Turnover24h string `json:"turnover24h"`
}

// FetchQuotes returns last prices of trading spot instruments.
func (b *Bybit) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	var (
		inst bybitEnvelope[bybitInstrument]
		tick bybitEnvelope[bybitTicker]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.c.getJSON(gctx, "/v5/market/instruments-info?category=spot", &inst) })
	g.Go(func() error { return b.c.getJSON(gctx, "/v5/market/tickers?category=spot", &tick) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("bybit: fetch quotes: %w", err)
	}
	if inst.RetCode != 0 {
		return nil, fmt.Errorf("bybit: instruments: %d %s", inst.RetCode, inst.RetMsg)
	}
	if tick.RetCode != 0 {
		return nil, fmt.Errorf("bybit: tickers: %d %s", tick.RetCode, tick.RetMsg)
	}

	markets := make(map[string]market, len(inst.Result.List))
	for _, s := range inst.Result.List {
		if s.Status != "Trading" {
			continue
		}
		markets[s.Symbol] = market{base: asset(s.BaseCoin), quote: asset(s.QuoteCoin)}
	}
	tickers := make([]ticker, 0, len(tick.Result.List))
	for _, t := range tick.Result.List {
		tickers = append(tickers, ticker{symbol: t.Symbol, last: t.LastPrice, quoteVolume: t.Turnover24h})
	}
	return buildQuotes(markets, tickers, b.quotes), nil
}
