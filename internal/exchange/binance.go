package exchange

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/triscan/internal/domain"
)

const binanceURL = "https://api.binance.com"

// Binance reads spot tickers from the Binance public REST API.
type Binance struct {
	c      *restClient
	quotes map[string]bool
}

// NewBinance creates a Binance adapter.
func NewBinance(opts Options) *Binance {
	return &Binance{c: newRESTClient("binance", binanceURL, opts), quotes: assetSet(opts.QuoteAssets)}
}

func (b *Binance) Name() string { return "binance" }

type binanceExchangeInfo struct {
	Symbols []struct {
		Symbol               string `json:"symbol"`
		Status               string `json:"status"`
		BaseAsset            string `json:"baseAsset"`
		QuoteAsset           string `json:"quoteAsset"`
		IsSpotTradingAllowed bool   `json:"isSpotTradingAllowed"`
	} `json:"symbols"`
}

type binanceTicker struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
}

// FetchQuotes returns last prices of every spot symbol currently trading.
func (b *Binance) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	var (
		info binanceExchangeInfo
		rows []binanceTicker
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.c.getJSON(gctx, "/api/v3/exchangeInfo", &info) })
	g.Go(func() error { return b.c.getJSON(gctx, "/api/v3/ticker/24hr", &rows) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("binance: fetch quotes: %w", err)
	}

	markets := make(map[string]market, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || !s.IsSpotTradingAllowed {
			continue
		}
		markets[s.Symbol] = market{base: asset(s.BaseAsset), quote: asset(s.QuoteAsset)}
	}
	tickers := make([]ticker, 0, len(rows))
	for _, r := range rows {
		tickers = append(tickers, ticker{symbol: r.Symbol, last: r.LastPrice, quoteVolume: r.QuoteVolume})
	}
	return buildQuotes(markets, tickers, b.quotes), nil
}
