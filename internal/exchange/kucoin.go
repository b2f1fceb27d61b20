package exchange

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/triscan/internal/domain"
)

const kucoinURL = "https://api.kucoin.com"

// kucoinOK is the success code of the KuCoin envelope.
const kucoinOK = "200000"

// KuCoin reads spot tickers from the KuCoin public REST API.
type KuCoin struct {
	c      *restClient
	quotes map[string]bool
}

// NewKuCoin creates a KuCoin adapter.
func NewKuCoin(opts Options) *KuCoin {
	return &KuCoin{c: newRESTClient("kucoin", kucoinURL, opts), quotes: assetSet(opts.QuoteAssets)}
}

func (k *KuCoin) Name() string { return "kucoin" }

type kucoinSymbols struct {
	Code string `json:"code"`
	Data []struct {
		Symbol        string `json:"symbol"`
		BaseCurrency  string `json:"baseCurrency"`
		QuoteCurrency string `json:"quoteCurrency"`
		EnableTrading bool   `json:"enableTrading"`
	} `json:"data"`
}

type kucoinTickers struct {
	Code string `json:"code"`
	Data struct {
		Ticker []struct {
			Symbol   string `json:"symbol"`
			Last     string `json:"last"`
			VolValue string `json:"volValue"`
		} `json:"ticker"`
	} `json:"data"`
}

// FetchQuotes returns last prices of every symbol with trading enabled.
func (k *KuCoin) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	var (
		syms kucoinSymbols
		all  kucoinTickers
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return k.c.getJSON(gctx, "/api/v1/symbols", &syms) })
	g.Go(func() error { return k.c.getJSON(gctx, "/api/v1/market/allTickers", &all) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("kucoin: fetch quotes: %w", err)
	}
	if syms.Code != kucoinOK || all.Code != kucoinOK {
		return nil, fmt.Errorf("kucoin: fetch quotes: api codes %q/%q", syms.Code, all.Code)
	}

	markets := make(map[string]market, len(syms.Data))
	for _, s := range syms.Data {
		if !s.EnableTrading {
			continue
		}
		markets[s.Symbol] = market{base: asset(s.BaseCurrency), quote: asset(s.QuoteCurrency)}
	}
	tickers := make([]ticker, 0, len(all.Data.Ticker))
	for _, t := range all.Data.Ticker {
		tickers = append(tickers, ticker{symbol: t.Symbol, last: t.Last, quoteVolume: t.VolValue})
	}
	return buildQuotes(markets, tickers, k.quotes), nil
}
