package exchange

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/triscan/internal/domain"
)

const krakenURL = "https://api.kraken.com"

// krakenAliases maps Kraken's legacy asset codes to common tickers.
var krakenAliases = map[string]string{
	"XBT": "BTC",
	"XDG": "DOGE",
}

// Kraken reads spot tickers from the Kraken public REST API.
type Kraken struct {
	c      *restClient
	quotes map[string]bool
}

// NewKraken creates a Kraken adapter.
func NewKraken(opts Options) *Kraken {
	return &Kraken{c: newRESTClient("kraken", krakenURL, opts), quotes: assetSet(opts.QuoteAssets)}
}

func (k *Kraken) Name() string { return "kraken" }

type krakenPairs struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		WSName string `json:"wsname"`
		Status string `json:"status"`
	} `json:"result"`
}

type krakenTickers struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		C []string `json:"c"` // last trade [price, lot volume]
		V []string `json:"v"` // volume [today, last 24h]
	} `json:"result"`
}

// FetchQuotes returns last trade prices of online pairs. Kraken reports base
// volume only, so liquidity is converted to the quote asset at the last price.
func (k *Kraken) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	var (
		pairs krakenPairs
		tick  krakenTickers
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return k.c.getJSON(gctx, "/0/public/AssetPairs", &pairs) })
	g.Go(func() error { return k.c.getJSON(gctx, "/0/public/Ticker", &tick) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("kraken: fetch quotes: %w", err)
	}
	if len(pairs.Error) > 0 || len(tick.Error) > 0 {
		return nil, fmt.Errorf("kraken: fetch quotes: %s", strings.Join(append(pairs.Error, tick.Error...), "; "))
	}

	markets := make(map[string]market, len(pairs.Result))
	for id, p := range pairs.Result {
		if p.Status != "" && p.Status != "online" {
			continue
		}
		base, quote, ok := strings.Cut(p.WSName, "/")
		if !ok {
			continue
		}
		markets[id] = market{base: krakenAsset(base), quote: krakenAsset(quote)}
	}

	tickers := make([]ticker, 0, len(tick.Result))
	for _, id := range slices.Sorted(maps.Keys(tick.Result)) {
		t := tick.Result[id]
		if len(t.C) == 0 {
			continue
		}
		row := ticker{symbol: id, last: t.C[0]}
		if len(t.V) > 1 {
			row.quoteVolume = krakenQuoteVolume(t.V[1], t.C[0])
		}
		tickers = append(tickers, row)
	}
	return buildQuotes(markets, tickers, k.quotes), nil
}

func krakenAsset(s string) string {
	a := asset(s)
	if alias, ok := krakenAliases[a]; ok {
		return alias
	}
	return a
}

// krakenQuoteVolume returns baseVolume*last as a decimal string, or "" when
// either is unusable.
func krakenQuoteVolume(baseVolume, last string) string {
	v, err := decimal.NewFromString(baseVolume)
	if err != nil || v.IsNegative() {
		return ""
	}
	p, err := decimal.NewFromString(last)
	if err != nil || !p.IsPositive() {
		return ""
	}
	return v.Mul(p).String()
}
