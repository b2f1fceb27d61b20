// Package exchange fetches spot tickers from centralized exchanges and
// normalizes them into domain quotes.
package exchange

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sugawarayuuta/sonnet"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// Options configures a single exchange adapter.
type Options struct {
	BaseURL            string
	Timeout            time.Duration
	InsecureSkipVerify bool
	// QuoteAssets restricts markets to these quote assets. Empty keeps all,
	// except for bybit which falls back to its default set.
	QuoteAssets []string
	// Limiter, when set, is waited on before every request using the
	// exchange name as key.
	Limiter domain.RateLimiter
}

// restClient is the shared HTTP plumbing of the adapters.
type restClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    domain.RateLimiter
}

func newRESTClient(name, defaultURL string, opts Options) *restClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	if opts.InsecureSkipVerify {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per exchange
		hc.Transport = tr
	}
	return &restClient{name: name, baseURL: base, httpClient: hc, limiter: opts.Limiter}
}

// getJSON issues a GET and decodes the body into out.
func (c *restClient) getJSON(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "exchange:"+c.name); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return err
	}
	if err := sonnet.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	msg := string(body)
	if len(msg) > 256 {
		msg = msg[:256]
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusTooManyRequests, http.StatusTeapot:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}

// parsePrice parses a decimal string; empty, malformed and non-positive
// values report false.
func parsePrice(s string) (float64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// parseVolume parses an optional volume; unusable values yield nil.
func parseVolume(s string) *float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}

func asset(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// market is a tradable pair as listed by an exchange's metadata endpoint.
type market struct {
	base, quote string
}

// buildQuotes joins tickers to tradable markets by exchange symbol.
func buildQuotes(markets map[string]market, tickers []ticker, quoteAssets map[string]bool) []domain.Quote {
	out := make([]domain.Quote, 0, len(tickers))
	for _, t := range tickers {
		m, ok := markets[t.symbol]
		if !ok {
			continue
		}
		if len(quoteAssets) > 0 && !quoteAssets[m.quote] {
			continue
		}
		price, ok := parsePrice(t.last)
		if !ok {
			continue
		}
		q := domain.Quote{Base: m.base, Quote: m.quote, Price: price}
		if t.quoteVolume != "" {
			q.Liquidity = parseVolume(t.quoteVolume)
		}
		out = append(out, q)
	}
	return out
}

// ticker is the exchange-neutral subset of a 24h ticker row.
type ticker struct {
	symbol      string
	last        string
	quoteVolume string
}

func assetSet(assets []string) map[string]bool {
	if len(assets) == 0 {
		return nil
	}
	m := make(map[string]bool, len(assets))
	for _, a := range assets {
		m[asset(a)] = true
	}
	return m
}
