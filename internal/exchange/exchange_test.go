package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// serve starts a test server answering each path with its canned body.
func serve(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		mux.HandleFunc("GET "+path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func bySymbol(quotes []domain.Quote) map[string]domain.Quote {
	m := make(map[string]domain.Quote, len(quotes))
	for _, q := range quotes {
		m[q.Symbol()] = q
	}
	return m
}

func TestBinance_FetchQuotes(t *testing.T) {
	srv := serve(t, map[string]string{
		"/api/v3/exchangeInfo": `{"symbols":[
			{"symbol":"ETHBTC","status":"TRADING","baseAsset":"ETH","quoteAsset":"BTC","isSpotTradingAllowed":true},
			{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT","isSpotTradingAllowed":true},
			{"symbol":"OLDUSDT","status":"BREAK","baseAsset":"OLD","quoteAsset":"USDT","isSpotTradingAllowed":true},
			{"symbol":"MRGUSDT","status":"TRADING","baseAsset":"MRG","quoteAsset":"USDT","isSpotTradingAllowed":false}]}`,
		"/api/v3/ticker/24hr": `[
			{"symbol":"ETHBTC","lastPrice":"0.05100000","volume":"1000","quoteVolume":"51.0"},
			{"symbol":"BTCUSDT","lastPrice":"60000.01","volume":"10","quoteVolume":"600000.1"},
			{"symbol":"OLDUSDT","lastPrice":"1.0","quoteVolume":"1"},
			{"symbol":"MRGUSDT","lastPrice":"1.0","quoteVolume":"1"},
			{"symbol":"NEWUSDT","lastPrice":"2.0","quoteVolume":"1"}]`,
	})

	quotes, err := NewBinance(Options{BaseURL: srv.URL}).FetchQuotes(context.Background())

	require.NoError(t, err)
	got := bySymbol(quotes)
	require.Len(t, got, 2)
	assert.Equal(t, 0.051, got["ETH/BTC"].Price)
	require.NotNil(t, got["BTC/USDT"].Liquidity)
	assert.Equal(t, 600000.1, *got["BTC/USDT"].Liquidity)
}

func TestKuCoin_FetchQuotes(t *testing.T) {
	srv := serve(t, map[string]string{
		"/api/v1/symbols": `{"code":"200000","data":[
			{"symbol":"BTC-USDT","baseCurrency":"BTC","quoteCurrency":"USDT","enableTrading":true},
			{"symbol":"ETH-BTC","baseCurrency":"ETH","quoteCurrency":"BTC","enableTrading":true},
			{"symbol":"OFF-USDT","baseCurrency":"OFF","quoteCurrency":"USDT","enableTrading":false}]}`,
		"/api/v1/market/allTickers": `{"code":"200000","data":{"time":1700000000000,"ticker":[
			{"symbol":"BTC-USDT","last":"60000","vol":"10","volValue":"600000"},
			{"symbol":"ETH-BTC","last":"0.05","vol":"5","volValue":null},
			{"symbol":"OFF-USDT","last":"1","vol":"1","volValue":"1"}]}}`,
	})

	quotes, err := NewKuCoin(Options{BaseURL: srv.URL}).FetchQuotes(context.Background())

	require.NoError(t, err)
	got := bySymbol(quotes)
	require.Len(t, got, 2)
	assert.Equal(t, 60000.0, got["BTC/USDT"].Price)
	assert.Nil(t, got["ETH/BTC"].Liquidity)
}

func TestKuCoin_APIError(t *testing.T) {
	srv := serve(t, map[string]string{
		"/api/v1/symbols":           `{"code":"400100","data":[]}`,
		"/api/v1/market/allTickers": `{"code":"200000","data":{"ticker":[]}}`,
	})

	_, err := NewKuCoin(Options{BaseURL: srv.URL}).FetchQuotes(context.Background())

	assert.ErrorContains(t, err, "400100")
}

func TestBybit_FetchQuotes_DefaultQuoteFilter(t *testing.T) {
	srv := serve(t, map[string]string{
		"/v5/market/instruments-info": `{"retCode":0,"retMsg":"OK","result":{"category":"spot","list":[
			{"symbol":"BTCUSDT","baseCoin":"BTC","quoteCoin":"USDT","status":"Trading"},
			{"symbol":"ETHBTC","baseCoin":"ETH","quoteCoin":"BTC","status":"Trading"},
			{"symbol":"BTCEUR","baseCoin":"BTC","quoteCoin":"EUR","status":"Trading"},
			{"symbol":"XUSDT","baseCoin":"X","quoteCoin":"USDT","status":"PreLaunch"}]}}`,
		"/v5/market/tickers": `{"retCode":0,"retMsg":"OK","result":{"category":"spot","list":[
			{"symbol":"BTCUSDT","lastPrice":"60000","volume24h":"10","turnover24h":"600000"},
			{"symbol":"ETHBTC","lastPrice":"0.05","volume24h":"5","turnover24h":"0.25"},
			{"symbol":"BTCEUR","lastPrice":"55000","volume24h":"1","turnover24h":"55000"},
			{"symbol":"XUSDT","lastPrice":"1","volume24h":"1","turnover24h":"1"}]}}`,
	})

	quotes, err := NewBybit(Options{BaseURL: srv.URL}).FetchQuotes(context.Background())

	require.NoError(t, err)
	got := bySymbol(quotes)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "BTC/USDT")
	assert.Contains(t, got, "ETH/BTC")
}

func TestBybit_RetCode(t *testing.T) {
	srv := serve(t, map[string]string{
		"/v5/market/instruments-info": `{"retCode":10006,"retMsg":"Too many visits!","result":{"list":[]}}`,
		"/v5/market/tickers":          `{"retCode":0,"result":{"list":[]}}`,
	})

	_, err := NewBybit(Options{BaseURL: srv.URL}).FetchQuotes(context.Background())

	assert.ErrorContains(t, err, "Too many visits")
}

func TestGateIO_FetchQuotes(t *testing.T) {
	srv := serve(t, map[string]string{
		"/api/v4/spot/currency_pairs": `[
			{"id":"BTC_USDT","base":"BTC","quote":"USDT","trade_status":"tradable"},
			{"id":"ETH_BTC","base":"ETH","quote":"BTC","trade_status":"tradable"},
			{"id":"ABC_USDT","base":"ABC","quote":"USDT","trade_status":"untradable"}]`,
		"/api/v4/spot/tickers": `[
			{"currency_pair":"BTC_USDT","last":"60000","base_volume":"10","quote_volume":"600000"},
			{"currency_pair":"ETH_BTC","last":"","base_volume":"1","quote_volume":"0.05"},
			{"currency_pair":"ABC_USDT","last":"3","base_volume":"1","quote_volume":"3"}]`,
	})

	quotes, err := NewGateIO(Options{BaseURL: srv.URL}).FetchQuotes(context.Background())

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "BTC/USDT", quotes[0].Symbol())
}

func TestKraken_FetchQuotes(t *testing.T) {
	srv := serve(t, map[string]string{
		"/0/public/AssetPairs": `{"error":[],"result":{
			"XXBTZUSD":{"altname":"XBTUSD","wsname":"XBT/USD","status":"online"},
			"XETHXXBT":{"altname":"ETHXBT","wsname":"ETH/XBT","status":"online"},
			"XDGUSD":{"altname":"XDGUSD","wsname":"XDG/USD","status":"online"},
			"XXBTZUSD.d":{"altname":"XBTUSD.d"},
			"HALTUSD":{"wsname":"HALT/USD","status":"cancel_only"}}}`,
		"/0/public/Ticker": `{"error":[],"result":{
			"XXBTZUSD":{"c":["60000.0","0.01"],"v":["100","250"]},
			"XETHXXBT":{"c":["0.05","1"],"v":["10","20"]},
			"XDGUSD":{"c":["0.1","5"],"v":["1000","2000"]},
			"HALTUSD":{"c":["1","1"],"v":["1","1"]}}}`,
	})

	quotes, err := NewKraken(Options{BaseURL: srv.URL}).FetchQuotes(context.Background())

	require.NoError(t, err)
	got := bySymbol(quotes)
	require.Len(t, got, 3)
	assert.Equal(t, 60000.0, got["BTC/USD"].Price)
	require.NotNil(t, got["BTC/USD"].Liquidity)
	assert.Equal(t, 15000000.0, *got["BTC/USD"].Liquidity)
	assert.Contains(t, got, "ETH/BTC")
	assert.Contains(t, got, "DOGE/USD")
}

func TestFetch_HTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	_, err := NewGateIO(Options{BaseURL: srv.URL}).FetchQuotes(context.Background())

	assert.True(t, errors.Is(err, domain.ErrRateLimited))
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	_, err := NewBinance(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}).FetchQuotes(context.Background())

	assert.Error(t, err)
}

type countingLimiter struct{ waits atomic.Int32 }

func (c *countingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

func (c *countingLimiter) Wait(context.Context, string) error {
	c.waits.Add(1)
	return nil
}

func TestFetch_WaitsOnLimiter(t *testing.T) {
	srv := serve(t, map[string]string{
		"/api/v4/spot/currency_pairs": `[]`,
		"/api/v4/spot/tickers":        `[]`,
	})
	lim := &countingLimiter{}

	quotes, err := NewGateIO(Options{BaseURL: srv.URL, Limiter: lim}).FetchQuotes(context.Background())

	require.NoError(t, err)
	assert.Empty(t, quotes)
	assert.Equal(t, int32(2), lim.waits.Load())
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"60000.01", 60000.01, true},
		{" 0.00002 ", 0.00002, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := parsePrice(tt.in)
		assert.Equal(t, tt.ok, ok, "parsePrice(%q)", tt.in)
		assert.Equal(t, tt.want, got, "parsePrice(%q)", tt.in)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, name := range Builtin {
		p, err := New(name, Options{})
		require.NoError(t, err)
		r.Register(p)
	}

	assert.Equal(t, Builtin, r.List())
	p, err := r.Get("kraken")
	require.NoError(t, err)
	assert.Equal(t, "kraken", p.Name())

	_, err = r.Get("ftx")
	assert.True(t, errors.Is(err, domain.ErrUnknownExchange))
	_, err = New("ftx", Options{})
	assert.True(t, errors.Is(err, domain.ErrUnknownExchange))
}
