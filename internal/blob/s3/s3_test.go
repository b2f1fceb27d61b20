package s3blob

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/triscan/internal/domain"
)

type memObjects struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memObjects) Put(_ context.Context, key string, body []byte, contentType string) error {
	m.objects[key] = bytes.Clone(body)
	m.types[key] = contentType
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (m *memObjects) List(_ context.Context, prefix string) ([]domain.ObjectInfo, error) {
	var out []domain.ObjectInfo
	for k, b := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, domain.ObjectInfo{Key: k, Size: int64(len(b))})
		}
	}
	return out, nil
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	objs := newMemObjects()
	store := NewSnapshotStore(objs, "quotes/")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	quotes := []domain.Quote{
		{Base: "BTC", Quote: "USDT", Price: 50000, Liquidity: domain.Float(1e6)},
		{Base: "BTC", Quote: "USDT", Price: 1},
		{Base: "ETH", Quote: "BTC", Price: 0.05},
		{Base: "BAD", Quote: "USDT", Price: -1},
	}
	require.NoError(t, store.RecordQuotes(context.Background(), "binance", quotes, at))
	assert.Equal(t, "application/json", objs.types["quotes/binance.json"])

	snap, err := store.Latest(context.Background(), "binance")
	require.NoError(t, err)
	assert.Equal(t, "binance", snap.Exchange)
	assert.True(t, at.Equal(snap.RecordedAt))
	require.Len(t, snap.Quotes, 2)
	assert.Equal(t, 50000.0, snap.Quotes[0].Price)
	require.NotNil(t, snap.Quotes[0].Liquidity)
	assert.Equal(t, 1e6, *snap.Quotes[0].Liquidity)
	assert.Nil(t, snap.Quotes[1].Liquidity)
}

func TestSnapshotStoreOverwrites(t *testing.T) {
	objs := newMemObjects()
	store := NewSnapshotStore(objs, "quotes/")
	ctx := context.Background()

	require.NoError(t, store.RecordQuotes(ctx, "kraken", []domain.Quote{{Base: "A", Quote: "B", Price: 1}}, time.Now()))
	require.NoError(t, store.RecordQuotes(ctx, "kraken", []domain.Quote{{Base: "A", Quote: "B", Price: 2}}, time.Now()))

	snap, err := store.Latest(ctx, "kraken")
	require.NoError(t, err)
	require.Len(t, snap.Quotes, 1)
	assert.Equal(t, 2.0, snap.Quotes[0].Price)
}

func TestSnapshotStoreLatestMissing(t *testing.T) {
	objs := newMemObjects()
	store := NewSnapshotStore(objs, "quotes/")

	_, err := store.Latest(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshotStoreExchanges(t *testing.T) {
	objs := newMemObjects()
	objs.objects["quotes/kucoin.json"] = []byte("{}")
	objs.objects["quotes/binance.json"] = []byte("{}")
	objs.objects["quotes/archive/old.json"] = []byte("{}")
	objs.objects["quotes/readme.txt"] = []byte("")
	objs.objects["other/bybit.json"] = []byte("{}")
	store := NewSnapshotStore(objs, "quotes/")

	names, err := store.Exchanges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"binance", "kucoin"}, names)
}

func TestSnapshotStoreCorruptObject(t *testing.T) {
	objs := newMemObjects()
	objs.objects["bybit.json"] = []byte("{not json")
	store := NewSnapshotStore(objs, "")

	_, err := store.Latest(context.Background(), "bybit")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "decode snapshot bybit")
}

func TestSnapshotStoreFillsMissingExchange(t *testing.T) {
	objs := newMemObjects()
	objs.objects["gateio.json"] = []byte(`{"quotes":[{"base":"ETH","quote":"USDT","price":2500}]}`)
	store := NewSnapshotStore(objs, "")

	snap, err := store.Latest(context.Background(), "gateio")
	require.NoError(t, err)
	assert.Equal(t, "gateio", snap.Exchange)
	require.Len(t, snap.Quotes, 1)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("s3.example.com", true))
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("localhost:9000", false))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("http://minio:9000", true))
}

func TestNewRequiresBucketAndRegion(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	assert.Error(t, err)
	_, err = New(context.Background(), ClientConfig{Bucket: "b"})
	assert.Error(t, err)
}
