package crypto

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testBinance(srv *httptest.Server) *Binance {
	return &Binance{
		http:    srv.Client(),
		base:    srv.URL,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func TestSpot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol": "BTCUSDT", "price": "97123.45000000"}`))
	}))
	defer srv.Close()

	price, err := testBinance(srv).Spot(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 97123.45, price, 0.001)
}

func TestSpot_BadPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"symbol": "BTCUSDT", "price": "n/a"}`))
	}))
	defer srv.Close()

	_, err := testBinance(srv).Spot(context.Background(), "BTCUSDT")
	assert.ErrorContains(t, err, "parse price")
}

func TestPriceAt(t *testing.T) {
	at := time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1m", q.Get("interval"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, strconv.FormatInt(at.UnixMilli(), 10), q.Get("startTime"))
		// [openTime, open, high, low, close, volume, ...]
		w.Write([]byte(`[[1788013800000, "96890.10", "96950.00", "96880.00", "96940.55", "12.3"]]`))
	}))
	defer srv.Close()

	price, err := testBinance(srv).PriceAt(context.Background(), "BTCUSDT", at)
	require.NoError(t, err)
	assert.InDelta(t, 96890.10, price, 0.001)
}

func TestPriceAt_NoKline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := testBinance(srv).PriceAt(context.Background(), "BTCUSDT", time.Now())
	assert.ErrorContains(t, err, "no kline")
}

func TestGet_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	_, err := testBinance(srv).Spot(context.Background(), "BTCUSDT")
	assert.ErrorContains(t, err, "API error 418")
}

func TestNewBinance_BaseSelection(t *testing.T) {
	assert.Equal(t, usBaseURL, NewBinance(true).base)
	assert.Equal(t, globalBaseURL, NewBinance(false).base)
}
