// Package crypto implementa el proveedor de precios spot contra la API
// pública de Binance. Sin autenticación: solo endpoints de market data.
package crypto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	usBaseURL     = "https://api.binance.us"
	globalBaseURL = "https://api.binance.com"
)

// Binance es el PriceProvider sobre los endpoints públicos /api/v3.
type Binance struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

// NewBinance crea el proveedor. useUS selecciona api.binance.us, que es el
// único endpoint accesible desde IPs estadounidenses.
func NewBinance(useUS bool) *Binance {
	base := globalBaseURL
	if useUS {
		base = usBaseURL
	}
	return &Binance{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    base,
		limiter: rate.NewLimiter(10, 5),
	}
}

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Spot devuelve el último precio del símbolo ("BTCUSDT").
func (b *Binance) Spot(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{"symbol": {symbol}}
	var resp tickerResponse
	if err := b.get(ctx, "/api/v3/ticker/price?"+q.Encode(), &resp); err != nil {
		return 0, fmt.Errorf("crypto.Spot: %w", err)
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("crypto.Spot: parse price %q: %w", resp.Price, err)
	}
	return price, nil
}

// PriceAt devuelve el precio de apertura del kline de 1 minuto en el instante
// dado. Se usa para fijar el precio de referencia al abrir una ventana.
func (b *Binance) PriceAt(ctx context.Context, symbol string, at time.Time) (float64, error) {
	q := url.Values{
		"symbol":    {symbol},
		"interval":  {"1m"},
		"startTime": {strconv.FormatInt(at.UnixMilli(), 10)},
		"limit":     {"1"},
	}
	// Kline: [openTime, open, high, low, close, ...] con precios como strings.
	var klines [][]any
	if err := b.get(ctx, "/api/v3/klines?"+q.Encode(), &klines); err != nil {
		return 0, fmt.Errorf("crypto.PriceAt: %w", err)
	}
	if len(klines) == 0 || len(klines[0]) < 2 {
		return 0, fmt.Errorf("crypto.PriceAt: no kline for %s at %s", symbol, at.Format(time.RFC3339))
	}
	open, ok := klines[0][1].(string)
	if !ok {
		return 0, fmt.Errorf("crypto.PriceAt: unexpected kline format")
	}
	price, err := strconv.ParseFloat(open, 64)
	if err != nil {
		return 0, fmt.Errorf("crypto.PriceAt: parse open %q: %w", open, err)
	}
	return price, nil
}

func (b *Binance) get(ctx context.Context, path string, out any) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
