package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// cityCodes mapea ciudad a su código en los tickers de series de temperatura.
var cityCodes = map[string]string{
	"NYC":          "NY",
	"CHICAGO":      "CHI",
	"MIAMI":        "MIA",
	"AUSTIN":       "AUS",
	"DENVER":       "DEN",
	"HOUSTON":      "HOU",
	"LOS_ANGELES":  "LAX",
	"PHILADELPHIA": "PHIL",
}

// SeriesForCity devuelve el series ticker de máxima diaria para una ciudad
// ("NYC" -> "KXHIGHNY"). Si la ciudad no está mapeada se usa tal cual.
func SeriesForCity(city string) string {
	code, ok := cityCodes[strings.ToUpper(city)]
	if !ok {
		code = strings.ToUpper(city)
	}
	return "KXHIGH" + code
}

// marketData es el DTO de un mercado individual de la API.
type marketData struct {
	Ticker    string    `json:"ticker"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	Status    string    `json:"status"`
	YesBid    int       `json:"yes_bid"`
	YesAsk    int       `json:"yes_ask"`
	Volume    int       `json:"volume"`
	CloseTime time.Time `json:"close_time"`
	Result    string    `json:"result"`
}

type marketsResponse struct {
	Markets []marketData `json:"markets"`
}

type marketResponse struct {
	Market marketData `json:"market"`
}

// Markets implementa los providers de mercado y liquidación sobre el Client.
type Markets struct {
	client *Client
}

func NewMarkets(client *Client) *Markets {
	return &Markets{client: client}
}

// FetchOpenEvent devuelve el snapshot del evento abierto para el series ticker
// y la fecha dados. Para series con evento diario ("KXHIGHNY") el event ticker
// es serie-fecha; para series de ventanas ("KXBTC15M") no hay evento por fecha
// y se cae a la ventana abierta más próxima a cerrar.
func (m *Markets) FetchOpenEvent(ctx context.Context, underlying string, date time.Time) (domain.Event, error) {
	eventTicker := fmt.Sprintf("%s-%s", underlying, strings.ToUpper(date.Format("06Jan02")))

	q := url.Values{"event_ticker": {eventTicker}, "limit": {"50"}}
	var resp marketsResponse
	if err := m.client.get(ctx, m.client.marketsLimiter, "/trade-api/v2/markets?"+q.Encode(), &resp); err != nil {
		return domain.Event{}, fmt.Errorf("kalshi.FetchOpenEvent: list markets: %w", err)
	}

	if len(resp.Markets) == 0 {
		return m.fetchActiveWindow(ctx, underlying, date)
	}
	return buildEvent(eventTicker, underlying, date, resp.Markets)
}

// fetchActiveWindow busca la ventana abierta de una serie direccional y la
// modela como evento de un solo bucket sin límites.
func (m *Markets) fetchActiveWindow(ctx context.Context, series string, date time.Time) (domain.Event, error) {
	q := url.Values{"series_ticker": {series}, "status": {"open"}, "limit": {"20"}}
	var resp marketsResponse
	if err := m.client.get(ctx, m.client.marketsLimiter, "/trade-api/v2/markets?"+q.Encode(), &resp); err != nil {
		return domain.Event{}, fmt.Errorf("kalshi.FetchOpenEvent: list windows: %w", err)
	}

	now := time.Now()
	var active *marketData
	for i := range resp.Markets {
		md := &resp.Markets[i]
		if md.CloseTime.Before(now) {
			continue
		}
		if active == nil || md.CloseTime.Before(active.CloseTime) {
			active = md
		}
	}
	if active == nil {
		return domain.Event{}, fmt.Errorf("kalshi.FetchOpenEvent: no open window for %s", series)
	}

	return domain.Event{
		Ticker:    active.Ticker,
		Title:     active.Title,
		City:      series,
		Date:      date,
		CloseTime: active.CloseTime,
		Status:    normalizeStatus(active.Status),
		Buckets: []domain.Bucket{{
			Ticker: active.Ticker,
			YesBid: active.YesBid,
			YesAsk: active.YesAsk,
			Volume: active.Volume,
			Open:   active.Status == "open" || active.Status == "active",
		}},
	}, nil
}

// buildEvent convierte la lista cruda de mercados en un Event con buckets
// parseados y ordenados. Los mercados con sufijo no reconocido se descartan.
func buildEvent(eventTicker, underlying string, date time.Time, raw []marketData) (domain.Event, error) {
	buckets := make([]domain.Bucket, 0, len(raw))
	var closeTime time.Time
	anyActive := false

	for _, md := range raw {
		b, ok := parseBucket(md)
		if !ok {
			continue
		}
		buckets = append(buckets, b)
		if closeTime.IsZero() || md.CloseTime.Before(closeTime) {
			closeTime = md.CloseTime
		}
		if md.Status == "active" || md.Status == "open" {
			anyActive = true
		}
	}
	if len(buckets) == 0 {
		return domain.Event{}, fmt.Errorf("kalshi.FetchOpenEvent: event %s has no parseable buckets", eventTicker)
	}

	status := "closed"
	if anyActive {
		status = "open"
	}
	return domain.Event{
		Ticker:    eventTicker,
		Title:     fmt.Sprintf("%s on %s", underlying, date.Format("2006-01-02")),
		City:      underlying,
		Date:      date,
		CloseTime: closeTime,
		Buckets:   domain.SortBuckets(buckets),
		Status:    status,
	}, nil
}

// parseBucket extrae el bucket del sufijo del ticker:
//
//	KXHIGHLAX-25DEC30-B70.5  rango 70-71
//	KXHIGHLAX-25DEC30-T68    tail; el lado sale del subtítulo
func parseBucket(md marketData) (domain.Bucket, bool) {
	parts := strings.Split(md.Ticker, "-")
	if len(parts) < 3 {
		return domain.Bucket{}, false
	}
	suffix := parts[len(parts)-1]
	if len(suffix) < 2 {
		return domain.Bucket{}, false
	}

	b := domain.Bucket{
		Ticker: md.Ticker,
		YesBid: md.YesBid,
		YesAsk: md.YesAsk,
		Volume: md.Volume,
		Open:   md.Status == "active" || md.Status == "open",
	}

	switch suffix[0] {
	case 'B':
		// B70.5 es el punto medio de un rango de grado entero: 70-71.
		mid, err := strconv.ParseFloat(suffix[1:], 64)
		if err != nil {
			return domain.Bucket{}, false
		}
		lower := int(mid - 0.5)
		upper := int(mid + 0.5)
		b.Lower, b.Upper = &lower, &upper
	case 'T':
		threshold, err := strconv.Atoi(suffix[1:])
		if err != nil {
			return domain.Bucket{}, false
		}
		subtitle := strings.ToLower(md.Subtitle)
		if strings.Contains(subtitle, "<") || strings.Contains(subtitle, "below") {
			b.Upper = &threshold
		} else {
			b.Lower = &threshold
		}
	default:
		return domain.Bucket{}, false
	}
	return b, true
}

func normalizeStatus(status string) string {
	if status == "active" {
		return "open"
	}
	return status
}

// FetchMarketResult consulta el estado de liquidación de un mercado.
func (m *Markets) FetchMarketResult(ctx context.Context, ticker string) (ports.MarketResult, error) {
	var resp marketResponse
	if err := m.client.get(ctx, m.client.marketsLimiter, "/trade-api/v2/markets/"+ticker, &resp); err != nil {
		return ports.MarketResult{}, fmt.Errorf("kalshi.FetchMarketResult: %w", err)
	}
	return ports.MarketResult{
		Status: resp.Market.Status,
		Result: resp.Market.Result,
	}, nil
}
