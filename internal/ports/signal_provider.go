package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// ForecastProvider entrega el pronóstico puntual para una ciudad y fecha.
// El modelo es opaco para el core: solo consumimos media y desviación.
type ForecastProvider interface {
	GetForecast(ctx context.Context, city string, date time.Time) (domain.Forecast, error)
}

// PriceProvider entrega precios spot e históricos del subyacente direccional.
type PriceProvider interface {
	// Spot devuelve el último precio del símbolo.
	Spot(ctx context.Context, symbol string) (float64, error)

	// PriceAt devuelve el precio del símbolo en el instante dado (kline).
	PriceAt(ctx context.Context, symbol string, at time.Time) (float64, error)
}
