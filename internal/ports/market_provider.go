package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// MarketProvider obtiene snapshots de eventos abiertos desde el exchange.
type MarketProvider interface {
	// FetchOpenEvent devuelve el evento abierto para el subyacente y la fecha
	// dados (ej: "KXHIGHNY" + mañana, o "KXBTC15M" + la ventana activa), con
	// sus buckets y bid/ask actuales.
	FetchOpenEvent(ctx context.Context, underlying string, date time.Time) (domain.Event, error)
}

// MarketResult es el resultado de liquidación de un mercado.
type MarketResult struct {
	Status string // "settled" | "finalized" | otro
	Result string // "yes" | "no" | ""
}

// IsSettled devuelve true si el mercado ya tiene resultado final.
func (r MarketResult) IsSettled() bool {
	return (r.Status == "settled" || r.Status == "finalized") && r.Result != ""
}

// SettlementProvider consulta resultados de mercados ya cerrados.
type SettlementProvider interface {
	FetchMarketResult(ctx context.Context, ticker string) (MarketResult, error)
}
