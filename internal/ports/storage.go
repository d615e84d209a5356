package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// TradeStorage persiste el trade log append-only y sus liquidaciones.
type TradeStorage interface {
	// SaveTrade inserta un trade nuevo y rellena su ID.
	SaveTrade(ctx context.Context, trade *domain.TradeRecord) error

	// UpdateSettlement escribe los campos de liquidación de un trade ya
	// existente. Es la única mutación permitida sobre un registro.
	UpdateSettlement(ctx context.Context, trade domain.TradeRecord) error

	// GetUnsettled devuelve los trades pendientes de liquidar.
	GetUnsettled(ctx context.Context) ([]domain.TradeRecord, error)

	// GetRecent devuelve los últimos n trades, más recientes al final.
	GetRecent(ctx context.Context, n int) ([]domain.TradeRecord, error)

	// Summary devuelve las estadísticas agregadas del log.
	Summary(ctx context.Context) (domain.TradeSummary, error)

	// Close cierra la conexión limpiamente.
	Close() error
}
