package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Notifier presenta las decisiones de cada ciclo al usuario.
type Notifier interface {
	// Notify muestra las decisiones del ciclo (aceptadas, rechazadas, skips).
	Notify(ctx context.Context, decisions []domain.Decision) error

	// PrintReport imprime el informe del trade log.
	PrintReport(summary domain.TradeSummary, recent []domain.TradeRecord)
}
