package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// OrderUpdate is a fill-status snapshot for a working order.
type OrderUpdate struct {
	Status domain.OrderStatus
	Filled int // cumulative contracts filled
}

// OrderExecutor places, cancels, and monitors limit orders on the exchange.
type OrderExecutor interface {
	// SubmitLimitOrder submits a resting limit order and returns the
	// exchange-assigned order ID.
	SubmitLimitOrder(ctx context.Context, ticker string, side domain.OrderSide, price, quantity int) (string, error)

	// CancelOrder cancels a working order by its exchange ID.
	CancelOrder(ctx context.Context, exchangeID string) error

	// FetchOrderStatus returns the current fill status of a working order.
	FetchOrderStatus(ctx context.Context, exchangeID string) (OrderUpdate, error)

	// GetBalance returns the available account balance in dollars.
	GetBalance(ctx context.Context) (float64, error)
}
