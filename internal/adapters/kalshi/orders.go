package kalshi

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// Orders implementa el executor de órdenes sobre el Client. Todas las órdenes
// operan el lado YES del contrato: comprar YES o vender YES, nunca NO.
type Orders struct {
	client *Client
}

func NewOrders(client *Client) *Orders {
	return &Orders{client: client}
}

type orderRequest struct {
	Ticker   string `json:"ticker"`
	Action   string `json:"action"` // "buy" | "sell"
	Side     string `json:"side"`   // siempre "yes"
	Count    int    `json:"count"`
	Type     string `json:"type"` // "limit"
	YesPrice int    `json:"yes_price"`
}

type orderData struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	FilledCount    int    `json:"filled_count"`
	RemainingCount int    `json:"remaining_count"`
}

type orderResponse struct {
	Order orderData `json:"order"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"` // centavos
}

// SubmitLimitOrder envía una orden limit y devuelve el ID del exchange.
func (o *Orders) SubmitLimitOrder(ctx context.Context, ticker string, side domain.OrderSide, price, quantity int) (string, error) {
	req := orderRequest{
		Ticker:   ticker,
		Action:   string(side),
		Side:     "yes",
		Count:    quantity,
		Type:     "limit",
		YesPrice: price,
	}
	var resp orderResponse
	if err := o.client.post(ctx, o.client.ordersLimiter, "/trade-api/v2/portfolio/orders", req, &resp); err != nil {
		return "", fmt.Errorf("kalshi.SubmitLimitOrder: %w", err)
	}
	if resp.Order.OrderID == "" {
		return "", fmt.Errorf("kalshi.SubmitLimitOrder: empty order id in response")
	}
	return resp.Order.OrderID, nil
}

// CancelOrder cancela una orden en reposo por su ID de exchange.
func (o *Orders) CancelOrder(ctx context.Context, exchangeID string) error {
	if err := o.client.del(ctx, o.client.ordersLimiter, "/trade-api/v2/portfolio/orders/"+exchangeID, nil); err != nil {
		return fmt.Errorf("kalshi.CancelOrder: %w", err)
	}
	return nil
}

// FetchOrderStatus devuelve el estado de fill actual de una orden.
func (o *Orders) FetchOrderStatus(ctx context.Context, exchangeID string) (ports.OrderUpdate, error) {
	var resp orderResponse
	if err := o.client.get(ctx, o.client.ordersLimiter, "/trade-api/v2/portfolio/orders/"+exchangeID, &resp); err != nil {
		return ports.OrderUpdate{}, fmt.Errorf("kalshi.FetchOrderStatus: %w", err)
	}
	return ports.OrderUpdate{
		Status: mapOrderStatus(resp.Order.Status, resp.Order.FilledCount),
		Filled: resp.Order.FilledCount,
	}, nil
}

// GetBalance devuelve el saldo disponible en dólares.
func (o *Orders) GetBalance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	if err := o.client.get(ctx, o.client.ordersLimiter, "/trade-api/v2/portfolio/balance", &resp); err != nil {
		return 0, fmt.Errorf("kalshi.GetBalance: %w", err)
	}
	return float64(resp.Balance) / 100, nil
}

// mapOrderStatus traduce el estado del exchange a nuestra máquina de estados.
// Una orden "resting" con fills parciales es partially_filled para nosotros.
func mapOrderStatus(status string, filled int) domain.OrderStatus {
	switch status {
	case "executed":
		return domain.StatusFilled
	case "canceled", "cancelled":
		return domain.StatusCancelled
	case "expired":
		return domain.StatusExpired
	default: // resting | pending
		if filled > 0 {
			return domain.StatusPartial
		}
		return domain.StatusPending
	}
}
