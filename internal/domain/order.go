package domain

import (
	"fmt"
	"time"
)

// OrderSide is the side of the YES contract being traded.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderStatus is the lifecycle state of a working exchange order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPartial   OrderStatus = "partially_filled"
	StatusFilled    OrderStatus = "filled"
	StatusCancelled OrderStatus = "cancelled"
	StatusExpired   OrderStatus = "expired"
)

// IsTerminal returns true for states that admit no further transition.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// validTransitions encodes the order state machine:
//
//	Pending → PartiallyFilled | Filled | Cancelled | Expired
//	PartiallyFilled → Filled | Cancelled | Expired
func validTransitions(from OrderStatus) []OrderStatus {
	switch from {
	case StatusPending:
		return []OrderStatus{StatusPartial, StatusFilled, StatusCancelled, StatusExpired}
	case StatusPartial:
		return []OrderStatus{StatusFilled, StatusCancelled, StatusExpired}
	}
	return nil
}

// Order is one leg's working limit order on the exchange.
type Order struct {
	ID         string // local UUID
	ExchangeID string
	MarketKey  string
	Ticker     string
	Side       OrderSide
	Price      int // limit price in cents
	Quantity   int // requested contracts
	Filled     int // contracts filled so far
	Status     OrderStatus
	PlacedAt   time.Time
	UpdatedAt  time.Time
}

// Remaining returns the unfilled quantity.
func (o Order) Remaining() int {
	return o.Quantity - o.Filled
}

// CostDollars returns the cost of the filled portion in dollars.
func (o Order) CostDollars() float64 {
	return float64(o.Price*o.Filled) / 100
}

// Transition moves the order to a new status, enforcing the state machine.
// filled is the cumulative filled quantity reported by the exchange; it may
// never decrease nor exceed the requested quantity.
func (o *Order) Transition(to OrderStatus, filled int, at time.Time) error {
	if o.Status.IsTerminal() {
		return fmt.Errorf("order %s: %s is terminal, cannot move to %s", o.ID, o.Status, to)
	}
	ok := false
	for _, v := range validTransitions(o.Status) {
		if v == to {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("order %s: invalid transition %s → %s", o.ID, o.Status, to)
	}
	if filled < o.Filled || filled > o.Quantity {
		return fmt.Errorf("order %s: filled %d out of [%d,%d]", o.ID, filled, o.Filled, o.Quantity)
	}
	if to == StatusFilled && filled != o.Quantity {
		return fmt.Errorf("order %s: filled status with %d/%d contracts", o.ID, filled, o.Quantity)
	}
	if to == StatusPartial && (filled == 0 || filled == o.Quantity) {
		return fmt.Errorf("order %s: partial status with %d/%d contracts", o.ID, filled, o.Quantity)
	}
	o.Status = to
	o.Filled = filled
	o.UpdatedAt = at
	return nil
}

// TradeRecord is the append-only settlement record of one order's terminal
// outcome. Created when the order leaves the pending states; settlement fields
// are filled once the underlying event resolves. Never deleted.
type TradeRecord struct {
	ID        int64
	OrderID   string
	MarketKey string
	Ticker    string
	Side      OrderSide
	Price     int // entry price in cents
	Quantity  int // realized (filled) contracts, not requested
	Cost      float64
	PlacedAt  time.Time

	Settled   bool
	SettledAt *time.Time
	Result    string // "yes" | "no"
	Payout    float64
	PnL       float64
}

// Settle fills the settlement fields from the market result. A buy wins when
// YES resolves, a sell (sold YES ≈ bought NO) wins when NO resolves; winners
// collect $1 per contract.
func (t *TradeRecord) Settle(result string, at time.Time) {
	t.Settled = true
	t.SettledAt = &at
	t.Result = result

	won := (t.Side == SideBuy && result == "yes") || (t.Side == SideSell && result == "no")
	if won {
		t.Payout = float64(t.Quantity)
	}
	t.PnL = t.Payout - t.Cost
}
