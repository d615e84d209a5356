package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/metrics"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// execute turns an accepted candidate into resting limit orders. The price is
// deliberately the leg's resting price rather than a marketable order: we
// trade certainty of fill for better expected price and accept that some legs
// may never fill.
//
// The risk budget is reserved immediately after submission, not after fill
// confirmation: a burst of evaluations must never double-commit budget while
// fills are pending. The bias overstates committed risk when orders go
// unfilled; it never understates it. ReserveOnFill flips the timing for tests.
func (e *Engine) execute(ctx context.Context, ev domain.Event, cand domain.CandidatePosition) (bool, error) {
	if e.cfg.DryRun {
		for _, leg := range cand.Legs {
			slog.Info("[dry run] would place order",
				"ticker", leg.Ticker, "side", leg.Side,
				"price", fmt.Sprintf("%d¢", leg.Price), "quantity", leg.Quantity)
		}
		return false, nil
	}

	var submitted int
	for _, leg := range cand.Legs {
		exchangeID, err := e.executor.SubmitLimitOrder(ctx, leg.Ticker, leg.Side, leg.Price, leg.Quantity)
		if err != nil {
			slog.Warn("order submit failed", "ticker", leg.Ticker, "err", err)
			continue
		}

		now := time.Now()
		order := &domain.Order{
			ID:         uuid.New().String(),
			ExchangeID: exchangeID,
			MarketKey:  cand.MarketKey,
			Ticker:     leg.Ticker,
			Side:       leg.Side,
			Price:      leg.Price,
			Quantity:   leg.Quantity,
			Status:     domain.StatusPending,
			PlacedAt:   now,
			UpdatedAt:  now,
		}
		e.working = append(e.working, &workingOrder{order: order, close: ev.CloseTime})
		submitted++
		metrics.OrdersPlaced.WithLabelValues(string(leg.Side)).Inc()

		slog.Info("order placed",
			"order", order.ID, "exchange_id", exchangeID,
			"ticker", leg.Ticker, "side", leg.Side,
			"price", fmt.Sprintf("%d¢", leg.Price), "quantity", leg.Quantity)
	}

	if submitted == 0 {
		return false, fmt.Errorf("no leg of %s could be submitted", cand.MarketKey)
	}

	// Reserve the full candidate cost even on partial submission: conservative
	// overstatement beats understating committed risk.
	if !e.cfg.ReserveOnFill {
		e.ledger.Reserve(cand.MarketKey, cand.TotalCostDollars())
	}
	return true, nil
}

// syncOrders refreshes every working order's fill status, applies the close
// policy, and emits trade records for orders that reached a terminal state.
// A status-check failure skips that order until the next cycle.
func (e *Engine) syncOrders(ctx context.Context) {
	if len(e.working) == 0 {
		return
	}

	now := time.Now()
	remaining := e.working[:0]
	for _, w := range e.working {
		if w.order.Status.IsTerminal() {
			continue
		}

		update, err := e.executor.FetchOrderStatus(ctx, w.order.ExchangeID)
		if err != nil {
			slog.Warn("fill check failed", "order", w.order.ID, "err", err)
			remaining = append(remaining, w)
			continue
		}
		e.applyUpdate(w.order, update, now)

		if !w.order.Status.IsTerminal() && !w.close.IsZero() && now.After(w.close.Add(-closeCheckSlack)) {
			e.applyClosePolicy(ctx, w, now)
		}

		if w.order.Status.IsTerminal() {
			e.recordTrade(ctx, w.order)
			continue
		}
		remaining = append(remaining, w)
	}
	e.working = remaining
}

// applyUpdate maps an exchange status snapshot onto the order state machine.
func (e *Engine) applyUpdate(order *domain.Order, update ports.OrderUpdate, now time.Time) {
	if update.Status == order.Status && update.Filled == order.Filled {
		return
	}
	to := update.Status
	// Exchanges report partials with full quantity matched as filled.
	if to == domain.StatusPartial && update.Filled == order.Quantity {
		to = domain.StatusFilled
	}
	if err := order.Transition(to, update.Filled, now); err != nil {
		slog.Warn("ignoring illegal order update", "order", order.ID, "err", err)
		return
	}
	if to.IsTerminal() {
		metrics.OrdersTerminal.WithLabelValues(string(to)).Inc()
	}
}

// applyClosePolicy handles orders still pending or partially filled at the
// close boundary: cancel the remainder, or leave it to expire with the market,
// per configuration. Some exchanges auto-expire resting orders at close.
func (e *Engine) applyClosePolicy(ctx context.Context, w *workingOrder, now time.Time) {
	switch e.cfg.ClosePolicy {
	case ClosePolicyCancel:
		if err := e.executor.CancelOrder(ctx, w.order.ExchangeID); err != nil {
			slog.Warn("cancel at close failed", "order", w.order.ID, "err", err)
			return
		}
		if err := w.order.Transition(domain.StatusCancelled, w.order.Filled, now); err != nil {
			slog.Warn("cancel transition rejected", "order", w.order.ID, "err", err)
			return
		}
		metrics.OrdersTerminal.WithLabelValues(string(domain.StatusCancelled)).Inc()
		slog.Info("order cancelled at close", "order", w.order.ID, "filled", w.order.Filled)
	case ClosePolicyExpire:
		if now.Before(w.close) {
			return
		}
		if err := w.order.Transition(domain.StatusExpired, w.order.Filled, now); err != nil {
			slog.Warn("expire transition rejected", "order", w.order.ID, "err", err)
			return
		}
		metrics.OrdersTerminal.WithLabelValues(string(domain.StatusExpired)).Inc()
		slog.Info("order expired with market", "order", w.order.ID, "filled", w.order.Filled)
	}
}

// recordTrade appends the terminal outcome to the trade log with the realized
// quantity, not the requested one.
func (e *Engine) recordTrade(ctx context.Context, order *domain.Order) {
	trade := &domain.TradeRecord{
		OrderID:   order.ID,
		MarketKey: order.MarketKey,
		Ticker:    order.Ticker,
		Side:      order.Side,
		Price:     order.Price,
		Quantity:  order.Filled,
		Cost:      order.CostDollars(),
		PlacedAt:  order.PlacedAt,
	}
	if e.cfg.ReserveOnFill && order.Filled > 0 {
		e.ledger.Reserve(order.MarketKey, trade.Cost)
	}
	if e.store == nil {
		return
	}
	if err := e.store.SaveTrade(ctx, trade); err != nil {
		slog.Warn("trade record save failed", "order", order.ID, "err", err)
		return
	}
	slog.Info("trade recorded",
		"order", order.ID, "ticker", order.Ticker, "status", order.Status,
		"quantity", order.Filled, "cost", fmt.Sprintf("$%.2f", trade.Cost))
}

// Shutdown best-effort cancels all resting orders before exit.
func (e *Engine) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, w := range e.working {
		if w.order.Status.IsTerminal() {
			continue
		}
		if err := e.executor.CancelOrder(ctx, w.order.ExchangeID); err != nil {
			slog.Warn("shutdown cancel failed", "order", w.order.ID, "err", err)
			continue
		}
		if err := w.order.Transition(domain.StatusCancelled, w.order.Filled, time.Now()); err == nil {
			e.recordTrade(ctx, w.order)
		}
	}
	e.working = nil
}
