package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/kalshibot/internal/metrics"
)

// CheckSettlements polls results for unsettled trades and writes the realized
// outcome back to the trade log. Wins and losses feed the circuit breaker.
// Returns the number of newly settled trades.
func (e *Engine) CheckSettlements(ctx context.Context) (int, error) {
	if e.store == nil || e.settlements == nil {
		return 0, nil
	}

	unsettled, err := e.store.GetUnsettled(ctx)
	if err != nil {
		return 0, fmt.Errorf("engine.CheckSettlements: load unsettled: %w", err)
	}

	var settled int
	for _, trade := range unsettled {
		res, err := e.settlements.FetchMarketResult(ctx, trade.Ticker)
		if err != nil {
			// Market may be gone already; revisit next cycle.
			slog.Warn("settlement lookup failed", "ticker", trade.Ticker, "err", err)
			continue
		}
		if !res.IsSettled() {
			continue
		}

		trade.Settle(res.Result, nowFunc())
		if err := e.store.UpdateSettlement(ctx, trade); err != nil {
			slog.Warn("settlement update failed", "ticker", trade.Ticker, "err", err)
			continue
		}
		settled++

		if trade.PnL >= 0 {
			e.breaker.RecordWin(trade.PnL)
			metrics.TradesSettled.WithLabelValues("win").Inc()
		} else {
			e.breaker.RecordLoss(trade.PnL)
			metrics.TradesSettled.WithLabelValues("loss").Inc()
		}

		slog.Info("trade settled",
			"ticker", trade.Ticker, "result", res.Result,
			"payout", fmt.Sprintf("$%.2f", trade.Payout),
			"pnl", fmt.Sprintf("$%+.2f", trade.PnL))
	}
	return settled, nil
}
