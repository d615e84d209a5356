package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

func TestSyncOrders_RecordsFilledTrades(t *testing.T) {
	ev := spreadEvent(6*time.Hour, 30, 49, 33, 12)
	markets := &stubMarkets{events: map[string]domain.Event{"KXHIGHNY": ev}}
	exec := &stubExecutor{}
	store := &memStore{}

	e := newTestEngine(t, Config{}, markets, &stubSettlements{}, exec, store)
	require.NoError(t, e.RunOnce(context.Background()))
	require.Len(t, e.working, 2)

	// One leg reports filled outright; the other is a "partial" with the full
	// quantity matched, which the state machine promotes to filled.
	exec.updates = map[string]ports.OrderUpdate{
		"ex-1": {Status: domain.StatusFilled, Filled: 10},
		"ex-2": {Status: domain.StatusPartial, Filled: 10},
	}
	e.syncOrders(context.Background())

	assert.Empty(t, e.working)
	require.Len(t, store.trades, 2)
	assert.Equal(t, 10, store.trades[0].Quantity)
	assert.InDelta(t, 4.90, store.trades[0].Cost, 0.001) // 49¢ × 10
	assert.Equal(t, 10, store.trades[1].Quantity)
	assert.InDelta(t, 3.30, store.trades[1].Cost, 0.001) // 33¢ × 10
}

func TestSyncOrders_CancelsPartialAtClose(t *testing.T) {
	// Close in one minute: inside the cancel slack.
	ev := spreadEvent(time.Minute, 30, 49, 33, 12)
	markets := &stubMarkets{events: map[string]domain.Event{"KXHIGHNY": ev}}
	exec := &stubExecutor{}
	store := &memStore{}

	e := newTestEngine(t, Config{ClosePolicy: ClosePolicyCancel}, markets, &stubSettlements{}, exec, store)
	require.NoError(t, e.RunOnce(context.Background()))
	require.Len(t, e.working, 2)

	exec.updates = map[string]ports.OrderUpdate{
		"ex-1": {Status: domain.StatusPartial, Filled: 4},
		"ex-2": {Status: domain.StatusPartial, Filled: 4},
	}
	e.syncOrders(context.Background())

	assert.Len(t, exec.cancelled, 2)
	assert.Empty(t, e.working)

	// The trade log records what actually filled, not what was requested.
	require.Len(t, store.trades, 2)
	assert.Equal(t, 4, store.trades[0].Quantity)
	assert.InDelta(t, 1.96, store.trades[0].Cost, 0.001) // 49¢ × 4
	assert.InDelta(t, 1.32, store.trades[1].Cost, 0.001) // 33¢ × 4
}

func TestSyncOrders_StatusErrorKeepsOrderWorking(t *testing.T) {
	ev := spreadEvent(6*time.Hour, 30, 49, 33, 12)
	markets := &stubMarkets{events: map[string]domain.Event{"KXHIGHNY": ev}}
	exec := &stubExecutor{}

	e := newTestEngine(t, Config{}, markets, &stubSettlements{}, exec, &memStore{})
	require.NoError(t, e.RunOnce(context.Background()))
	require.Len(t, e.working, 2)

	e.executor = &erroringStatusExecutor{}
	e.syncOrders(context.Background())

	// Revisited next cycle, never dropped.
	assert.Len(t, e.working, 2)
}

type erroringStatusExecutor struct{ stubExecutor }

func (e *erroringStatusExecutor) FetchOrderStatus(context.Context, string) (ports.OrderUpdate, error) {
	return ports.OrderUpdate{}, fmt.Errorf("timeout")
}

func TestApplyClosePolicy_Expire(t *testing.T) {
	e := newTestEngine(t, Config{ClosePolicy: ClosePolicyExpire},
		&stubMarkets{}, &stubSettlements{}, &stubExecutor{}, &memStore{})
	exec := e.executor.(*stubExecutor)

	now := time.Now()
	w := &workingOrder{
		order: &domain.Order{
			ID: "o1", ExchangeID: "ex-1", Ticker: "T", Side: domain.SideBuy,
			Price: 40, Quantity: 10, Status: domain.StatusPending,
		},
		close: now.Add(-time.Second),
	}
	e.applyClosePolicy(context.Background(), w, now)

	assert.Equal(t, domain.StatusExpired, w.order.Status)
	assert.Empty(t, exec.cancelled)
}

func TestApplyClosePolicy_ExpireWaitsForClose(t *testing.T) {
	e := newTestEngine(t, Config{ClosePolicy: ClosePolicyExpire},
		&stubMarkets{}, &stubSettlements{}, &stubExecutor{}, &memStore{})

	now := time.Now()
	w := &workingOrder{
		order: &domain.Order{
			ID: "o1", ExchangeID: "ex-1", Ticker: "T", Side: domain.SideBuy,
			Price: 40, Quantity: 10, Status: domain.StatusPending,
		},
		close: now.Add(time.Minute),
	}
	e.applyClosePolicy(context.Background(), w, now)

	// Still resting: the market has not actually closed yet.
	assert.Equal(t, domain.StatusPending, w.order.Status)
}

func TestReserveOnFill_DefersBudgetToFillTime(t *testing.T) {
	ev := spreadEvent(6*time.Hour, 30, 49, 33, 12)
	markets := &stubMarkets{events: map[string]domain.Event{"KXHIGHNY": ev}}
	exec := &stubExecutor{}

	e := newTestEngine(t, Config{ReserveOnFill: true}, markets, &stubSettlements{}, exec, &memStore{})
	require.NoError(t, e.RunOnce(context.Background()))

	require.Len(t, exec.submitted, 2)
	assert.Zero(t, e.Ledger().SpentToday())

	exec.updates = map[string]ports.OrderUpdate{
		"ex-1": {Status: domain.StatusFilled, Filled: 10},
		"ex-2": {Status: domain.StatusFilled, Filled: 10},
	}
	e.syncOrders(context.Background())

	assert.InDelta(t, 8.20, e.Ledger().SpentToday(), 0.001)
}

func TestExecute_SubmitFailureReservesNothing(t *testing.T) {
	ev := spreadEvent(6*time.Hour, 30, 49, 33, 12)
	markets := &stubMarkets{events: map[string]domain.Event{"KXHIGHNY": ev}}
	exec := &stubExecutor{submitErr: fmt.Errorf("insufficient balance")}

	e := newTestEngine(t, Config{}, markets, &stubSettlements{}, exec, &memStore{})
	require.NoError(t, e.RunOnce(context.Background()))

	assert.Empty(t, exec.submitted)
	assert.Zero(t, e.Ledger().SpentToday())
	assert.False(t, e.Ledger().HasTraded(ev.MarketKey()))
}

func TestShutdown_CancelsRestingOrders(t *testing.T) {
	ev := spreadEvent(6*time.Hour, 30, 49, 33, 12)
	markets := &stubMarkets{events: map[string]domain.Event{"KXHIGHNY": ev}}
	exec := &stubExecutor{}
	store := &memStore{}

	e := newTestEngine(t, Config{}, markets, &stubSettlements{}, exec, store)
	require.NoError(t, e.RunOnce(context.Background()))
	require.Len(t, e.working, 2)

	e.Shutdown()

	assert.Len(t, exec.cancelled, 2)
	assert.Empty(t, e.working)
	// Unfilled cancels still land in the trade log with quantity zero.
	require.Len(t, store.trades, 2)
	assert.Zero(t, store.trades[0].Quantity)
}
