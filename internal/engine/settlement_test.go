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

func unsettledTrade(id int64, ticker string, side domain.OrderSide, qty int, cost float64) domain.TradeRecord {
	return domain.TradeRecord{
		ID:        id,
		OrderID:   "o1",
		MarketKey: "mkt",
		Ticker:    ticker,
		Side:      side,
		Price:     40,
		Quantity:  qty,
		Cost:      cost,
		PlacedAt:  time.Now().Add(-time.Hour),
	}
}

func TestCheckSettlements_WinAndLoss(t *testing.T) {
	store := &memStore{
		nextID: 2,
		trades: []domain.TradeRecord{
			unsettledTrade(1, "T-WIN", domain.SideBuy, 5, 2.00),
			unsettledTrade(2, "T-LOSE", domain.SideBuy, 5, 2.00),
		},
	}
	settlements := &stubSettlements{results: map[string]ports.MarketResult{
		"T-WIN":  {Status: "settled", Result: "yes"},
		"T-LOSE": {Status: "finalized", Result: "no"},
	}}

	e := newTestEngine(t, Config{}, &stubMarkets{}, settlements, &stubExecutor{}, store)
	n, err := e.CheckSettlements(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	win := store.trades[0]
	assert.True(t, win.Settled)
	assert.InDelta(t, 5.00, win.Payout, 0.001) // $1 per contract
	assert.InDelta(t, 3.00, win.PnL, 0.001)
	require.NotNil(t, win.SettledAt)

	loss := store.trades[1]
	assert.True(t, loss.Settled)
	assert.Zero(t, loss.Payout)
	assert.InDelta(t, -2.00, loss.PnL, 0.001)

	// El breaker ve ambas liquidaciones.
	assert.InDelta(t, 1.00, e.breaker.TotalPnL, 0.001)
	assert.Equal(t, 1, e.breaker.ConsecutiveLosses)
}

func TestCheckSettlements_SellSideWinsOnNo(t *testing.T) {
	store := &memStore{
		nextID: 1,
		trades: []domain.TradeRecord{unsettledTrade(1, "T-SELL", domain.SideSell, 5, 3.00)},
	}
	settlements := &stubSettlements{results: map[string]ports.MarketResult{
		"T-SELL": {Status: "settled", Result: "no"},
	}}

	e := newTestEngine(t, Config{}, &stubMarkets{}, settlements, &stubExecutor{}, store)
	n, err := e.CheckSettlements(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tr := store.trades[0]
	assert.InDelta(t, 5.00, tr.Payout, 0.001)
	assert.InDelta(t, 2.00, tr.PnL, 0.001)
}

func TestCheckSettlements_SkipsActiveAndMissingMarkets(t *testing.T) {
	store := &memStore{
		nextID: 2,
		trades: []domain.TradeRecord{
			unsettledTrade(1, "T-ACTIVE", domain.SideBuy, 5, 2.00),
			unsettledTrade(2, "T-GONE", domain.SideBuy, 5, 2.00),
		},
	}
	// T-ACTIVE aún sin resultado; T-GONE ni siquiera responde.
	settlements := &stubSettlements{results: map[string]ports.MarketResult{
		"T-ACTIVE": {Status: "active"},
	}}

	e := newTestEngine(t, Config{}, &stubMarkets{}, settlements, &stubExecutor{}, store)
	n, err := e.CheckSettlements(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, store.trades[0].Settled)
	assert.False(t, store.trades[1].Settled)
}

func TestCheckSettlements_LossStreakOpensBreaker(t *testing.T) {
	trades := make([]domain.TradeRecord, 0, 3)
	results := make(map[string]ports.MarketResult, 3)
	for i := int64(1); i <= 3; i++ {
		ticker := fmt.Sprintf("T%d-LOSE", i)
		trades = append(trades, unsettledTrade(i, ticker, domain.SideBuy, 2, 0.80))
		results[ticker] = ports.MarketResult{Status: "settled", Result: "no"}
	}
	store := &memStore{nextID: 3, trades: trades}

	e := newTestEngine(t, Config{}, &stubMarkets{}, &stubSettlements{results: results}, &stubExecutor{}, store)
	n, err := e.CheckSettlements(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Tres pérdidas seguidas: cooldown activo, no se opera.
	assert.False(t, e.breaker.IsOpen())
	assert.Equal(t, "consecutive losses", e.breaker.TriggeredReason)
}
