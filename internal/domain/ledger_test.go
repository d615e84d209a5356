package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRiskLedger_ReserveAndQuery(t *testing.T) {
	l := NewRiskLedger()
	l.RollOver(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC))

	assert.False(t, l.HasTraded("mkt-a"))
	l.Reserve("mkt-a", 8.20)

	assert.True(t, l.HasTraded("mkt-a"))
	assert.InDelta(t, 8.20, l.SpentToday(), 0.001)
	assert.Equal(t, 1, l.TradedCount())

	l.Reserve("mkt-b", 1.80)
	assert.InDelta(t, 10.00, l.SpentToday(), 0.001)
	assert.Equal(t, 2, l.TradedCount())
}

func TestRiskLedger_RollOverResetsOnNewDay(t *testing.T) {
	l := NewRiskLedger()
	day1 := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	l.RollOver(day1)
	l.Reserve("mkt-a", 5)

	// Misma fecha, otra hora: no resetea.
	l.RollOver(day1.Add(6 * time.Hour))
	assert.True(t, l.HasTraded("mkt-a"))
	assert.InDelta(t, 5, l.SpentToday(), 0.001)

	// Fecha de liquidación nueva: estado limpio.
	l.RollOver(day1.AddDate(0, 0, 1))
	assert.False(t, l.HasTraded("mkt-a"))
	assert.Zero(t, l.SpentToday())
	assert.Zero(t, l.TradedCount())
	assert.Equal(t, "2026-08-30", l.Day())
}
