package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLegSpread(priceA, priceB, qty int) CandidatePosition {
	return CandidatePosition{
		MarketKey: "KXHIGHNY-26AUG29-20260829",
		Legs: []Leg{
			{Ticker: "a", Side: SideBuy, Price: priceA, Quantity: qty},
			{Ticker: "b", Side: SideBuy, Price: priceB, Quantity: qty},
		},
	}
}

func TestCandidateCosts(t *testing.T) {
	c := twoLegSpread(49, 33, 10)

	assert.Equal(t, 82, c.CostPerSet())
	assert.Equal(t, 820, c.TotalCost())
	assert.InDelta(t, 8.20, c.TotalCostDollars(), 0.001)
	assert.Equal(t, 18, c.PotentialProfit())
}

func TestCandidateValidate_OK(t *testing.T) {
	require.NoError(t, twoLegSpread(49, 33, 10).Validate())
}

func TestCandidateValidate_SpreadCostAtPayout(t *testing.T) {
	err := twoLegSpread(60, 40, 10).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spread cost")
}

func TestCandidateValidate_SingleLegNearPayoutOK(t *testing.T) {
	// Con una sola pata no hay invariante de spread: 99¢ es caro pero válido.
	c := CandidatePosition{
		MarketKey: "m",
		Legs:      []Leg{{Ticker: "a", Side: SideBuy, Price: 99, Quantity: 1}},
	}
	require.NoError(t, c.Validate())
}

func TestCandidateValidate_SellLegNotCounted(t *testing.T) {
	// Una venta más una compra no forman spread comprado: no aplica el tope.
	c := CandidatePosition{
		MarketKey: "m",
		Legs: []Leg{
			{Ticker: "a", Side: SideBuy, Price: 60, Quantity: 1},
			{Ticker: "b", Side: SideSell, Price: 50, Quantity: 1},
		},
	}
	require.NoError(t, c.Validate())
}

func TestCandidateValidate_Rejections(t *testing.T) {
	assert.Error(t, CandidatePosition{MarketKey: "m"}.Validate())

	c := twoLegSpread(49, 33, 0)
	assert.Error(t, c.Validate())

	c = twoLegSpread(49, 33, 10)
	c.Legs[0].Price = 100
	assert.Error(t, c.Validate())

	c = twoLegSpread(49, 33, 10)
	c.Legs[1].Price = 0
	assert.Error(t, c.Validate())
}
