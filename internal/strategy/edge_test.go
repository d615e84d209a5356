package strategy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/strategy"
)

// tailsEvent construye tail bajo + rangos + tail alto con bid/ask explícitos.
func tailsEvent(quotes ...[2]int) domain.Event {
	buckets := make([]domain.Bucket, 0, len(quotes))
	lower := 60
	for i, q := range quotes {
		b := domain.Bucket{
			Ticker: "KXHIGHNY-26AUG29-T" + string(rune('A'+i)),
			YesBid: q[0],
			YesAsk: q[1],
			Open:   true,
		}
		switch i {
		case 0:
			b.Upper = intp(59)
		case len(quotes) - 1:
			b.Lower = intp(lower)
		default:
			b.Lower = intp(lower)
			b.Upper = intp(lower + 1)
			lower += 2
		}
		buckets = append(buckets, b)
	}
	return domain.Event{
		Ticker:    "KXHIGHNY-26AUG29",
		City:      "KXHIGHNY",
		Date:      time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		CloseTime: time.Now().Add(6 * time.Hour),
		Status:    "open",
		Buckets:   buckets,
	}
}

func distSignal(ev domain.Event, probs ...float64) domain.Signal {
	m := make(map[string]float64, len(probs))
	for i, p := range probs {
		m[ev.Buckets[i].Ticker] = p
	}
	return domain.Signal{Kind: domain.SignalDistribution, Probs: m}
}

func TestEdge_HighConfidenceSingleLeg(t *testing.T) {
	e := strategy.NewEdgeThreshold(strategy.DefaultEdgeConfig())
	ev := tailsEvent([2]int{5, 7}, [2]int{28, 30}, [2]int{10, 12})
	sig := distSignal(ev, 0.05, 0.75, 0.20)

	cand, err := e.Evaluate(context.Background(), ev, sig)
	require.NoError(t, err)
	require.NotNil(t, cand)

	require.Len(t, cand.Legs, 1)
	leg := cand.Legs[0]
	assert.Equal(t, ev.Buckets[1].Ticker, leg.Ticker)
	assert.Equal(t, domain.SideBuy, leg.Side)
	assert.Equal(t, 30, leg.Price)
	// Edge 0.45 → 3·(0.45/0.05)=27, con techo en 20 por mercado.
	assert.Equal(t, 20, leg.Quantity)
	assert.Contains(t, cand.Reason, "high-confidence")
}

func TestEdge_ClusterOfModerateEdges(t *testing.T) {
	e := strategy.NewEdgeThreshold(strategy.DefaultEdgeConfig())
	ev := tailsEvent([2]int{5, 7}, [2]int{20, 22}, [2]int{45, 47}, [2]int{20, 22}, [2]int{3, 5})
	// Edges: .18, .13, .08; ninguno con confianza alta.
	sig := distSignal(ev, 0.02, 0.40, 0.60, 0.30, 0.02)

	cand, err := e.Evaluate(context.Background(), ev, sig)
	require.NoError(t, err)
	require.NotNil(t, cand)

	require.Len(t, cand.Legs, 3)
	assert.Less(t, cand.CostPerSet(), 95)
	for _, leg := range cand.Legs {
		assert.Equal(t, domain.SideBuy, leg.Side)
		assert.GreaterOrEqual(t, leg.Quantity, 1)
		assert.LessOrEqual(t, leg.Quantity, 20)
	}
	// La pata de mayor edge va primera y con más contratos.
	assert.Equal(t, ev.Buckets[1].Ticker, cand.Legs[0].Ticker)
	assert.GreaterOrEqual(t, cand.Legs[0].Quantity, cand.Legs[2].Quantity)
}

func TestEdge_FadeOverpricedTail(t *testing.T) {
	e := strategy.NewEdgeThreshold(strategy.DefaultEdgeConfig())
	// El tail alto cotiza 40¢ pero el modelo le da 5%: venderlo al bid.
	// El bucket central queda fuera por precio (52¢ > tope de 50¢).
	ev := tailsEvent([2]int{5, 7}, [2]int{50, 52}, [2]int{38, 40})
	sig := distSignal(ev, 0.05, 0.85, 0.05)

	cand, err := e.Evaluate(context.Background(), ev, sig)
	require.NoError(t, err)
	require.NotNil(t, cand)

	require.Len(t, cand.Legs, 1)
	leg := cand.Legs[0]
	assert.Equal(t, ev.Buckets[2].Ticker, leg.Ticker)
	assert.Equal(t, domain.SideSell, leg.Side)
	assert.Equal(t, 38, leg.Price)
	assert.Contains(t, cand.Reason, "fade")
}

func TestEdge_NoEdgeNoCandidate(t *testing.T) {
	e := strategy.NewEdgeThreshold(strategy.DefaultEdgeConfig())
	ev := tailsEvent([2]int{5, 7}, [2]int{28, 30}, [2]int{10, 12})
	// Modelo alineado con el mercado: ningún edge supera el 5%.
	sig := distSignal(ev, 0.07, 0.32, 0.12)

	cand, err := e.Evaluate(context.Background(), ev, sig)
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestEdge_RequiresDistributionSignal(t *testing.T) {
	e := strategy.NewEdgeThreshold(strategy.DefaultEdgeConfig())
	ev := tailsEvent([2]int{5, 7}, [2]int{28, 30}, [2]int{10, 12})

	cand, err := e.Evaluate(context.Background(), ev, domain.Signal{Kind: domain.SignalNone})
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestEdge_SizingScalesWithEdge(t *testing.T) {
	e := strategy.NewEdgeThreshold(strategy.DefaultEdgeConfig())
	// Edge apenas sobre el umbral: tamaño base.
	ev := tailsEvent([2]int{5, 7}, [2]int{18, 20}, [2]int{40, 42})
	sig := distSignal(ev, 0.05, 0.26, 0.40)

	cand, err := e.Evaluate(context.Background(), ev, sig)
	require.NoError(t, err)
	require.NotNil(t, cand)
	require.Len(t, cand.Legs, 1)
	// Edge 0.06 → int(3·1.2)=3 contratos.
	assert.Equal(t, 3, cand.Legs[0].Quantity)
}
