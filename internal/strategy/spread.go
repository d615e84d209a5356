package strategy

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// SpreadConfig controla la variante bucket-spread.
type SpreadConfig struct {
	MinBucketPrice  int // bid mínimo aceptable (10¢ por defecto)
	MaxBucketPrice  int // bid máximo aceptable (60¢)
	MaxTotalCost    int // coste máximo del par, estrictamente < 100¢ (95¢)
	ContractsPerLeg int
}

// DefaultSpreadConfig devuelve los valores por defecto de la variante.
func DefaultSpreadConfig() SpreadConfig {
	return SpreadConfig{
		MinBucketPrice:  10,
		MaxBucketPrice:  60,
		MaxTotalCost:    95,
		ContractsPerLeg: 10,
	}
}

// Spread es la variante A: sin forecast externo, sigue el ranking de bids del
// propio mercado. Compra el bucket pico (bid más alto dentro de la banda) y,
// si el coste conjunto lo permite, el vecino adyacente con mejor bid.
type Spread struct {
	cfg SpreadConfig
}

// NewSpread crea la estrategia bucket-spread.
func NewSpread(cfg SpreadConfig) *Spread {
	return &Spread{cfg: cfg}
}

func (s *Spread) Name() string { return "spread" }

// Evaluate selecciona un spread de 1-2 patas o nada.
//
// El pico es el bucket con mayor bid dentro de [MinBucketPrice, MaxBucketPrice];
// en empate gana el primero en orden de límites (elección documentada, no
// significativa para la corrección). Los vecinos se definen por adyacencia pura
// en la partición ordenada, independiente del filtro de banda.
func (s *Spread) Evaluate(_ context.Context, event domain.Event, _ domain.Signal) (*domain.CandidatePosition, error) {
	sorted := domain.SortBuckets(event.Buckets)

	peakIdx := -1
	for i, b := range sorted {
		if b.YesBid < s.cfg.MinBucketPrice || b.YesBid > s.cfg.MaxBucketPrice {
			continue
		}
		if peakIdx == -1 || b.YesBid > sorted[peakIdx].YesBid {
			peakIdx = i
		}
	}
	if peakIdx == -1 {
		return nil, nil // ningún bucket en banda, sin oportunidad
	}
	peak := sorted[peakIdx]

	neighbor, hasNeighbor := s.bestNeighbor(sorted, peakIdx)

	legs := []domain.Leg{{
		Ticker:   peak.Ticker,
		Side:     domain.SideBuy,
		Price:    peak.YesBid,
		Quantity: s.cfg.ContractsPerLeg,
	}}
	reason := fmt.Sprintf("peak %s @ %d¢", peak.Ticker, peak.YesBid)

	if hasNeighbor {
		legs = append(legs, domain.Leg{
			Ticker:   neighbor.Ticker,
			Side:     domain.SideBuy,
			Price:    neighbor.YesBid,
			Quantity: s.cfg.ContractsPerLeg,
		})
		reason = fmt.Sprintf("peak %s @ %d¢ + neighbor %s @ %d¢", peak.Ticker, peak.YesBid, neighbor.Ticker, neighbor.YesBid)
	}

	cand := &domain.CandidatePosition{
		MarketKey: event.MarketKey(),
		EventTick: event.Ticker,
		Legs:      legs,
		Reason:    reason,
	}
	if cand.CostPerSet() >= s.cfg.MaxTotalCost && len(legs) > 1 {
		return nil, nil
	}
	if err := cand.Validate(); err != nil {
		return nil, err
	}
	return cand, nil
}

// bestNeighbor examina los vecinos inmediatos del pico. Un vecino califica si
// su bid >= MinBucketPrice y el coste conjunto queda bajo MaxTotalCost; si
// califican los dos, gana el de bid más alto (más probable que entre, menor
// varianza de la apuesta).
func (s *Spread) bestNeighbor(sorted []domain.Bucket, peakIdx int) (domain.Bucket, bool) {
	peak := sorted[peakIdx]

	var best domain.Bucket
	found := false
	for _, idx := range []int{peakIdx - 1, peakIdx + 1} {
		if idx < 0 || idx >= len(sorted) {
			continue
		}
		n := sorted[idx]
		if n.YesBid < s.cfg.MinBucketPrice {
			continue
		}
		if peak.YesBid+n.YesBid >= s.cfg.MaxTotalCost {
			continue
		}
		if !found || n.YesBid > best.YesBid {
			best = n
			found = true
		}
	}
	return best, found
}
