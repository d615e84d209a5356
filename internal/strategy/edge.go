package strategy

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// EdgeConfig controla la variante edge-threshold (forecast vs mercado).
type EdgeConfig struct {
	MinEdge        float64 // edge mínimo para operar (0.05 = 5%)
	MinBucketPrice int
	MaxBucketPrice int
	MaxTotalCost   int
	MaxBuckets     int     // máximo de patas en un cluster (3)
	BaseContracts  int     // contratos al edge justo en el umbral
	MaxPerMarket   int     // techo de contratos por mercado
	HighConfidence float64 // prob modelada que justifica una sola pata (0.70)
	FadeThreshold  float64 // sobreprecio de un tail que justifica venderlo
}

// DefaultEdgeConfig devuelve los valores por defecto de la variante.
func DefaultEdgeConfig() EdgeConfig {
	return EdgeConfig{
		MinEdge:        0.05,
		MinBucketPrice: 10,
		MaxBucketPrice: 50,
		MaxTotalCost:   95,
		MaxBuckets:     3,
		BaseContracts:  3,
		MaxPerMarket:   20,
		HighConfidence: 0.70,
		FadeThreshold:  0.15,
	}
}

// EdgeThreshold es la variante B: compara la probabilidad modelada por bucket
// (señal de forecast) con la implícita del mercado y solo opera cuando nuestra
// probabilidad supera a la del mercado por al menos MinEdge.
type EdgeThreshold struct {
	cfg EdgeConfig
}

// NewEdgeThreshold crea la estrategia edge-threshold.
func NewEdgeThreshold(cfg EdgeConfig) *EdgeThreshold {
	return &EdgeThreshold{cfg: cfg}
}

func (e *EdgeThreshold) Name() string { return "edge" }

// Evaluate construye un candidato de 1-3 patas compradas, o un fade vendiendo
// un tail sobrevalorado, o nada.
func (e *EdgeThreshold) Evaluate(_ context.Context, event domain.Event, sig domain.Signal) (*domain.CandidatePosition, error) {
	if sig.Kind != domain.SignalDistribution || len(sig.Probs) == 0 {
		return nil, nil // sin distribución no hay edge que calcular
	}

	edges := domain.ComputeEdges(event, sig.Probs)

	// Caso 1: un solo bucket estrecho con confianza alta → una pata.
	if top := edges[0]; top.Edge > e.cfg.MinEdge && top.ModelProb > e.cfg.HighConfidence {
		if b, ok := event.Bucket(top.Ticker); ok && !b.IsTail() && e.priceOK(top.Price) {
			return e.buildCandidate(event, []domain.Edge{top}, "high-confidence single bucket")
		}
	}

	// Caso 2: cluster de 2-3 buckets con edge moderado, respetando el tope de
	// coste conjunto (patas excluyentes: ningún subconjunto puede costar >= 100¢).
	var cluster []domain.Edge
	costSum := 0
	for _, ed := range edges {
		if ed.Edge <= e.cfg.MinEdge {
			break // ordenados por edge: el resto tampoco califica
		}
		if !e.priceOK(ed.Price) {
			continue
		}
		if costSum+ed.Price >= e.cfg.MaxTotalCost {
			continue
		}
		if len(cluster) >= e.cfg.MaxBuckets {
			break
		}
		cluster = append(cluster, ed)
		costSum += ed.Price
	}
	if len(cluster) > 0 {
		return e.buildCandidate(event, cluster, "edge cluster")
	}

	// Caso 3 (fade): un tail cuyo precio de mercado está muy por encima de la
	// probabilidad modelada se vende en lugar de comprar el lado barato.
	return e.fadeCandidate(event, edges)
}

func (e *EdgeThreshold) priceOK(price int) bool {
	return price > 0 && price <= e.cfg.MaxBucketPrice
}

// scaleContracts escala el tamaño linealmente con el edge relativo al umbral,
// con techo por mercado y suelo en 1 contrato.
func (e *EdgeThreshold) scaleContracts(edge float64) int {
	n := int(float64(e.cfg.BaseContracts) * (edge / e.cfg.MinEdge))
	if n > e.cfg.MaxPerMarket {
		n = e.cfg.MaxPerMarket
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (e *EdgeThreshold) buildCandidate(event domain.Event, selected []domain.Edge, why string) (*domain.CandidatePosition, error) {
	legs := make([]domain.Leg, 0, len(selected))
	for _, ed := range selected {
		legs = append(legs, domain.Leg{
			Ticker:   ed.Ticker,
			Side:     domain.SideBuy,
			Price:    ed.Price,
			Quantity: e.scaleContracts(ed.Edge),
		})
	}
	cand := &domain.CandidatePosition{
		MarketKey: event.MarketKey(),
		EventTick: event.Ticker,
		Legs:      legs,
		Reason:    fmt.Sprintf("%s (best edge %+.1f%%)", why, selected[0].Edge*100),
		Conf:      selected[0].Edge,
	}
	if err := cand.Validate(); err != nil {
		return nil, err
	}
	return cand, nil
}

// fadeCandidate busca un tail sobrevalorado: precio implícito muy por encima
// de la probabilidad modelada. Venderlo al bid es el razonamiento simétrico al
// de comprar un bucket barato, en dirección opuesta.
func (e *EdgeThreshold) fadeCandidate(event domain.Event, edges []domain.Edge) (*domain.CandidatePosition, error) {
	for _, ed := range edges {
		overpriced := ed.MarketProb - ed.ModelProb
		if overpriced < e.cfg.FadeThreshold {
			continue
		}
		b, ok := event.Bucket(ed.Ticker)
		if !ok || !b.IsTail() || b.YesBid < e.cfg.MinBucketPrice {
			continue
		}
		// Riesgo de la venta: 100 - bid por contrato; mismo tope que el spread.
		if domain.ContractPayout-b.YesBid >= e.cfg.MaxTotalCost {
			continue
		}
		cand := &domain.CandidatePosition{
			MarketKey: event.MarketKey(),
			EventTick: event.Ticker,
			Legs: []domain.Leg{{
				Ticker:   ed.Ticker,
				Side:     domain.SideSell,
				Price:    b.YesBid,
				Quantity: e.scaleContracts(overpriced),
			}},
			Reason: fmt.Sprintf("fade overpriced tail %s (%+.0f%% over model)", ed.Ticker, overpriced*100),
			Conf:   overpriced,
		}
		if err := cand.Validate(); err != nil {
			return nil, err
		}
		return cand, nil
	}
	return nil, nil
}
