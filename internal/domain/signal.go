package domain

import (
	"math"
	"sort"
	"time"
)

// SignalKind identifica qué tipo de creencia trae la señal.
type SignalKind int

const (
	// SignalNone: sin señal externa; la estrategia usa solo los bids observados.
	SignalNone SignalKind = iota
	// SignalDistribution: probabilidad modelada por bucket (forecast).
	SignalDistribution
	// SignalMomentum: dirección + datos de momentum para mercados direccionales.
	SignalMomentum
)

// Signal es la creencia recalculada en cada ciclo para un evento. Transient:
// nunca se cachea entre ciclos desde el engine (el proveedor puede cachear
// internamente si quiere).
type Signal struct {
	Kind     SignalKind
	Probs    map[string]float64 // probabilidad modelada por ticker de bucket
	Momentum *MomentumObservation
}

// MomentumObservation son los inputs crudos de la variante direccional.
type MomentumObservation struct {
	StartPrice    float64 // precio de referencia al inicio de la ventana
	CurrentPrice  float64
	ChangePct     float64 // cambio % desde el inicio de la ventana
	MinutesLeft   float64
	WindowMinutes float64
	Corroborated  bool // el chequeo secundario de momentum confirma la dirección
}

// IsUp devuelve true si el subyacente se movió hacia arriba.
func (m MomentumObservation) IsUp() bool {
	return m.ChangePct > 0
}

// Forecast es el pronóstico puntual del colaborador externo (NWS u otro).
// El modelo en sí es opaco: solo consumimos media y desviación.
type Forecast struct {
	Station   string
	Date      time.Time
	High      float64
	Low       float64
	HighStd   float64 // desviación estándar del high (±2.5 por defecto)
	Source    string
	FetchedAt time.Time
}

// probFloor evita probabilidades exactamente cero que romperían el Kelly.
const probFloor = 0.001

// DistributionFromNormal construye la probabilidad modelada de cada bucket
// integrando una normal (media, std) sobre sus rangos. Los tails usan la CDF
// de un solo lado; los rangos enteros se expanden ±0.5 (continuidad).
// El resultado se normaliza si se desvía más de 1% de sumar 1.
func DistributionFromNormal(mean, std float64, buckets []Bucket) map[string]float64 {
	probs := make(map[string]float64, len(buckets))
	total := 0.0

	for _, b := range buckets {
		var p float64
		switch {
		case b.Lower == nil && b.Upper == nil:
			continue
		case b.Lower == nil:
			p = normalCDF(float64(*b.Upper), mean, std)
		case b.Upper == nil:
			p = 1 - normalCDF(float64(*b.Lower), mean, std)
		default:
			p = normalCDF(float64(*b.Upper)+0.5, mean, std) - normalCDF(float64(*b.Lower)-0.5, mean, std)
		}
		if p < probFloor {
			p = probFloor
		}
		probs[b.Ticker] = p
		total += p
	}

	if total > 0 && math.Abs(total-1.0) > 0.01 {
		for k := range probs {
			probs[k] /= total
		}
	}
	return probs
}

func normalCDF(x, mean, std float64) float64 {
	z := (x - mean) / std
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// Edge es la ventaja calculada de un bucket: cuánto excede nuestra probabilidad
// modelada a la implícita del mercado.
type Edge struct {
	Ticker      string
	Range       string
	ModelProb   float64
	MarketProb  float64
	Edge        float64 // ModelProb - MarketProb
	ExpectedVal float64 // EV por contrato en centavos
	Price       int     // precio de mercado usado (ask, o bid si no hay ask)
}

// KellyFraction devuelve la fracción de Kelly para el edge:
// f* = (b·p - q) / b, con b = (100-precio)/precio.
func (e Edge) KellyFraction() float64 {
	if e.Price <= 0 || e.Price >= 100 {
		return 0
	}
	b := float64(100-e.Price) / float64(e.Price)
	k := (b*e.ModelProb - (1 - e.ModelProb)) / b
	if k < 0 {
		return 0
	}
	return k
}

// ComputeEdges calcula el edge de cada bucket del evento contra la distribución
// modelada, ordenado de mayor a menor edge.
func ComputeEdges(e Event, probs map[string]float64) []Edge {
	edges := make([]Edge, 0, len(e.Buckets))
	for _, b := range e.Buckets {
		price := b.Price()
		modelProb := probs[b.Ticker]
		marketProb := float64(price) / 100

		// EV = (100-precio)·p - precio·(1-p)
		ev := float64(100-price)*modelProb - float64(price)*(1-modelProb)

		edges = append(edges, Edge{
			Ticker:      b.Ticker,
			Range:       b.RangeStr(),
			ModelProb:   modelProb,
			MarketProb:  marketProb,
			Edge:        modelProb - marketProb,
			ExpectedVal: ev,
			Price:       price,
		})
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Edge > edges[j].Edge })
	return edges
}
