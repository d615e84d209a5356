package domain

import "fmt"

// Payout por contrato ganador, en centavos.
const ContractPayout = 100

// Leg es una pata propuesta de una posición: un bucket, un lado, un precio
// límite y una cantidad de contratos.
type Leg struct {
	Ticker   string
	Side     OrderSide
	Price    int // centavos
	Quantity int
}

// CandidatePosition es el trade propuesto por una estrategia. Se crea y se
// consume dentro del mismo ciclo de evaluación; nunca se retiene.
type CandidatePosition struct {
	MarketKey string
	EventTick string
	Legs      []Leg
	Reason    string  // explicación corta para el log de decisiones
	Conf      float64 // confianza/edge usado al seleccionar (informativo)
}

// CostPerSet devuelve la suma de precios de las patas, en centavos. Para un
// spread del mismo evento con patas excluyentes, debe ser estrictamente menor
// que el payout de 100¢ para que ganar cualquier pata deje beneficio.
func (c CandidatePosition) CostPerSet() int {
	sum := 0
	for _, l := range c.Legs {
		sum += l.Price
	}
	return sum
}

// TotalCost devuelve el coste total comprometido (Σ precio × cantidad), en centavos.
func (c CandidatePosition) TotalCost() int {
	total := 0
	for _, l := range c.Legs {
		total += l.Price * l.Quantity
	}
	return total
}

// TotalCostDollars devuelve el coste total en dólares, que es la unidad del
// risk ledger diario.
func (c CandidatePosition) TotalCostDollars() float64 {
	return float64(c.TotalCost()) / 100
}

// PotentialProfit devuelve el beneficio por set si gana exactamente una pata
// (payout 100¢ menos el coste del set).
func (c CandidatePosition) PotentialProfit() int {
	return ContractPayout - c.CostPerSet()
}

// Validate comprueba los invariantes internos del candidato. El risk gate lo
// vuelve a comprobar como defensa antes de ejecutar.
func (c CandidatePosition) Validate() error {
	if len(c.Legs) == 0 {
		return fmt.Errorf("candidate %s: no legs", c.MarketKey)
	}
	buyLegs := 0
	for _, l := range c.Legs {
		if l.Quantity < 1 {
			return fmt.Errorf("candidate %s: leg %s: quantity %d < 1", c.MarketKey, l.Ticker, l.Quantity)
		}
		if l.Price <= 0 || l.Price >= ContractPayout {
			return fmt.Errorf("candidate %s: leg %s: price %d out of (0,100)", c.MarketKey, l.Ticker, l.Price)
		}
		if l.Side == SideBuy {
			buyLegs++
		}
	}
	// Patas compradas del mismo evento son ganadoras excluyentes: el coste
	// conjunto tiene que quedar bajo el payout o el spread pierde siempre.
	if buyLegs > 1 && c.CostPerSet() >= ContractPayout {
		return fmt.Errorf("candidate %s: spread cost %d¢ >= payout %d¢", c.MarketKey, c.CostPerSet(), ContractPayout)
	}
	return nil
}
