// Package risk contiene el gate de validación de candidatos contra los
// presupuestos de riesgo. Es una función pura: nunca muta el ledger, ni
// siquiera al aceptar; la reserva la hace el execution driver al enviar.
package risk

import (
	"fmt"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// RejectReason clasifica por qué se rechazó un candidato.
type RejectReason string

const (
	ReasonNone          RejectReason = ""
	ReasonAlreadyTraded RejectReason = "already_traded" // idempotencia por mercado+fecha
	ReasonDailyCap      RejectReason = "daily_cap"
	ReasonInvariant     RejectReason = "invariant" // el candidato no valida (defensivo)
)

// Decision es el veredicto del gate sobre un candidato.
type Decision struct {
	Accepted bool
	Reason   RejectReason
	Detail   string
}

// Gate valida candidatos contra el ledger y el tope diario.
type Gate struct {
	dailyCap float64 // dólares
}

// NewGate crea un gate con el tope diario dado (en dólares).
func NewGate(dailyCap float64) *Gate {
	return &Gate{dailyCap: dailyCap}
}

// Check aplica las validaciones en orden fijo. El orden importa para el
// diagnóstico, no para la corrección: (1) idempotencia, (2) tope diario,
// (3) invariante interno del candidato. Gana el primer fallo. Sin efectos
// secundarios en el rechazo.
func (g *Gate) Check(cand domain.CandidatePosition, ledger *domain.RiskLedger) Decision {
	if ledger.HasTraded(cand.MarketKey) {
		return Decision{
			Reason: ReasonAlreadyTraded,
			Detail: fmt.Sprintf("market %s already traded today", cand.MarketKey),
		}
	}

	cost := cand.TotalCostDollars()
	if projected := ledger.SpentToday() + cost; projected > g.dailyCap {
		return Decision{
			Reason: ReasonDailyCap,
			Detail: fmt.Sprintf("$%.2f committed + $%.2f > $%.2f cap", ledger.SpentToday(), cost, g.dailyCap),
		}
	}

	if err := cand.Validate(); err != nil {
		return Decision{Reason: ReasonInvariant, Detail: err.Error()}
	}

	return Decision{Accepted: true}
}
