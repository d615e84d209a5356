package domain

import "time"

// RiskLedger es el estado mutable del proceso: capital comprometido "hoy" y el
// set de mercados ya operados (idempotencia). Lo muta solo el execution driver
// inmediatamente después de aceptar una orden para envío (no tras el fill)
// y lo lee el risk gate antes de aprobar cada candidato.
//
// No lleva locking: el engine es single-writer por diseño (un ciclo corre
// completo antes del siguiente). Cada instancia del engine tiene el suyo; nunca
// es un singleton escondido.
type RiskLedger struct {
	day    string // fecha de liquidación vigente, formato 2006-01-02
	spent  float64
	traded map[string]bool
}

// NewRiskLedger crea un ledger vacío.
func NewRiskLedger() *RiskLedger {
	return &RiskLedger{traded: make(map[string]bool)}
}

// RollOver resetea el ledger si la fecha de liquidación cambió. El corte de
// día es la fecha de liquidación del evento, no la medianoche de un huso
// horario arbitrario.
func (l *RiskLedger) RollOver(settlement time.Time) {
	day := settlement.Format("2006-01-02")
	if l.day == day {
		return
	}
	l.day = day
	l.spent = 0
	l.traded = make(map[string]bool)
}

// Day devuelve la fecha de liquidación vigente ("" si aún no hubo rollover).
func (l *RiskLedger) Day() string {
	return l.day
}

// Reserve compromete el coste del candidato y marca su mercado como operado.
func (l *RiskLedger) Reserve(marketKey string, costDollars float64) {
	l.spent += costDollars
	l.traded[marketKey] = true
}

// HasTraded devuelve true si el mercado ya se operó hoy.
func (l *RiskLedger) HasTraded(marketKey string) bool {
	return l.traded[marketKey]
}

// SpentToday devuelve el capital comprometido hoy en dólares.
func (l *RiskLedger) SpentToday() float64 {
	return l.spent
}

// TradedCount devuelve cuántos mercados distintos se operaron hoy.
func (l *RiskLedger) TradedCount() int {
	return len(l.traded)
}
