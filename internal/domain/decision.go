package domain

// DecisionOutcome clasifica lo que hizo el engine con un mercado en un ciclo.
type DecisionOutcome string

const (
	DecisionNoOpportunity DecisionOutcome = "no_opportunity" // mayoría esperada, no es error
	DecisionRejected      DecisionOutcome = "rejected"       // el risk gate lo paró
	DecisionPlaced        DecisionOutcome = "placed"
	DecisionSkipped       DecisionOutcome = "skipped" // fallo transitorio o invariante roto
)

// Decision es el rastro auditable de la evaluación de un mercado: suficiente
// contexto para reconstruir el razonamiento a posteriori.
type Decision struct {
	City      string
	MarketKey string
	Outcome   DecisionOutcome
	Reason    string
	Candidate *CandidatePosition // nil salvo en placed/rejected
}

// TradeSummary son las estadísticas agregadas del trade log.
type TradeSummary struct {
	TotalTrades  int
	Settled      int
	Unsettled    int
	Wins         int
	Losses       int
	WinRate      float64
	TotalPnL     float64
	TotalWagered float64
	ROI          float64 // en %
}
