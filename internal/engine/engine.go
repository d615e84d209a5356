package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/metrics"
	"github.com/alejandrodnm/kalshibot/internal/ports"
	"github.com/alejandrodnm/kalshibot/internal/risk"
	"github.com/alejandrodnm/kalshibot/internal/strategy"
)

const (
	defaultWindowMinutes = 15
	priceHistorySize     = 4
	circuitBreakerLosses = 3
	circuitBreakerCool   = 30 * time.Minute
	circuitBreakerDraw   = -0.05 // fraction of the daily cap
	closeCheckSlack      = 2 * time.Minute
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

// ClosePolicy decides what happens to unfilled resting orders at market close.
type ClosePolicy string

const (
	// ClosePolicyCancel actively cancels the remainder before close.
	ClosePolicyCancel ClosePolicy = "cancel"
	// ClosePolicyExpire leaves the remainder to expire with the market.
	ClosePolicyExpire ClosePolicy = "expire"
)

// Config holds configuration for the evaluation engine.
type Config struct {
	Underlyings    []string // markets evaluated sequentially, in this fixed order
	DaysAhead      int      // settlement date offset (1 = tomorrow, 0 = today)
	Interval       time.Duration
	DryRun         bool
	DailyCap       float64 // dollars
	ReserveOnFill  bool    // reserve budget on fill instead of on submit (testing)
	ClosePolicy    ClosePolicy
	WindowMinutes  float64 // length of directional windows
	PriceSymbol    string  // underlying symbol for the momentum variant
}

// workingOrder tracks a resting order together with its market close time.
type workingOrder struct {
	order *domain.Order
	close time.Time
}

// Engine runs the evaluation cycle: ingest → evaluate → gate → execute →
// record. Single-threaded by design: one cycle runs to completion before the
// next begins, which is the correctness mechanism for the RiskLedger: no
// locking, single writer.
type Engine struct {
	cfg         Config
	markets     ports.MarketProvider
	settlements ports.SettlementProvider
	executor    ports.OrderExecutor
	store       ports.TradeStorage
	notifier    ports.Notifier
	forecasts   ports.ForecastProvider // nil unless the edge variant is active
	prices      ports.PriceProvider    // nil unless the momentum variant is active

	strat   strategy.Strategy
	sigKind domain.SignalKind
	gate    *risk.Gate
	ledger  *domain.RiskLedger
	breaker domain.CircuitBreaker

	working     []*workingOrder
	startPrices map[string]float64 // window-start reference per market key
	history     []float64          // recent spot prices for corroboration
}

// New creates an engine for the given strategy. forecasts and prices may be
// nil when the active variant does not need them.
func New(
	cfg Config,
	strat strategy.Strategy,
	markets ports.MarketProvider,
	settlements ports.SettlementProvider,
	executor ports.OrderExecutor,
	store ports.TradeStorage,
	notifier ports.Notifier,
	forecasts ports.ForecastProvider,
	prices ports.PriceProvider,
) (*Engine, error) {
	kind, err := strategy.SignalKind(strat.Name())
	if err != nil {
		return nil, err
	}
	if kind == domain.SignalDistribution && forecasts == nil {
		return nil, fmt.Errorf("engine.New: strategy %q needs a forecast provider", strat.Name())
	}
	if kind == domain.SignalMomentum && prices == nil {
		return nil, fmt.Errorf("engine.New: strategy %q needs a price provider", strat.Name())
	}
	if cfg.WindowMinutes <= 0 {
		cfg.WindowMinutes = defaultWindowMinutes
	}
	if cfg.ClosePolicy == "" {
		cfg.ClosePolicy = ClosePolicyCancel
	}

	return &Engine{
		cfg:         cfg,
		markets:     markets,
		settlements: settlements,
		executor:    executor,
		store:       store,
		notifier:    notifier,
		forecasts:   forecasts,
		prices:      prices,
		strat:       strat,
		sigKind:     kind,
		gate:        risk.NewGate(cfg.DailyCap),
		ledger:      domain.NewRiskLedger(),
		breaker: domain.CircuitBreaker{
			MaxLosses:        circuitBreakerLosses,
			CooldownDuration: circuitBreakerCool,
			MaxDrawdown:      cfg.DailyCap * circuitBreakerDraw,
		},
		startPrices: make(map[string]float64),
	}, nil
}

// Ledger exposes the engine's risk ledger (read-only use in reporting/tests).
func (e *Engine) Ledger() *domain.RiskLedger {
	return e.ledger
}

// Run executes evaluation cycles on the configured interval until the context
// is cancelled, then attempts a clean shutdown (best-effort cancel of all
// resting orders).
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting",
		"strategy", e.strat.Name(),
		"underlyings", e.cfg.Underlyings,
		"interval", e.cfg.Interval,
		"daily_cap", e.cfg.DailyCap,
		"dry_run", e.cfg.DryRun,
	)

	if err := e.RunOnce(ctx); err != nil {
		slog.Error("cycle failed", "err", err)
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping")
			e.Shutdown()
			return nil
		case <-ticker.C:
			if err := e.RunOnce(ctx); err != nil {
				slog.Error("cycle failed", "err", err)
			}
		}
	}
}

// RunOnce executes exactly one evaluation cycle: sync fills → settle →
// evaluate each market sequentially → notify. A failure in one market never
// blocks or corrupts evaluation of the next.
func (e *Engine) RunOnce(ctx context.Context) error {
	start := time.Now()
	targetDate := time.Now().AddDate(0, 0, e.cfg.DaysAhead)

	// Day boundary is the settlement date, never wall-clock midnight.
	e.ledger.RollOver(targetDate)

	e.syncOrders(ctx)

	if settled, err := e.CheckSettlements(ctx); err != nil {
		slog.Warn("settlement check failed", "err", err)
	} else if settled > 0 {
		slog.Info("settlements reconciled", "count", settled)
	}

	decisions := make([]domain.Decision, 0, len(e.cfg.Underlyings))
	for _, underlying := range e.cfg.Underlyings {
		d := e.processMarket(ctx, underlying, targetDate)
		decisions = append(decisions, d)
		logDecision(d)
		metrics.Decisions.WithLabelValues(string(d.Outcome)).Inc()
	}

	metrics.CyclesTotal.Inc()
	metrics.SpentToday.Set(e.ledger.SpentToday())

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, decisions); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("cycle complete",
		"markets", len(decisions),
		"spent_today", fmt.Sprintf("$%.2f", e.ledger.SpentToday()),
		"working_orders", len(e.working),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// processMarket runs the full pipeline for one market. Transient failures and
// invariant violations degrade to "skip this market this cycle".
func (e *Engine) processMarket(ctx context.Context, underlying string, targetDate time.Time) domain.Decision {
	d := domain.Decision{City: underlying}

	ev, err := e.markets.FetchOpenEvent(ctx, underlying, targetDate)
	if err != nil {
		d.Outcome = domain.DecisionSkipped
		d.Reason = fmt.Sprintf("fetch event: %v", err)
		return d
	}
	d.MarketKey = ev.MarketKey()

	if !ev.IsOpen() {
		d.Outcome = domain.DecisionSkipped
		d.Reason = "market closed"
		return d
	}
	if err := ev.Validate(); err != nil {
		// Malformed snapshot: skip this market, never the whole cycle.
		d.Outcome = domain.DecisionSkipped
		d.Reason = fmt.Sprintf("invariant violation: %v", err)
		return d
	}

	sig, err := e.buildSignal(ctx, ev)
	if err != nil {
		d.Outcome = domain.DecisionSkipped
		d.Reason = fmt.Sprintf("signal: %v", err)
		return d
	}

	cand, err := e.strat.Evaluate(ctx, ev, sig)
	if err != nil {
		d.Outcome = domain.DecisionSkipped
		d.Reason = fmt.Sprintf("evaluate: %v", err)
		return d
	}
	if cand == nil {
		d.Outcome = domain.DecisionNoOpportunity
		return d
	}
	d.Candidate = cand

	verdict := e.gate.Check(*cand, e.ledger)
	if !verdict.Accepted {
		d.Outcome = domain.DecisionRejected
		d.Reason = fmt.Sprintf("%s: %s", verdict.Reason, verdict.Detail)
		return d
	}

	if !e.breaker.IsOpen() {
		d.Outcome = domain.DecisionSkipped
		d.Reason = "circuit breaker: " + e.breaker.TriggeredReason
		return d
	}

	placed, err := e.execute(ctx, ev, *cand)
	if err != nil {
		d.Outcome = domain.DecisionSkipped
		d.Reason = fmt.Sprintf("execute: %v", err)
		return d
	}
	if !placed {
		d.Outcome = domain.DecisionSkipped
		d.Reason = "dry run"
		return d
	}
	d.Outcome = domain.DecisionPlaced
	d.Reason = cand.Reason
	return d
}

func logDecision(d domain.Decision) {
	attrs := []any{"market", d.MarketKey, "reason", d.Reason}
	if d.Candidate != nil {
		attrs = append(attrs,
			"legs", len(d.Candidate.Legs),
			"cost_per_set", fmt.Sprintf("%d¢", d.Candidate.CostPerSet()),
			"total_cost", fmt.Sprintf("$%.2f", d.Candidate.TotalCostDollars()),
		)
	}
	switch d.Outcome {
	case domain.DecisionNoOpportunity:
		// Expected majority outcome: low severity, never escalated.
		slog.Debug("no opportunity", "market", d.MarketKey)
	case domain.DecisionPlaced:
		slog.Info("position placed", attrs...)
	case domain.DecisionRejected:
		slog.Info("candidate rejected", attrs...)
	default:
		slog.Warn("market skipped", attrs...)
	}
}
