package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// buildSignal composes the belief input the active strategy needs. Signals
// are recomputed every cycle and never cached across cycles here; providers
// may cache internally (e.g. window-start prices).
func (e *Engine) buildSignal(ctx context.Context, ev domain.Event) (domain.Signal, error) {
	switch e.sigKind {
	case domain.SignalDistribution:
		return e.forecastSignal(ctx, ev)
	case domain.SignalMomentum:
		return e.momentumSignal(ctx, ev)
	}
	// Bid-rank variant: the strategy reads the snapshot directly.
	return domain.Signal{Kind: domain.SignalNone}, nil
}

// forecastSignal turns the point forecast into a per-bucket probability
// distribution.
func (e *Engine) forecastSignal(ctx context.Context, ev domain.Event) (domain.Signal, error) {
	fc, err := e.forecasts.GetForecast(ctx, ev.City, ev.Date)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("forecast for %s: %w", ev.City, err)
	}
	probs := domain.DistributionFromNormal(fc.High, fc.HighStd, ev.Buckets)
	return domain.Signal{Kind: domain.SignalDistribution, Probs: probs}, nil
}

// momentumSignal measures the underlying's move since the window start and
// checks whether recent price history corroborates the direction.
func (e *Engine) momentumSignal(ctx context.Context, ev domain.Event) (domain.Signal, error) {
	now := time.Now()
	spot, err := e.prices.Spot(ctx, e.cfg.PriceSymbol)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("spot %s: %w", e.cfg.PriceSymbol, err)
	}

	startPrice, err := e.windowStartPrice(ctx, ev, spot)
	if err != nil {
		return domain.Signal{}, err
	}

	e.history = append(e.history, spot)
	if len(e.history) > priceHistorySize {
		e.history = e.history[len(e.history)-priceHistorySize:]
	}

	changePct := (spot - startPrice) / startPrice * 100
	obs := &domain.MomentumObservation{
		StartPrice:    startPrice,
		CurrentPrice:  spot,
		ChangePct:     changePct,
		MinutesLeft:   ev.MinutesToClose(now),
		WindowMinutes: e.cfg.WindowMinutes,
		Corroborated:  corroborates(e.history, changePct > 0),
	}
	return domain.Signal{Kind: domain.SignalMomentum, Momentum: obs}, nil
}

// windowStartPrice returns the underlying's price at the window open, cached
// per market key. Falls back to the current spot if the kline lookup fails.
func (e *Engine) windowStartPrice(ctx context.Context, ev domain.Event, spot float64) (float64, error) {
	key := ev.MarketKey()
	if p, ok := e.startPrices[key]; ok {
		return p, nil
	}

	windowStart := ev.CloseTime.Add(-time.Duration(e.cfg.WindowMinutes) * time.Minute)
	p, err := e.prices.PriceAt(ctx, e.cfg.PriceSymbol, windowStart)
	if err != nil || p <= 0 {
		// Less accurate, but lets the cycle proceed.
		p = spot
	}
	e.startPrices[key] = p

	// Drop references for windows long gone.
	if len(e.startPrices) > 32 {
		e.startPrices = map[string]float64{key: p}
	}
	return p, nil
}

// corroborates reports whether at least two of the recent price deltas moved
// in the given direction (needs three observations minimum).
func corroborates(history []float64, up bool) bool {
	if len(history) < 3 {
		return false
	}
	var withDir int
	for i := 1; i < len(history); i++ {
		delta := history[i] - history[i-1]
		if (up && delta > 0) || (!up && delta < 0) {
			withDir++
		}
	}
	return withDir >= 2
}
