package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// MomentumConfig controls the direction variant for time-decaying windows.
type MomentumConfig struct {
	MinConfidence   float64 // minimum confidence to bet (0.65)
	MaxMinutesLeft  float64 // start betting at this many minutes before close (10)
	MinMinutesLeft  float64 // stop betting at this many minutes before close (2)
	MinChangePct    float64 // minimum |%| move to act on (0.05)
	StrongMovePct   float64 // |%| move that earns the strong-move bonus (0.15)
	MomentumBonus   float64 // flat bonus when the secondary check corroborates (0.15)
	StrongMoveBonus float64 // flat bonus on a strong move (0.10)
	MaxPrice        int     // never pay (or risk) more than this per contract (95¢)
	MaxContracts    int     // size at full confidence (10)
	MinContracts    int     // size at threshold confidence (2)
	ScaleSize       bool    // scale size with confidence; fixed MaxContracts when false
}

// DefaultMomentumConfig returns the variant defaults.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		MinConfidence:   0.65,
		MaxMinutesLeft:  10,
		MinMinutesLeft:  2,
		MinChangePct:    0.05,
		StrongMovePct:   0.15,
		MomentumBonus:   0.15,
		StrongMoveBonus: 0.10,
		MaxPrice:        95,
		MaxContracts:    10,
		MinContracts:    2,
		ScaleSize:       true,
	}
}

// Momentum is variant C: directional windows with a fixed countdown to
// settlement (e.g. "BTC up in the next 15 minutes"). Bets only inside the
// configured window before close, when the underlying has clearly moved and
// the move is unlikely to reverse in the time remaining.
type Momentum struct {
	cfg MomentumConfig
}

// NewMomentum creates the momentum/direction strategy.
func NewMomentum(cfg MomentumConfig) *Momentum {
	return &Momentum{cfg: cfg}
}

func (m *Momentum) Name() string { return "momentum" }

// Confidence derives a [0,1] score from move magnitude, time remaining, and
// the two flat bonuses. Monotonically non-decreasing in both elapsed time and
// magnitude by construction.
func (m *Momentum) Confidence(obs domain.MomentumObservation) float64 {
	pctAbs := math.Abs(obs.ChangePct)

	// Magnitude component saturates below 0.95 (0.05% → ~0.52, 1% → 0.90).
	priceConf := math.Min(0.5+pctAbs*0.4, 0.95)

	// Time component: closer to close → higher.
	timeFactor := 0.0
	if obs.WindowMinutes > 0 {
		timeFactor = math.Max(0, 1-obs.MinutesLeft/obs.WindowMinutes)
	}

	conf := priceConf * (0.5 + 0.5*timeFactor)

	if obs.Corroborated {
		conf += m.cfg.MomentumBonus
	}
	if pctAbs >= m.cfg.StrongMovePct {
		conf += m.cfg.StrongMoveBonus
	}
	return math.Min(conf, 0.99)
}

// Evaluate produces a single directional leg or nothing.
func (m *Momentum) Evaluate(_ context.Context, event domain.Event, sig domain.Signal) (*domain.CandidatePosition, error) {
	if sig.Kind != domain.SignalMomentum || sig.Momentum == nil {
		return nil, nil
	}
	obs := *sig.Momentum

	// Outside the betting window: too early = noisy, too late = no time to fill.
	if obs.MinutesLeft > m.cfg.MaxMinutesLeft || obs.MinutesLeft < m.cfg.MinMinutesLeft {
		return nil, nil
	}
	if math.Abs(obs.ChangePct) < m.cfg.MinChangePct {
		return nil, nil
	}

	conf := m.Confidence(obs)
	if conf < m.cfg.MinConfidence {
		return nil, nil
	}

	if len(event.Buckets) == 0 {
		return nil, nil
	}
	// Direction markets carry a single YES/NO contract as their only bucket.
	market := event.Buckets[0]

	leg, ok := m.pickLeg(market, obs.IsUp(), conf)
	if !ok {
		return nil, nil
	}
	leg.Quantity = m.scaleContracts(conf)

	dir := "UP"
	if !obs.IsUp() {
		dir = "DOWN"
	}
	cand := &domain.CandidatePosition{
		MarketKey: event.MarketKey(),
		EventTick: event.Ticker,
		Legs:      []domain.Leg{leg},
		Reason: fmt.Sprintf("%s %+.2f%% with %.1f min left (conf %.0f%%)",
			dir, obs.ChangePct, obs.MinutesLeft, conf*100),
		Conf: conf,
	}
	if err := cand.Validate(); err != nil {
		return nil, err
	}
	return cand, nil
}

// pickLeg chooses the execution style for the favored direction: buy the
// favored outcome at its ask if affordable, else fall back to selling the
// opposing outcome at its bid when the implied risk is acceptable.
func (m *Momentum) pickLeg(market domain.Bucket, up bool, conf float64) (domain.Leg, bool) {
	yesBid, yesAsk := market.YesBid, market.YesAsk

	if up {
		// Favored side is YES: buy YES at ask.
		if yesAsk > 0 && yesAsk <= m.cfg.MaxPrice {
			return domain.Leg{Ticker: market.Ticker, Side: domain.SideBuy, Price: yesAsk}, true
		}
		return domain.Leg{}, false
	}

	// Favored side is NO: buying NO at its ask is selling YES at the bid.
	noAsk := 100 - yesBid
	if yesBid > 0 && noAsk <= m.cfg.MaxPrice {
		return domain.Leg{Ticker: market.Ticker, Side: domain.SideSell, Price: yesBid}, true
	}
	// Fallback: sell YES anyway when the implied risk stays under MaxPrice.
	if yesBid > 0 && 100-yesBid <= m.cfg.MaxPrice {
		return domain.Leg{Ticker: market.Ticker, Side: domain.SideSell, Price: yesBid}, true
	}
	// Last resort: a very cheap YES bid with high confidence is still worth
	// selling, the loss probability is low even though the risk is high.
	if yesBid > 0 && yesBid <= 5 && conf >= 0.75 {
		return domain.Leg{Ticker: market.Ticker, Side: domain.SideSell, Price: yesBid}, true
	}
	return domain.Leg{}, false
}

// scaleContracts interpolates size linearly between MinContracts at threshold
// confidence and MaxContracts at full confidence.
func (m *Momentum) scaleContracts(conf float64) int {
	if !m.cfg.ScaleSize {
		return m.cfg.MaxContracts
	}
	confRange := 1.0 - m.cfg.MinConfidence
	pct := 1.0
	if confRange > 0 {
		pct = (conf - m.cfg.MinConfidence) / confRange
	}
	n := m.cfg.MinContracts + int(pct*float64(m.cfg.MaxContracts-m.cfg.MinContracts))
	if n < m.cfg.MinContracts {
		n = m.cfg.MinContracts
	}
	if n > m.cfg.MaxContracts {
		n = m.cfg.MaxContracts
	}
	return n
}
