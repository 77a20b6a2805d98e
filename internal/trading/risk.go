package trading

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "binance-pulse/internal/errors"
)

const (
	// Base risk fraction of balance by confidence tier.
	baseRiskHighConf = 0.2
	baseRiskMidConf  = 0.1
	baseRiskLowConf  = 0.015

	sizeConfTierHigh = 92.0
	sizeConfTierMid  = 85.0

	// Multiplier caps for the sizing weights.
	maxConfidenceWeight = 1.5
	maxWhaleWeight      = 1.3
	maxImbalanceWeight  = 1.5

	whaleWeightStep     = 0.1
	imbalanceWeightStep = 0.2
	confidenceWeightRef = 70.0

	// Absolute and balance-relative size clamps.
	sizeFloorUSD       = 100.0
	sizeCeilingUSD     = 1000.0
	sizeFloorFraction  = 0.15
	sizeCapFraction    = 0.50
	maxRiskPerTradePct = 3.0
)

// RiskGate is the single admission point for new positions. It tracks
// active trades, post-exit cooldowns, running balance, daily PnL, and the
// drawdown circuit breaker.
type RiskGate struct {
	mu sync.RWMutex

	maxConcurrent     int
	cooldown          time.Duration
	dailyLossLimitPct float64
	maxDrawdownPct    float64

	referenceBalance float64
	balance          float64
	peakBalance      float64

	active    map[string]string // instrument -> trade ID
	lastExit  map[string]time.Time
	dailyPnL  float64
	statsDate time.Time

	logger zerolog.Logger
}

// NewRiskGate creates a risk gate seeded with the starting account balance.
func NewRiskGate(balance float64, maxConcurrent int, cooldown time.Duration, dailyLossLimitPct, maxDrawdownPct float64, logger zerolog.Logger) *RiskGate {
	return &RiskGate{
		maxConcurrent:     maxConcurrent,
		cooldown:          cooldown,
		dailyLossLimitPct: dailyLossLimitPct,
		maxDrawdownPct:    maxDrawdownPct,
		referenceBalance:  balance,
		balance:           balance,
		peakBalance:       balance,
		active:            make(map[string]string),
		lastExit:          make(map[string]time.Time),
		logger:            logger.With().Str("component", "risk_gate").Logger(),
	}
}

// Admit reports whether a new position on the instrument may be opened at
// the given time. A nil return admits the entry; sentinel errors identify
// the violated rule.
func (g *RiskGate) Admit(instrument string, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollDayLocked(now)

	if _, ok := g.active[instrument]; ok {
		return apperrors.ErrTradeActive
	}
	if len(g.active) >= g.maxConcurrent {
		return apperrors.ErrConcurrencyLimit
	}
	if exitAt, ok := g.lastExit[instrument]; ok && now.Sub(exitAt) < g.cooldown {
		return apperrors.ErrCooldownActive
	}

	lossLimit := g.referenceBalance * g.dailyLossLimitPct / 100
	if -g.dailyPnL >= lossLimit {
		g.logger.Warn().
			Float64("daily_pnl", g.dailyPnL).
			Float64("limit", lossLimit).
			Msg("daily loss limit reached, entries halted")
		return apperrors.ErrCircuitOpen
	}

	if g.peakBalance > 0 {
		drawdownPct := (g.peakBalance - g.balance) / g.peakBalance * 100
		if drawdownPct >= g.maxDrawdownPct {
			g.logger.Warn().
				Float64("drawdown_pct", drawdownPct).
				Float64("limit_pct", g.maxDrawdownPct).
				Msg("drawdown circuit breaker open, entries halted")
			return apperrors.ErrCircuitOpen
		}
	}

	return nil
}

// Register marks an instrument as holding an active trade. It must be
// called once per admitted entry, before the monitor starts.
func (g *RiskGate) Register(instrument, tradeID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active[instrument] = tradeID
}

// Release records a closed trade: it frees the instrument slot, starts
// the cooldown clock, and folds the realized PnL into the balance.
func (g *RiskGate) Release(instrument string, pnlUSD float64, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollDayLocked(now)

	delete(g.active, instrument)
	g.lastExit[instrument] = now
	g.balance += pnlUSD
	g.dailyPnL += pnlUSD
	if g.balance > g.peakBalance {
		g.peakBalance = g.balance
	}
}

// Balance returns the current running balance.
func (g *RiskGate) Balance() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.balance
}

// ActiveCount returns the number of open positions.
func (g *RiskGate) ActiveCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.active)
}

// Size computes the position size in USD for an admitted entry. The size
// scales with confidence, whale presence, and book imbalance, then is
// clamped to the account limits. An entry whose clamped size would still
// risk more than maxRiskPerTradePct of the balance is rejected outright
// rather than scaled down.
func (g *RiskGate) Size(confidence float64, whaleCount int, imbalance, entry, stop float64) (float64, error) {
	g.mu.RLock()
	balance := g.balance
	g.mu.RUnlock()

	if balance <= 0 || entry <= 0 || stop <= 0 || stop >= entry {
		return 0, apperrors.NewRiskError("sizing_input", entry, stop, "invalid sizing inputs")
	}

	baseRisk := baseRiskLowConf
	switch {
	case confidence > sizeConfTierHigh:
		baseRisk = baseRiskHighConf
	case confidence > sizeConfTierMid:
		baseRisk = baseRiskMidConf
	}

	confWeight := math.Min(maxConfidenceWeight, confidence/confidenceWeightRef)
	whaleWeight := math.Min(maxWhaleWeight, 1+whaleWeightStep*float64(whaleCount))
	imbWeight := 1.0
	if imbalance > 1 {
		imbWeight = math.Min(maxImbalanceWeight, 1+imbalanceWeightStep*(imbalance-1))
	}

	size := balance * baseRisk * confWeight * whaleWeight * imbWeight

	stopFraction := (entry - stop) / entry
	floor := math.Max(sizeFloorUSD, balance*sizeFloorFraction)
	ceiling := math.Min(balance*sizeCapFraction, sizeCeilingUSD)

	if size < floor {
		size = floor
	}
	if size > ceiling {
		size = ceiling
	}

	// A setup whose stop is so wide that even the clamped size risks more
	// than the per-trade limit is rejected outright, never scaled down.

	riskPct := size * stopFraction / balance * 100
	if riskPct > maxRiskPerTradePct {
		return 0, apperrors.NewRiskError("risk_per_trade", riskPct, maxRiskPerTradePct, "stop distance risks too much of the balance")
	}

	return size, nil
}

// rollDayLocked resets the daily PnL counter when the UTC date changes.
func (g *RiskGate) rollDayLocked(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if !day.Equal(g.statsDate) {
		g.statsDate = day
		g.dailyPnL = 0
	}
}
