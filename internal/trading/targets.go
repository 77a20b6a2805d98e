// Package trading implements the position lifecycle: target calculation,
// risk admission, sizing, and the per-trade exit monitor.
package trading

import (
	"binance-pulse/internal/models"
)

const (
	// Stop multipliers by confidence tier. Higher confidence entries get
	// a tighter stop because the setup is expected to work quickly.
	stopMultHighConf = 1.8
	stopMultMidConf  = 2.2
	stopMultLowConf  = 2.5

	// Profit multipliers applied to the realized stop distance.
	profitMultHighConf = 2.8
	profitMultMidConf  = 2.5
	profitMultLowConf  = 2.2

	confTierHigh = 90.0
	confTierMid  = 80.0

	// Floors: the stop is never tighter than 1% below entry and the
	// take-profit is never closer than 2% above it.
	stopFloorFraction = 0.99
	tpFloorFraction   = 1.02

	// A strong bid wall below entry acts as support. The stop is placed
	// just under it, never tighter than 0.05% below the wall price.
	wallStopFraction = 0.9995
)

// TargetCalculator derives stop-loss and take-profit levels from the ATR,
// the entry confidence, and any supporting bid wall.
type TargetCalculator struct {
	minRiskReward float64
}

// NewTargetCalculator creates a calculator that rejects setups whose
// realized risk/reward falls below minRiskReward.
func NewTargetCalculator(minRiskReward float64) *TargetCalculator {
	return &TargetCalculator{minRiskReward: minRiskReward}
}

// Calculate computes the target pair for an entry at the given price.
// wall may be nil when no strong bid wall was found. The boolean result
// reports whether the setup is acceptable; a false return is a normal
// rejection, not an error.
func (c *TargetCalculator) Calculate(entry float64, atr float64, confidence float64, wall *models.WallCluster) (models.Targets, bool) {
	if entry <= 0 || atr <= 0 {
		return models.Targets{}, false
	}

	stopMult := stopMultLowConf
	profitMult := profitMultLowConf
	switch {
	case confidence >= confTierHigh:
		stopMult = stopMultHighConf
		profitMult = profitMultHighConf
	case confidence >= confTierMid:
		stopMult = stopMultMidConf
		profitMult = profitMultMidConf
	}

	stop := entry - atr*stopMult
	if floor := entry * stopFloorFraction; stop > floor {
		stop = floor
	}

	// A wall between the stop and the entry lets us hide the stop just
	// beneath the support rather than a full ATR multiple away.
	if wall != nil && wall.Price < entry {
		wallStop := wall.Price * wallStopFraction
		if wallStop > stop && wallStop < entry {
			stop = wallStop
		}
	}

	if stop <= 0 || stop >= entry {
		return models.Targets{}, false
	}

	stopDistance := entry - stop
	tp := entry + stopDistance*profitMult
	if floor := entry * tpFloorFraction; tp < floor {
		tp = floor
	}
	if tp <= entry {
		return models.Targets{}, false
	}

	rr := (tp - entry) / stopDistance
	if rr < c.minRiskReward {
		return models.Targets{}, false
	}

	return models.Targets{
		StopLoss:         stop,
		TakeProfit:       tp,
		RiskReward:       rr,
		ATR:              atr,
		StopMultiplier:   stopMult,
		ProfitMultiplier: profitMult,
	}, true
}
