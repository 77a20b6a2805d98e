package scoring

import (
	"math"

	"binance-pulse/internal/models"
)

// Regime classification thresholds.
const (
	highVolatilityRatio = 0.035 // ATR as a fraction of price
	rangeTrendStrength  = 0.004 // |SMA50-SMA200| as a fraction of price
	rangeBandwidth      = 0.02  // Bollinger bandwidth confirming a range
)

// Confidence modulation per regime. A downtrend penalizes a long setup
// harder than a range; an uptrend rewards it. HIGH_VOLATILITY carries no
// modulation because the engine's volatility penalty already covers it.
var regimeAdjustments = map[models.MarketRegime]float64{
	models.RegimeUptrend:        +10,
	models.RegimeDowntrend:      -20,
	models.RegimeRange:          -10,
	models.RegimeHighVolatility: 0,
	models.RegimeTransition:     0,
}

// ClassifyRegime derives the market regime from one indicator snapshot.
// High volatility takes precedence, then a flat long-average spread marks
// a range before trend alignment is considered.
func ClassifyRegime(snap *models.IndicatorSnapshot) models.MarketRegime {
	if snap.Close <= 0 {
		return models.RegimeTransition
	}

	if snap.Volatility() > highVolatilityRatio {
		return models.RegimeHighVolatility
	}

	trendStrength := math.Abs(snap.SMAShort-snap.SMALong) / snap.Close
	if trendStrength < rangeTrendStrength {
		if snap.BandWidth <= 0 || snap.BandWidth < rangeBandwidth {
			return models.RegimeRange
		}
	}

	if snap.Close > snap.SMAShort && snap.SMAShort > snap.SMALong {
		return models.RegimeUptrend
	}
	if snap.Close < snap.SMAShort && snap.SMAShort < snap.SMALong {
		return models.RegimeDowntrend
	}

	return models.RegimeTransition
}

// RegimeAdjustment returns the confidence delta applied for a regime.
func RegimeAdjustment(regime models.MarketRegime) float64 {
	return regimeAdjustments[regime]
}
