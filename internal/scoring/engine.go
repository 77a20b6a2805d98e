// Package scoring fuses indicator, order book, whale, and pattern inputs
// into one confidence score per instrument.
package scoring

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"binance-pulse/internal/analysis/patterns"
	"binance-pulse/internal/models"
)

// Decision matrix constants. Each component contributes a fixed number of
// points; the total is clamped to [0, 100].
const (
	pricePositionLow       = 15.0 // close in the bottom 15% of the daily range
	pricePositionHigh      = 70.0
	scorePricePositionLow  = 15.0
	scorePricePositionHigh = -10.0

	// RSI measured against its own SMA20 baseline. Pulled below by more
	// than the margin reads as accumulation; stretched above reads as a
	// chased move.
	rsiDivergenceMargin  = 5.0
	scoreRSIAccumulation = 20.0
	scoreRSIExtended     = -15.0

	scoreVolumeSurge = 15.0

	volatilityRatioMax = 0.03
	scoreVolatility    = -15.0

	scoreTrendAligned = 15.0

	// patternLookback bounds how far back pattern detection scans. Only
	// patterns completing on the latest candle score anyway.
	patternLookback = 30
)

// Engine scores one instrument per tick. It is stateless between ticks: a
// decision is a pure function of its inputs.
type Engine struct {
	minVolumeRatio float64
	detector       *patterns.CandlestickDetector
	logger         zerolog.Logger
}

// NewEngine creates a scoring engine. minVolumeRatio is the volume surge
// threshold relative to the 20-period average.
func NewEngine(minVolumeRatio float64, logger zerolog.Logger) *Engine {
	return &Engine{
		minVolumeRatio: minVolumeRatio,
		detector:       patterns.NewCandlestickDetector(),
		logger:         logger,
	}
}

// Score fuses all inputs into a decision. candles are the completed candles
// backing snap, used for pattern detection.
func (e *Engine) Score(snap *models.IndicatorSnapshot, book models.BookAnalysis, whales models.WhaleAnalysis, candles []models.Candle, now time.Time) *models.DecisionResult {
	result := &models.DecisionResult{
		Instrument: snap.Instrument,
		Indicators: snap,
		Book:       &book,
		Whales:     &whales,
		ScoredAt:   now,
	}

	var score float64

	// Price position within the daily range: near the low is an entry
	// opportunity, near the high is chasing.
	switch {
	case snap.PricePositionPct <= pricePositionLow:
		score += scorePricePositionLow
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("price in bottom %.0f%% of daily range", snap.PricePositionPct))
	case snap.PricePositionPct >= pricePositionHigh:
		score += scorePricePositionHigh
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("price at %.0f%% of daily range", snap.PricePositionPct))
	}

	// Order book liquidity and walls.
	score += book.Score
	result.Reasons = append(result.Reasons, book.Reasons...)
	result.Warnings = append(result.Warnings, book.Warnings...)

	// Momentum divergence: RSI relative to its smoothed baseline.
	if snap.RSISmoothed > 0 {
		diff := snap.RSI - snap.RSISmoothed
		if diff < -rsiDivergenceMargin {
			score += scoreRSIAccumulation
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("RSI %.1f accumulating below smoothed %.1f", snap.RSI, snap.RSISmoothed))
		} else if diff > rsiDivergenceMargin {
			score += scoreRSIExtended
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("RSI %.1f extended above smoothed %.1f", snap.RSI, snap.RSISmoothed))
		}
	}

	// Volume surge on an up candle.
	if snap.VolumeRatio >= e.minVolumeRatio && snap.Close > snap.PrevClose {
		score += scoreVolumeSurge
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("volume %.1fx average on rising close", snap.VolumeRatio))
	}

	// Whale pressure.
	score += whales.Score
	result.Reasons = append(result.Reasons, whales.Reasons...)

	// Volatility penalty.
	if snap.Volatility() > volatilityRatioMax {
		score += scoreVolatility
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("elevated volatility %.1f%%", snap.Volatility()*100))
	}

	// Trend alignment.
	if snap.Close > snap.SMAShort && snap.SMAShort > snap.SMALong {
		score += scoreTrendAligned
		result.Reasons = append(result.Reasons, "close above SMA50 above SMA200")
	}

	// Candlestick patterns, capped and RSI-gated.
	if n := len(candles); n >= 3 {
		window := candles
		if n > patternLookback {
			window = candles[n-patternLookback:]
		}
		detected, err := e.detector.Detect(window)
		if err == nil {
			pts, names := patterns.BuyScore(detected, len(window)-1, snap.RSI)
			if pts > 0 {
				score += pts
				for _, name := range names {
					result.Reasons = append(result.Reasons, "pattern: "+name)
				}
			}
		}
	}

	// Regime modulation.
	result.Regime = ClassifyRegime(snap)
	if adj := RegimeAdjustment(result.Regime); adj != 0 {
		score += adj
		if adj < 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s regime %.0f", result.Regime, adj))
		} else {
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("%s regime +%.0f", result.Regime, adj))
		}
	}

	result.Confidence = clamp(score, 0, 100)

	e.logger.Debug().
		Str("instrument", result.Instrument).
		Float64("confidence", result.Confidence).
		Str("regime", string(result.Regime)).
		Strs("reasons", result.Reasons).
		Msg("Decision scored")

	return result
}

// clamp restricts a value to the given range.
func clamp(value, minVal, maxVal float64) float64 {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
