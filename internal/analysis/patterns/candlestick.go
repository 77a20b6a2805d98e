// Package patterns provides candlestick pattern detection and scoring.
package patterns

import (
	"binance-pulse/internal/analysis"
	"binance-pulse/internal/models"
)

// CandlestickDetector detects candlestick patterns in price data.
type CandlestickDetector struct {
	dojiThreshold     float64 // Body size as % of range for doji
	longBodyThreshold float64 // Body size as % of range for long body
	shadowThreshold   float64 // Shadow size as multiple of body for hammer/shooting star
}

// NewCandlestickDetector creates a new candlestick pattern detector.
func NewCandlestickDetector() *CandlestickDetector {
	return &CandlestickDetector{
		dojiThreshold:     0.1,
		longBodyThreshold: 0.6,
		shadowThreshold:   2.0,
	}
}

func (d *CandlestickDetector) Name() string {
	return "CandlestickDetector"
}

// Detect detects all candlestick patterns in the given candles.
func (d *CandlestickDetector) Detect(candles []models.Candle) ([]analysis.Pattern, error) {
	if len(candles) < 3 {
		return nil, nil
	}

	var patterns []analysis.Pattern

	for i := 0; i < len(candles); i++ {
		if p := d.detectDoji(candles, i); p != nil {
			patterns = append(patterns, *p)
		}
		if p := d.detectHammer(candles, i); p != nil {
			patterns = append(patterns, *p)
		}
		if p := d.detectInvertedHammer(candles, i); p != nil {
			patterns = append(patterns, *p)
		}
		if p := d.detectShootingStar(candles, i); p != nil {
			patterns = append(patterns, *p)
		}
		if p := d.detectPinBar(candles, i); p != nil {
			patterns = append(patterns, *p)
		}
	}

	for i := 1; i < len(candles); i++ {
		if p := d.detectEngulfing(candles, i); p != nil {
			patterns = append(patterns, *p)
		}
		if p := d.detectHarami(candles, i); p != nil {
			patterns = append(patterns, *p)
		}
	}

	for i := 2; i < len(candles); i++ {
		if p := d.detectMorningStar(candles, i); p != nil {
			patterns = append(patterns, *p)
		}
		if p := d.detectEveningStar(candles, i); p != nil {
			patterns = append(patterns, *p)
		}
	}

	return patterns, nil
}

func (d *CandlestickDetector) bodySize(c models.Candle) float64 {
	return abs(c.Close - c.Open)
}

func (d *CandlestickDetector) candleRange(c models.Candle) float64 {
	return c.High - c.Low
}

func (d *CandlestickDetector) upperShadow(c models.Candle) float64 {
	return c.High - max(c.Open, c.Close)
}

func (d *CandlestickDetector) lowerShadow(c models.Candle) float64 {
	return min(c.Open, c.Close) - c.Low
}

func (d *CandlestickDetector) isBullish(c models.Candle) bool {
	return c.Close > c.Open
}

func (d *CandlestickDetector) isBearish(c models.Candle) bool {
	return c.Close < c.Open
}

// isInDowntrend checks if there's a downtrend before the given index
func (d *CandlestickDetector) isInDowntrend(candles []models.Candle, idx int) bool {
	if idx < 3 {
		return false
	}
	return candles[idx-1].Close < candles[idx-2].Close &&
		candles[idx-2].Close < candles[idx-3].Close
}

// isInUptrend checks if there's an uptrend before the given index
func (d *CandlestickDetector) isInUptrend(candles []models.Candle, idx int) bool {
	if idx < 3 {
		return false
	}
	return candles[idx-1].Close > candles[idx-2].Close &&
		candles[idx-2].Close > candles[idx-3].Close
}

// detectDoji detects Doji patterns (open close to close)
func (d *CandlestickDetector) detectDoji(candles []models.Candle, idx int) *analysis.Pattern {
	c := candles[idx]
	rng := d.candleRange(c)
	if rng == 0 {
		return nil
	}

	body := d.bodySize(c)
	if body/rng > d.dojiThreshold {
		return nil
	}

	return &analysis.Pattern{
		Name:       "Doji",
		Direction:  analysis.PatternNeutral,
		StartIndex: idx,
		EndIndex:   idx,
		Strength:   0.4,
	}
}

// detectHammer detects Hammer patterns (bullish reversal at bottom)
func (d *CandlestickDetector) detectHammer(candles []models.Candle, idx int) *analysis.Pattern {
	c := candles[idx]
	body := d.bodySize(c)
	if body == 0 {
		return nil
	}

	if d.lowerShadow(c) < body*d.shadowThreshold {
		return nil
	}
	if d.upperShadow(c) > body*0.5 {
		return nil
	}
	if !d.isInDowntrend(candles, idx) {
		return nil
	}

	return &analysis.Pattern{
		Name:       "Hammer",
		Direction:  analysis.PatternBullish,
		StartIndex: idx,
		EndIndex:   idx,
		Strength:   0.7,
	}
}

// detectInvertedHammer detects Inverted Hammer patterns (bullish reversal at bottom)
func (d *CandlestickDetector) detectInvertedHammer(candles []models.Candle, idx int) *analysis.Pattern {
	c := candles[idx]
	body := d.bodySize(c)
	if body == 0 {
		return nil
	}

	if d.upperShadow(c) < body*d.shadowThreshold {
		return nil
	}
	if d.lowerShadow(c) > body*0.5 {
		return nil
	}
	if !d.isInDowntrend(candles, idx) {
		return nil
	}

	return &analysis.Pattern{
		Name:       "Inverted Hammer",
		Direction:  analysis.PatternBullish,
		StartIndex: idx,
		EndIndex:   idx,
		Strength:   0.6,
	}
}

// detectShootingStar detects Shooting Star patterns (bearish reversal at top)
func (d *CandlestickDetector) detectShootingStar(candles []models.Candle, idx int) *analysis.Pattern {
	c := candles[idx]
	body := d.bodySize(c)
	if body == 0 {
		return nil
	}

	if d.upperShadow(c) < body*d.shadowThreshold {
		return nil
	}
	if d.lowerShadow(c) > body*0.5 {
		return nil
	}
	if !d.isInUptrend(candles, idx) {
		return nil
	}

	return &analysis.Pattern{
		Name:       "Shooting Star",
		Direction:  analysis.PatternBearish,
		StartIndex: idx,
		EndIndex:   idx,
		Strength:   0.7,
	}
}

// detectPinBar detects bullish Pin Bar patterns. Unlike the hammer it does
// not require a preceding downtrend, only a dominant lower wick.
func (d *CandlestickDetector) detectPinBar(candles []models.Candle, idx int) *analysis.Pattern {
	c := candles[idx]
	rng := d.candleRange(c)
	if rng == 0 {
		return nil
	}

	lower := d.lowerShadow(c)
	if lower/rng < 0.66 {
		return nil
	}
	if d.upperShadow(c) > rng*0.15 {
		return nil
	}

	return &analysis.Pattern{
		Name:       "Pin Bar",
		Direction:  analysis.PatternBullish,
		StartIndex: idx,
		EndIndex:   idx,
		Strength:   0.6,
	}
}

// detectEngulfing detects Bullish and Bearish Engulfing patterns
func (d *CandlestickDetector) detectEngulfing(candles []models.Candle, idx int) *analysis.Pattern {
	if idx < 1 {
		return nil
	}

	prev := candles[idx-1]
	curr := candles[idx]

	if d.bodySize(curr) <= d.bodySize(prev) {
		return nil
	}

	if d.isBearish(prev) && d.isBullish(curr) {
		if curr.Open <= prev.Close && curr.Close >= prev.Open {
			return &analysis.Pattern{
				Name:       "Bullish Engulfing",
				Direction:  analysis.PatternBullish,
				StartIndex: idx - 1,
				EndIndex:   idx,
				Strength:   0.8,
			}
		}
	}

	if d.isBullish(prev) && d.isBearish(curr) {
		if curr.Open >= prev.Close && curr.Close <= prev.Open {
			return &analysis.Pattern{
				Name:       "Bearish Engulfing",
				Direction:  analysis.PatternBearish,
				StartIndex: idx - 1,
				EndIndex:   idx,
				Strength:   0.8,
			}
		}
	}

	return nil
}

// detectHarami detects Bullish Harami patterns
func (d *CandlestickDetector) detectHarami(candles []models.Candle, idx int) *analysis.Pattern {
	if idx < 1 {
		return nil
	}

	prev := candles[idx-1]
	curr := candles[idx]

	if d.bodySize(curr) >= d.bodySize(prev) {
		return nil
	}

	if d.isBearish(prev) && d.isBullish(curr) {
		if curr.Open >= prev.Close && curr.Close <= prev.Open {
			return &analysis.Pattern{
				Name:       "Bullish Harami",
				Direction:  analysis.PatternBullish,
				StartIndex: idx - 1,
				EndIndex:   idx,
				Strength:   0.6,
			}
		}
	}

	return nil
}

// detectMorningStar detects Morning Star pattern (bullish reversal)
func (d *CandlestickDetector) detectMorningStar(candles []models.Candle, idx int) *analysis.Pattern {
	if idx < 2 {
		return nil
	}

	first := candles[idx-2]
	second := candles[idx-1]
	third := candles[idx]

	firstBody := d.bodySize(first)
	firstRange := d.candleRange(first)
	if firstRange == 0 || firstBody/firstRange < d.longBodyThreshold || !d.isBearish(first) {
		return nil
	}

	secondBody := d.bodySize(second)
	secondRange := d.candleRange(second)
	if secondRange > 0 && secondBody/secondRange > 0.3 {
		return nil
	}
	if max(second.Open, second.Close) >= first.Close {
		return nil
	}

	thirdBody := d.bodySize(third)
	thirdRange := d.candleRange(third)
	if thirdRange == 0 || thirdBody/thirdRange < d.longBodyThreshold || !d.isBullish(third) {
		return nil
	}
	firstMidpoint := (first.Open + first.Close) / 2
	if third.Close < firstMidpoint {
		return nil
	}

	return &analysis.Pattern{
		Name:       "Morning Star",
		Direction:  analysis.PatternBullish,
		StartIndex: idx - 2,
		EndIndex:   idx,
		Strength:   0.85,
	}
}

// detectEveningStar detects Evening Star pattern (bearish reversal)
func (d *CandlestickDetector) detectEveningStar(candles []models.Candle, idx int) *analysis.Pattern {
	if idx < 2 {
		return nil
	}

	first := candles[idx-2]
	second := candles[idx-1]
	third := candles[idx]

	firstBody := d.bodySize(first)
	firstRange := d.candleRange(first)
	if firstRange == 0 || firstBody/firstRange < d.longBodyThreshold || !d.isBullish(first) {
		return nil
	}

	secondBody := d.bodySize(second)
	secondRange := d.candleRange(second)
	if secondRange > 0 && secondBody/secondRange > 0.3 {
		return nil
	}
	if min(second.Open, second.Close) <= first.Close {
		return nil
	}

	thirdBody := d.bodySize(third)
	thirdRange := d.candleRange(third)
	if thirdRange == 0 || thirdBody/thirdRange < d.longBodyThreshold || !d.isBearish(third) {
		return nil
	}
	firstMidpoint := (first.Open + first.Close) / 2
	if third.Close > firstMidpoint {
		return nil
	}

	return &analysis.Pattern{
		Name:       "Evening Star",
		Direction:  analysis.PatternBearish,
		StartIndex: idx - 2,
		EndIndex:   idx,
		Strength:   0.85,
	}
}

// Helper functions
func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
