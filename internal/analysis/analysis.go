// Package analysis provides shared types for technical analysis, pattern
// detection, and signal scoring.
package analysis

import (
	"binance-pulse/internal/models"
)

// PatternDetector defines the interface for pattern detection.
type PatternDetector interface {
	Name() string
	Detect(candles []models.Candle) ([]Pattern, error)
}

// Pattern represents a detected candlestick pattern.
type Pattern struct {
	Name          string
	Direction     PatternDirection
	StartIndex    int
	EndIndex      int
	Strength      float64
	VolumeConfirm bool
}

// PatternDirection represents the expected direction of a pattern.
type PatternDirection string

const (
	PatternBullish PatternDirection = "bullish"
	PatternBearish PatternDirection = "bearish"
	PatternNeutral PatternDirection = "neutral"
)
