package indicators

import (
	"fmt"

	"binance-pulse/internal/models"
)

// SMA calculates the Simple Moving Average.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d", s.period)
}

func (s *SMA) Period() int {
	return s.period
}

func (s *SMA) Calculate(candles []models.Candle) ([]float64, error) {
	if s.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < s.period {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)
	closes := closePrices(candles)

	// Rolling sum keeps the update O(1) per candle.
	windowSum := sum(closes[:s.period])
	result[s.period-1] = windowSum / float64(s.period)
	for i := s.period; i < n; i++ {
		windowSum += closes[i] - closes[i-s.period]
		result[i] = windowSum / float64(s.period)
	}

	return result, nil
}

// EMA calculates the Exponential Moving Average.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator.
func NewEMA(period int) *EMA {
	return &EMA{period: period}
}

func (e *EMA) Name() string {
	return fmt.Sprintf("EMA_%d", e.period)
}

func (e *EMA) Period() int {
	return e.period
}

func (e *EMA) Calculate(candles []models.Candle) ([]float64, error) {
	if e.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < e.period {
		return nil, ErrInsufficientData
	}

	return emaSeries(closePrices(candles), e.period), nil
}

// PricePosition calculates where the close sits within the high-low range
// of a lookback window, as a percentage. 0 means at the window low, 100 at
// the window high.
type PricePosition struct {
	period int
}

// NewPricePosition creates a new PricePosition indicator.
func NewPricePosition(period int) *PricePosition {
	return &PricePosition{period: period}
}

func (p *PricePosition) Name() string {
	return fmt.Sprintf("PricePosition_%d", p.period)
}

func (p *PricePosition) Period() int {
	return p.period
}

func (p *PricePosition) Calculate(candles []models.Candle) ([]float64, error) {
	if p.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < p.period {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)

	for i := p.period - 1; i < n; i++ {
		window := candles[i-p.period+1 : i+1]
		var hi, lo float64
		hi = window[0].High
		lo = window[0].Low
		for _, c := range window[1:] {
			if c.High > hi {
				hi = c.High
			}
			if c.Low < lo {
				lo = c.Low
			}
		}
		if hi == lo {
			result[i] = 50
		} else {
			// Rounding can push a close sitting exactly on the window
			// high a hair past 100.
			result[i] = clamp(100*(candles[i].Close-lo)/(hi-lo), 0, 100)
		}
	}

	return result, nil
}
