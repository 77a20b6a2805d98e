package indicators

import (
	"fmt"

	"binance-pulse/internal/models"
)

// ATR calculates the Average True Range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR_%d", a.period)
}

func (a *ATR) Period() int {
	return a.period
}

func (a *ATR) Calculate(candles []models.Candle) ([]float64, error) {
	if a.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < a.period+1 {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)

	tr := make([]float64, n)
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < n; i++ {
		tr[i] = trueRange(candles[i], candles[i-1])
	}

	// First ATR is the SMA of true ranges, then Wilder smoothing.
	result[a.period] = mean(tr[1 : a.period+1])
	for i := a.period + 1; i < n; i++ {
		result[i] = (result[i-1]*float64(a.period-1) + tr[i]) / float64(a.period)
	}

	return result, nil
}

// BollingerBands calculates Bollinger Bands (upper, middle, lower, bandwidth).
type BollingerBands struct {
	period  int
	stdDevs float64
}

// NewBollingerBands creates a new Bollinger Bands indicator.
func NewBollingerBands(period int, stdDevs float64) *BollingerBands {
	return &BollingerBands{period: period, stdDevs: stdDevs}
}

func (b *BollingerBands) Name() string {
	return fmt.Sprintf("BollingerBands_%d", b.period)
}

func (b *BollingerBands) Period() int {
	return b.period
}

func (b *BollingerBands) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if b.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < b.period {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	closes := closePrices(candles)

	upper := make([]float64, n)
	middle := make([]float64, n)
	lower := make([]float64, n)
	bandwidth := make([]float64, n)

	for i := b.period - 1; i < n; i++ {
		window := closes[i-b.period+1 : i+1]
		m := mean(window)
		sd := stdDev(window)

		middle[i] = m
		upper[i] = m + b.stdDevs*sd
		lower[i] = m - b.stdDevs*sd
		if m != 0 {
			bandwidth[i] = (upper[i] - lower[i]) / m
		}
	}

	return map[string][]float64{
		"upper":     upper,
		"middle":    middle,
		"lower":     lower,
		"bandwidth": bandwidth,
	}, nil
}
