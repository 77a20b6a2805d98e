package indicators

import (
	"fmt"

	"binance-pulse/internal/models"
)

// RSI calculates the Relative Strength Index.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

func (r *RSI) Calculate(candles []models.Candle) ([]float64, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < r.period+1 {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)
	closes := closePrices(candles)

	gains := make([]float64, n)
	losses := make([]float64, n)

	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	// First average using SMA
	avgGain := mean(gains[1 : r.period+1])
	avgLoss := mean(losses[1 : r.period+1])

	if avgLoss == 0 {
		result[r.period] = 100
	} else {
		rs := avgGain / avgLoss
		result[r.period] = 100 - (100 / (1 + rs))
	}

	// Subsequent values using Wilder smoothing
	for i := r.period + 1; i < n; i++ {
		avgGain = (avgGain*float64(r.period-1) + gains[i]) / float64(r.period)
		avgLoss = (avgLoss*float64(r.period-1) + losses[i]) / float64(r.period)

		if avgLoss == 0 {
			result[i] = 100
		} else {
			rs := avgGain / avgLoss
			result[i] = 100 - (100 / (1 + rs))
		}
	}

	return result, nil
}

// SmoothedRSI calculates an SMA over an RSI series, used to detect
// short-term momentum divergence from the smoothed baseline.
type SmoothedRSI struct {
	rsiPeriod    int
	smoothPeriod int
}

// NewSmoothedRSI creates a new SmoothedRSI indicator.
func NewSmoothedRSI(rsiPeriod, smoothPeriod int) *SmoothedRSI {
	return &SmoothedRSI{rsiPeriod: rsiPeriod, smoothPeriod: smoothPeriod}
}

func (s *SmoothedRSI) Name() string {
	return fmt.Sprintf("SmoothedRSI_%d_%d", s.rsiPeriod, s.smoothPeriod)
}

func (s *SmoothedRSI) Period() int {
	return s.rsiPeriod + s.smoothPeriod
}

func (s *SmoothedRSI) Calculate(candles []models.Candle) ([]float64, error) {
	if s.smoothPeriod <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < s.Period() {
		return nil, ErrInsufficientData
	}

	rsi, err := NewRSI(s.rsiPeriod).Calculate(candles)
	if err != nil {
		return nil, err
	}

	n := len(rsi)
	result := make([]float64, n)
	start := s.rsiPeriod + s.smoothPeriod - 1
	for i := start; i < n; i++ {
		result[i] = mean(rsi[i-s.smoothPeriod+1 : i+1])
	}

	return result, nil
}

// MACD calculates Moving Average Convergence Divergence.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{fastPeriod: fast, slowPeriod: slow, signalPeriod: signal}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

func (m *MACD) Period() int {
	return m.slowPeriod + m.signalPeriod
}

func (m *MACD) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || m.signalPeriod <= 0 {
		return nil, ErrInvalidPeriod
	}
	if m.fastPeriod >= m.slowPeriod {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < m.Period() {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	closes := closePrices(candles)

	fastEMA := emaSeries(closes, m.fastPeriod)
	slowEMA := emaSeries(closes, m.slowPeriod)

	macdLine := make([]float64, n)
	for i := m.slowPeriod - 1; i < n; i++ {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	// Signal line is an EMA of the MACD line, seeded once the MACD line
	// has produced signalPeriod values.
	signalLine := make([]float64, n)
	start := m.slowPeriod - 1
	seedEnd := start + m.signalPeriod
	if seedEnd > n {
		return nil, ErrInsufficientData
	}
	signalLine[seedEnd-1] = mean(macdLine[start:seedEnd])
	k := 2.0 / float64(m.signalPeriod+1)
	for i := seedEnd; i < n; i++ {
		signalLine[i] = macdLine[i]*k + signalLine[i-1]*(1-k)
	}

	histogram := make([]float64, n)
	for i := seedEnd - 1; i < n; i++ {
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return map[string][]float64{
		"macd":      macdLine,
		"signal":    signalLine,
		"histogram": histogram,
	}, nil
}
