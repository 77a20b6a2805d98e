package patterns

import "binance-pulse/internal/analysis"

// Point values per bullish pattern. Reversal patterns only count when RSI
// shows room to run, so an overbought chart cannot stack pattern points on
// top of an already stretched move.
var buyPoints = map[string]float64{
	"Morning Star":      15,
	"Bullish Engulfing": 12,
	"Hammer":            10,
	"Pin Bar":           8,
	"Inverted Hammer":   8,
	"Bullish Harami":    6,
}

const (
	// MaxBuyScore caps the total pattern contribution to a decision.
	MaxBuyScore = 25.0

	// patternRSIGate disables bullish pattern scoring above this RSI.
	patternRSIGate = 65.0
)

// BuyScore sums bullish pattern points for patterns that complete on the
// last candle of the window, capped at MaxBuyScore. lastIdx is the index of
// the most recent completed candle the patterns were detected over.
func BuyScore(detected []analysis.Pattern, lastIdx int, rsi float64) (float64, []string) {
	if rsi >= patternRSIGate {
		return 0, nil
	}

	var score float64
	var names []string
	for _, p := range detected {
		if p.EndIndex != lastIdx || p.Direction != analysis.PatternBullish {
			continue
		}
		pts, ok := buyPoints[p.Name]
		if !ok {
			continue
		}
		score += pts
		names = append(names, p.Name)
	}

	if score > MaxBuyScore {
		score = MaxBuyScore
	}
	return score, names
}
