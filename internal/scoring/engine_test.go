package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"binance-pulse/internal/models"
)

func baseSnapshot() *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{
		Instrument:       "BTCUSDT",
		RSI:              42,
		PrevRSI:          43,
		RSISmoothed:      50,
		ATR:              100,
		VolumeRatio:      1.5,
		AvgVolume:        500,
		SMAShort:         49000,
		SMALong:          48000,
		Close:            50000,
		PrevClose:        49900,
		PricePositionPct: 10,
		MACD:             5,
		MACDSignal:       3,
		BandWidth:        0.03,
		Timestamp:        time.Now(),
	}
}

func TestScoreBullishConfiguration(t *testing.T) {
	e := NewEngine(1.2, zerolog.Nop())

	book := models.BookAnalysis{Score: 20, Imbalance: 3.0}
	whales := models.WhaleAnalysis{Score: 25}

	result := e.Score(baseSnapshot(), book, whales, nil, time.Now())

	// 15 (low price position) + 20 (book) + 20 (RSI accumulation) + 15
	// (volume surge) + 25 (whales) + 15 (trend) + 10 (uptrend regime).
	if result.Confidence != 100 {
		t.Errorf("Confidence = %.1f, want clamped 100", result.Confidence)
	}
	if result.Regime != models.RegimeUptrend {
		t.Errorf("Regime = %s, want UPTREND", result.Regime)
	}
	if len(result.Reasons) == 0 {
		t.Error("expected reasons for a bullish configuration")
	}
}

func TestScoreBearishConfigurationClampsAtZero(t *testing.T) {
	e := NewEngine(1.2, zerolog.Nop())

	snap := baseSnapshot()
	snap.PricePositionPct = 85
	snap.RSI = 60
	snap.RSISmoothed = 50
	snap.VolumeRatio = 0.8
	snap.Close = 47000
	snap.SMAShort = 48000
	snap.SMALong = 49000

	book := models.BookAnalysis{Score: -30, Imbalance: 0.3}
	result := e.Score(snap, book, models.WhaleAnalysis{}, nil, time.Now())

	if result.Confidence != 0 {
		t.Errorf("Confidence = %.1f, want clamped 0", result.Confidence)
	}
	if result.Regime != models.RegimeDowntrend {
		t.Errorf("Regime = %s, want DOWNTREND", result.Regime)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected warnings for a bearish configuration")
	}
}

func TestScoreRSIDivergenceDirection(t *testing.T) {
	e := NewEngine(1.2, zerolog.Nop())

	below := baseSnapshot()
	below.RSI = 40
	below.RSISmoothed = 50

	above := baseSnapshot()
	above.RSI = 60
	above.RSISmoothed = 50

	// An RSI pulled well below its baseline is the accumulation setup;
	// the same RSI stretched above it is a chased move.
	belowScore := e.Score(below, models.BookAnalysis{}, models.WhaleAnalysis{}, nil, time.Now())
	aboveScore := e.Score(above, models.BookAnalysis{}, models.WhaleAnalysis{}, nil, time.Now())

	if belowScore.Confidence <= aboveScore.Confidence {
		t.Errorf("below-baseline confidence %.1f, above %.1f; want below higher",
			belowScore.Confidence, aboveScore.Confidence)
	}
	if !containsSubstring(belowScore.Reasons, "accumulating") {
		t.Errorf("expected an accumulation reason, got %v", belowScore.Reasons)
	}
	if !containsSubstring(aboveScore.Warnings, "extended") {
		t.Errorf("expected an extension warning, got %v", aboveScore.Warnings)
	}

	within := baseSnapshot()
	within.RSI = 52
	within.RSISmoothed = 50
	neutral := e.Score(within, models.BookAnalysis{}, models.WhaleAnalysis{}, nil, time.Now())
	if neutral.Confidence != aboveScore.Confidence+15 {
		t.Errorf("inside-margin confidence %.1f, want no divergence contribution (%.1f)",
			neutral.Confidence, aboveScore.Confidence+15)
	}
}

func containsSubstring(entries []string, sub string) bool {
	for _, e := range entries {
		if strings.Contains(e, sub) {
			return true
		}
	}
	return false
}

func TestScoreVolatilityPenalty(t *testing.T) {
	e := NewEngine(1.2, zerolog.Nop())

	snap := baseSnapshot()
	snap.ATR = 1600 // 3.2% of price

	withPenalty := e.Score(snap, models.BookAnalysis{}, models.WhaleAnalysis{}, nil, time.Now())

	snap2 := baseSnapshot()
	snap2.ATR = 100
	without := e.Score(snap2, models.BookAnalysis{}, models.WhaleAnalysis{}, nil, time.Now())

	// 3.2% ATR draws the volatility penalty while leaving the regime intact.
	if withPenalty.Confidence >= without.Confidence {
		t.Errorf("volatile confidence %.1f, calm %.1f; want volatile lower",
			withPenalty.Confidence, without.Confidence)
	}
}

func TestRegimeAdjustments(t *testing.T) {
	tests := []struct {
		regime models.MarketRegime
		want   float64
	}{
		{models.RegimeUptrend, 10},
		{models.RegimeDowntrend, -20},
		{models.RegimeRange, -10},
		// The engine's volatility penalty already carries the high
		// volatility discount; the regime must not stack a second one.
		{models.RegimeHighVolatility, 0},
		{models.RegimeTransition, 0},
	}
	for _, tt := range tests {
		if got := RegimeAdjustment(tt.regime); got != tt.want {
			t.Errorf("RegimeAdjustment(%s) = %.0f, want %.0f", tt.regime, got, tt.want)
		}
	}
}

func TestClassifyRegime(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*models.IndicatorSnapshot)
		want models.MarketRegime
	}{
		{
			"uptrend alignment",
			func(s *models.IndicatorSnapshot) {},
			models.RegimeUptrend,
		},
		{
			"downtrend alignment",
			func(s *models.IndicatorSnapshot) {
				s.Close = 47000
				s.SMAShort = 48000
				s.SMALong = 49000
			},
			models.RegimeDowntrend,
		},
		{
			"high volatility wins over trend",
			func(s *models.IndicatorSnapshot) {
				s.ATR = 3000 // 6%
			},
			models.RegimeHighVolatility,
		},
		{
			"volatility just above threshold",
			func(s *models.IndicatorSnapshot) {
				s.ATR = 1800 // 3.6%
			},
			models.RegimeHighVolatility,
		},
		{
			"flat long averages are a range",
			func(s *models.IndicatorSnapshot) {
				s.SMAShort = 49900
				s.SMALong = 49950 // 0.1% apart on a 50000 close
				s.BandWidth = 0.01
			},
			models.RegimeRange,
		},
		{
			"range wins over trend alignment",
			func(s *models.IndicatorSnapshot) {
				s.SMAShort = 49990
				s.SMALong = 49890 // aligned but only 0.2% apart
				s.BandWidth = 0.01
			},
			models.RegimeRange,
		},
		{
			"flat averages with wide bands fall through",
			func(s *models.IndicatorSnapshot) {
				s.SMAShort = 49900
				s.SMALong = 49950
				s.BandWidth = 0.04
			},
			models.RegimeTransition,
		},
		{
			"no signal is a transition",
			func(s *models.IndicatorSnapshot) {
				s.SMAShort = 50100
				s.BandWidth = 0.04
			},
			models.RegimeTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := baseSnapshot()
			tt.mod(snap)
			if got := ClassifyRegime(snap); got != tt.want {
				t.Errorf("ClassifyRegime = %s, want %s", got, tt.want)
			}
		})
	}
}

func snapshotGen() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, 100),     // RSI
		gen.Float64Range(0, 100),     // RSISmoothed
		gen.Float64Range(0, 5000),    // ATR
		gen.Float64Range(0, 5),       // VolumeRatio
		gen.Float64Range(1, 100000),  // Close
		gen.Float64Range(1, 100000),  // PrevClose
		gen.Float64Range(1, 100000),  // SMAShort
		gen.Float64Range(1, 100000),  // SMALong
		gen.Float64Range(0, 100),     // PricePositionPct
		gen.Float64Range(0, 0.1),     // BandWidth
	).Map(func(vals []interface{}) *models.IndicatorSnapshot {
		return &models.IndicatorSnapshot{
			Instrument:       "BTCUSDT",
			RSI:              vals[0].(float64),
			RSISmoothed:      vals[1].(float64),
			ATR:              vals[2].(float64),
			VolumeRatio:      vals[3].(float64),
			AvgVolume:        500,
			Close:            vals[4].(float64),
			PrevClose:        vals[5].(float64),
			SMAShort:         vals[6].(float64),
			SMALong:          vals[7].(float64),
			PricePositionPct: vals[8].(float64),
			BandWidth:        vals[9].(float64),
			Timestamp:        time.Now(),
		}
	})
}

func TestProperty_ConfidenceWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("confidence is always within [0, 100]", prop.ForAll(
		func(snap *models.IndicatorSnapshot, bookScore, whaleScore float64) bool {
			e := NewEngine(1.2, zerolog.Nop())
			book := models.BookAnalysis{Score: bookScore, Imbalance: 1}
			whales := models.WhaleAnalysis{Score: whaleScore}

			result := e.Score(snap, book, whales, nil, time.Now())
			return result.Confidence >= 0 && result.Confidence <= 100
		},
		snapshotGen(),
		gen.Float64Range(-50, 50),
		gen.Float64Range(0, 30),
	))

	properties.TestingRun(t)
}
