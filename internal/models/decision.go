package models

import "time"

// MarketRegime is a coarse market-state classification used to modulate
// scoring.
type MarketRegime string

const (
	RegimeRange          MarketRegime = "RANGE"
	RegimeUptrend        MarketRegime = "UPTREND"
	RegimeDowntrend      MarketRegime = "DOWNTREND"
	RegimeHighVolatility MarketRegime = "HIGH_VOLATILITY"
	RegimeTransition     MarketRegime = "TRANSITION"
)

// WallCluster is a price-adjacent group of resting bid orders whose combined
// notional exceeds the instrument-scaled wall threshold. A nil *WallCluster
// means no wall was found.
type WallCluster struct {
	Price    float64
	Notional float64
	Levels   int
}

// BookAnalysis is the liquidity sub-score for one depth snapshot.
type BookAnalysis struct {
	Score      float64
	Imbalance  float64 // bid notional / ask notional over the top 15 levels
	Reasons    []string
	Warnings   []string
	StrongWall *WallCluster
}

// Whale is a single resting order whose notional exceeds the dynamic
// threshold. Position is the 1-based depth rank of the level.
type Whale struct {
	Value    float64
	Position int
}

// WhaleAnalysis is the whale-pressure sub-score for one depth snapshot.
type WhaleAnalysis struct {
	Score     float64
	Whales    []Whale
	Threshold float64
	Reasons   []string
}

// Sighting converts the analysis into its observational record.
func (wa *WhaleAnalysis) Sighting(instrument string, at time.Time) *WhaleSighting {
	s := &WhaleSighting{
		Instrument: instrument,
		Count:      len(wa.Whales),
		PowerScore: wa.Score,
		ObservedAt: at,
	}
	var sum float64
	for _, w := range wa.Whales {
		if w.Value > s.LargestValue {
			s.LargestValue = w.Value
		}
		sum += w.Value
		s.Positions = append(s.Positions, w.Position)
	}
	if s.Count > 0 {
		s.AvgValue = sum / float64(s.Count)
	}
	return s
}

// WhaleSighting is an observation of whale activity, recorded best-effort.
type WhaleSighting struct {
	Instrument   string
	Count        int
	LargestValue float64
	AvgValue     float64
	Positions    []int
	PowerScore   float64
	ObservedAt   time.Time
}

// DecisionResult is the fused output of one scoring tick. It is pure output:
// recomputed each tick and never persisted as mutable state.
type DecisionResult struct {
	Instrument string
	Confidence float64 // clamped to [0,100]
	Reasons    []string
	Warnings   []string
	Regime     MarketRegime
	Indicators *IndicatorSnapshot
	Book       *BookAnalysis
	Whales     *WhaleAnalysis
	ScoredAt   time.Time
}

// Opportunity is an admitted entry candidate: a decision that cleared the
// confidence bar, the risk gate and the target calculator.
type Opportunity struct {
	Instrument        string
	EntryPrice        float64
	Targets           Targets
	Confidence        float64
	Reasons           []string
	Warnings          []string
	Indicators        *IndicatorSnapshot
	WallPrice         float64 // 0 when no supporting wall was present
	InitialWallVolume float64
	ImbalanceAtEntry  float64
	WhaleCount        int
	Spread            float64
	FoundAt           time.Time
}

// Targets is the stop-loss/take-profit pair computed once at entry.
type Targets struct {
	StopLoss         float64
	TakeProfit       float64
	RiskReward       float64
	ATR              float64
	StopMultiplier   float64
	ProfitMultiplier float64
}
