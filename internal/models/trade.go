package models

import "time"

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	TradeActive TradeStatus = "ACTIVE"
	TradeClosed TradeStatus = "CLOSED"
)

// ExitReason enumerates why a trade was closed. It replaces free-form reason
// strings so that categorisation never depends on substring matching.
type ExitReason string

const (
	ExitStopLoss          ExitReason = "STOP_LOSS_HIT"
	ExitTrailingProfit    ExitReason = "TRAILING_PROFIT_PROTECTION"
	ExitTakeProfit        ExitReason = "TAKE_PROFIT_REACHED"
	ExitConfirmedSpoofing ExitReason = "CONFIRMED_SPOOFING_EXIT"
	ExitMomentumReversal  ExitReason = "MOMENTUM_REVERSAL_EXIT"
	ExitTimeLimitProfit   ExitReason = "TIME_LIMIT_PROFIT"
	ExitTimeLimitLoss     ExitReason = "TIME_LIMIT_LOSS"
)

// ExitCategory groups exit reasons for reporting.
type ExitCategory string

const (
	ExitCategoryProfit     ExitCategory = "profit"
	ExitCategoryLoss       ExitCategory = "loss"
	ExitCategoryProtective ExitCategory = "protective"
	ExitCategoryTimeout    ExitCategory = "timeout"
)

// Category returns the reporting category for the reason.
func (r ExitReason) Category() ExitCategory {
	switch r {
	case ExitTakeProfit, ExitTrailingProfit, ExitTimeLimitProfit:
		return ExitCategoryProfit
	case ExitStopLoss, ExitTimeLimitLoss:
		return ExitCategoryLoss
	case ExitConfirmedSpoofing, ExitMomentumReversal:
		return ExitCategoryProtective
	default:
		return ExitCategoryTimeout
	}
}

// StopChange is one entry of a trade's append-only stop-loss audit trail.
type StopChange struct {
	Price  float64
	At     time.Time
	Reason string
}

// Trade is the only entity with a real lifecycle. It is created at entry,
// mutated only by the lifecycle monitor, and leaves the active set on the
// single ACTIVE→CLOSED transition.
type Trade struct {
	ID         string
	Instrument string
	EntryPrice float64
	EntryTime  time.Time
	Size       float64 // quote-currency notional
	Confidence float64
	Reasons    []string

	StopLoss        float64 // initial stop, immutable
	TakeProfit      float64
	CurrentStopLoss float64 // monotonically tightens once in profit-lock mode
	HighestPrice    float64
	StopHistory     []StopChange
	ATR             float64

	WallPrice         float64
	InitialWallVolume float64
	ImbalanceAtEntry  float64

	Status     TradeStatus
	ExitPrice  float64
	ExitTime   time.Time
	ExitReason ExitReason
	PnLPercent float64 // net of fees
	PnLUSD     float64
}

// Duration returns the holding time, using now while still active.
func (t *Trade) Duration(now time.Time) time.Duration {
	if t.Status == TradeClosed {
		return t.ExitTime.Sub(t.EntryTime)
	}
	return now.Sub(t.EntryTime)
}

// GrossProfitPct returns the unrealised move from entry, in percent.
func (t *Trade) GrossProfitPct(price float64) float64 {
	if t.EntryPrice <= 0 {
		return 0
	}
	return (price - t.EntryPrice) / t.EntryPrice * 100
}

// RecordStop appends a stop change and applies it.
func (t *Trade) RecordStop(price float64, at time.Time, reason string) {
	t.CurrentStopLoss = price
	t.StopHistory = append(t.StopHistory, StopChange{Price: price, At: at, Reason: reason})
}
