// Package models provides domain models for the signal engine.
package models

import (
	"time"
)

// Timeframe represents a candle interval in Binance notation.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
)

// Duration returns the candle interval as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe1m:
		return time.Minute
	case Timeframe5m:
		return 5 * time.Minute
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe30m:
		return 30 * time.Minute
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	default:
		return 5 * time.Minute
	}
}

// Candle represents OHLCV data for one interval. A candle whose interval has
// not yet elapsed is "forming" and must be excluded from indicator math.
type Candle struct {
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timeframe Timeframe
}

// Closed reports whether the candle's interval has fully elapsed at t.
func (c Candle) Closed(t time.Time) bool {
	return !t.Before(c.OpenTime.Add(c.Timeframe.Duration()))
}

// PriceLevel is a single price+size entry in an order book.
type PriceLevel struct {
	Price float64
	Size  float64
}

// Notional returns price × size in quote currency.
func (l PriceLevel) Notional() float64 {
	return l.Price * l.Size
}

// OrderBookSnapshot is a full depth snapshot, replaced wholesale on each
// update. Bids are ordered by price descending, asks ascending.
type OrderBookSnapshot struct {
	Instrument string
	Bids       []PriceLevel
	Asks       []PriceLevel
	ReceivedAt time.Time
}

// BestBid returns the highest resting bid, or zero when the book is empty.
func (ob *OrderBookSnapshot) BestBid() float64 {
	if ob == nil || len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk returns the lowest resting ask, or zero when the book is empty.
func (ob *OrderBookSnapshot) BestAsk() float64 {
	if ob == nil || len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Spread returns the relative bid/ask spread, or zero when unavailable.
func (ob *OrderBookSnapshot) Spread() float64 {
	bid, ask := ob.BestBid(), ob.BestAsk()
	if bid <= 0 || ask <= 0 {
		return 0
	}
	return (ask - bid) / bid
}

// IndicatorSnapshot is the derived technical picture for one instrument,
// computed from completed candles only. Recomputed on every update, never
// mutated in place.
type IndicatorSnapshot struct {
	Instrument       string
	RSI              float64
	PrevRSI          float64
	RSISmoothed      float64 // SMA20 of the RSI series
	ATR              float64
	VolumeRatio      float64 // last completed volume / SMA20 of volume
	AvgVolume        float64
	SMAShort         float64 // SMA50
	SMALong          float64 // SMA200
	Close            float64
	PrevClose        float64
	PricePositionPct float64 // position of close within the trailing range, 0-100
	MACD             float64
	MACDSignal       float64
	BandWidth        float64 // Bollinger (upper-lower)/middle
	Timestamp        time.Time
}

// Volatility returns ATR relative to close.
func (s *IndicatorSnapshot) Volatility() float64 {
	if s.Close <= 0 {
		return 0
	}
	return s.ATR / s.Close
}

// FeedHealth is the liveness signal for one instrument's depth stream. The
// engine treats an unhealthy feed as a precondition failure that suppresses
// entries; it never drives reconnects itself.
type FeedHealth struct {
	Stable     bool
	Ticks      int
	LastUpdate time.Time
}

// Fresh reports whether the stream is stable and updated within maxAge.
func (h FeedHealth) Fresh(now time.Time, maxAge time.Duration) bool {
	return h.Stable && now.Sub(h.LastUpdate) <= maxAge
}

// TradeStats is the aggregate view over recorded closed trades.
type TradeStats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	AvgPnLPercent float64
	TotalPnLUSD   float64
	AvgConfidence float64
	AvgDuration   time.Duration
}
