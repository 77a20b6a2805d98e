package trading

import (
	"sync"
	"time"

	"binance-pulse/internal/models"
)

// PerformanceTracker aggregates closed trades for the current session.
// Persistent history lives in the store; this is the in-memory view the
// controller reports from.
type PerformanceTracker struct {
	mu sync.RWMutex

	trades        []models.Trade
	byCategory    map[models.ExitCategory]int
	totalPnLUSD   float64
	totalDuration time.Duration
}

// NewPerformanceTracker creates an empty tracker.
func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{
		byCategory: make(map[models.ExitCategory]int),
	}
}

// Record folds a closed trade into the session aggregates. Trades still
// active are ignored.
func (p *PerformanceTracker) Record(trade models.Trade) {
	if trade.Status != models.TradeClosed {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.trades = append(p.trades, trade)
	p.byCategory[trade.ExitReason.Category()]++
	p.totalPnLUSD += trade.PnLUSD
	p.totalDuration += trade.ExitTime.Sub(trade.EntryTime)
}

// Stats returns the aggregate view over all recorded trades.
func (p *PerformanceTracker) Stats() models.TradeStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := models.TradeStats{TotalTrades: len(p.trades)}
	if len(p.trades) == 0 {
		return stats
	}

	var pnlPctSum, confSum float64
	for _, t := range p.trades {
		if t.PnLUSD > 0 {
			stats.WinningTrades++
		} else {
			stats.LosingTrades++
		}
		pnlPctSum += t.PnLPercent
		confSum += t.Confidence
	}

	n := float64(len(p.trades))
	stats.AvgPnLPercent = pnlPctSum / n
	stats.TotalPnLUSD = p.totalPnLUSD
	stats.AvgConfidence = confSum / n
	stats.AvgDuration = p.totalDuration / time.Duration(len(p.trades))
	return stats
}

// CategoryCounts returns exit counts grouped by reporting category.
func (p *PerformanceTracker) CategoryCounts() map[models.ExitCategory]int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[models.ExitCategory]int, len(p.byCategory))
	for k, v := range p.byCategory {
		out[k] = v
	}
	return out
}
