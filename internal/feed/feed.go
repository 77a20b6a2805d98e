// Package feed connects to the exchange: candle history over REST and the
// partial depth stream over websocket.
package feed

import (
	"context"
	"sync"
	"time"

	"binance-pulse/internal/models"
)

// Feed is the exchange-facing surface the controllers consume.
type Feed interface {
	LatestCandles(ctx context.Context, instrument string, timeframe models.Timeframe, limit int) ([]models.Candle, error)
	Subscribe(ctx context.Context, instrument string) (<-chan models.OrderBookSnapshot, error)
	Health(instrument string) models.FeedHealth
}

// healthTracker keeps per-instrument stream liveness. A stream becomes
// stable after a fixed number of good ticks and loses stability on every
// reconnect.
type healthTracker struct {
	mu          sync.RWMutex
	stableAfter int
	byInstr     map[string]*models.FeedHealth
}

func newHealthTracker(stableAfter int) *healthTracker {
	if stableAfter <= 0 {
		stableAfter = 3
	}
	return &healthTracker{
		stableAfter: stableAfter,
		byInstr:     make(map[string]*models.FeedHealth),
	}
}

func (t *healthTracker) tick(instrument string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.byInstr[instrument]
	if !ok {
		h = &models.FeedHealth{}
		t.byInstr[instrument] = h
	}
	h.Ticks++
	h.LastUpdate = at
	if h.Ticks >= t.stableAfter {
		h.Stable = true
	}
}

func (t *healthTracker) reset(instrument string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.byInstr[instrument]; ok {
		h.Ticks = 0
		h.Stable = false
	}
}

func (t *healthTracker) get(instrument string) models.FeedHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if h, ok := t.byInstr[instrument]; ok {
		return *h
	}
	return models.FeedHealth{}
}
