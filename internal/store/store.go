// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"binance-pulse/internal/models"
)

// DataStore defines the persistence surface of the engine. All writes are
// best effort: callers log failures and keep trading.
type DataStore interface {
	SaveCandle(ctx context.Context, instrument string, candle models.Candle) error
	SaveIndicatorSnapshot(ctx context.Context, snap models.IndicatorSnapshot) error
	SaveWhaleSighting(ctx context.Context, sighting models.WhaleSighting) error
	SaveClosedTrade(ctx context.Context, trade models.Trade) error

	TradeStatistics(ctx context.Context, instrument string) (models.TradeStats, error)
	RecentTrades(ctx context.Context, limit int) ([]models.Trade, error)

	Close() error
}
