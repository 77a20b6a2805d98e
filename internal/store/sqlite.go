package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "binance-pulse/internal/errors"
	"binance-pulse/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "failed to initialize schema")
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		instrument TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		open_time DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(instrument, timeframe, open_time)
	);

	CREATE TABLE IF NOT EXISTS indicator_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		instrument TEXT NOT NULL,
		rsi REAL NOT NULL,
		rsi_smoothed REAL NOT NULL,
		atr REAL NOT NULL,
		volume_ratio REAL NOT NULL,
		sma_short REAL NOT NULL,
		sma_long REAL NOT NULL,
		close REAL NOT NULL,
		price_position_pct REAL NOT NULL,
		macd REAL NOT NULL,
		macd_signal REAL NOT NULL,
		band_width REAL NOT NULL,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_instrument_time
		ON indicator_snapshots(instrument, timestamp);

	CREATE TABLE IF NOT EXISTS whale_sightings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		instrument TEXT NOT NULL,
		count INTEGER NOT NULL,
		largest_value REAL NOT NULL,
		avg_value REAL NOT NULL,
		positions TEXT,
		power_score REAL NOT NULL,
		observed_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sightings_instrument_time
		ON whale_sightings(instrument, observed_at);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		instrument TEXT NOT NULL,
		entry_price REAL NOT NULL,
		entry_time DATETIME NOT NULL,
		size REAL NOT NULL,
		confidence REAL NOT NULL,
		reasons TEXT,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		final_stop_loss REAL NOT NULL,
		highest_price REAL NOT NULL,
		stop_history TEXT,
		atr REAL NOT NULL,
		wall_price REAL,
		imbalance_at_entry REAL,
		exit_price REAL NOT NULL,
		exit_time DATETIME NOT NULL,
		exit_reason TEXT NOT NULL,
		pnl_percent REAL NOT NULL,
		pnl_usd REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_instrument ON trades(instrument);
	CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveCandle upserts one candle keyed by instrument, timeframe and open time.
func (s *SQLiteStore) SaveCandle(ctx context.Context, instrument string, candle models.Candle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO candles (instrument, timeframe, open_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		instrument, string(candle.Timeframe), candle.OpenTime.UTC(),
		candle.Open, candle.High, candle.Low, candle.Close, candle.Volume)
	if err != nil {
		return apperrors.Wrap(err, "saving candle")
	}
	return nil
}

// SaveIndicatorSnapshot appends one derived indicator row.
func (s *SQLiteStore) SaveIndicatorSnapshot(ctx context.Context, snap models.IndicatorSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indicator_snapshots
			(instrument, rsi, rsi_smoothed, atr, volume_ratio, sma_short, sma_long,
			 close, price_position_pct, macd, macd_signal, band_width, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Instrument, snap.RSI, snap.RSISmoothed, snap.ATR, snap.VolumeRatio,
		snap.SMAShort, snap.SMALong, snap.Close, snap.PricePositionPct,
		snap.MACD, snap.MACDSignal, snap.BandWidth, snap.Timestamp.UTC())
	if err != nil {
		return apperrors.Wrap(err, "saving indicator snapshot")
	}
	return nil
}

// SaveWhaleSighting appends one whale observation.
func (s *SQLiteStore) SaveWhaleSighting(ctx context.Context, sighting models.WhaleSighting) error {
	positions, err := json.Marshal(sighting.Positions)
	if err != nil {
		return apperrors.Wrap(err, "encoding whale positions")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO whale_sightings (instrument, count, largest_value, avg_value, positions, power_score, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sighting.Instrument, sighting.Count, sighting.LargestValue, sighting.AvgValue,
		string(positions), sighting.PowerScore, sighting.ObservedAt.UTC())
	if err != nil {
		return apperrors.Wrap(err, "saving whale sighting")
	}
	return nil
}

// SaveClosedTrade persists a trade after its terminal transition.
func (s *SQLiteStore) SaveClosedTrade(ctx context.Context, trade models.Trade) error {
	if trade.Status != models.TradeClosed {
		return apperrors.NewValidationError("status", string(trade.Status), "only closed trades are persisted")
	}

	reasons, err := json.Marshal(trade.Reasons)
	if err != nil {
		return apperrors.Wrap(err, "encoding trade reasons")
	}
	history, err := json.Marshal(trade.StopHistory)
	if err != nil {
		return apperrors.Wrap(err, "encoding stop history")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trades
			(id, instrument, entry_price, entry_time, size, confidence, reasons,
			 stop_loss, take_profit, final_stop_loss, highest_price, stop_history, atr,
			 wall_price, imbalance_at_entry, exit_price, exit_time, exit_reason, pnl_percent, pnl_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.Instrument, trade.EntryPrice, trade.EntryTime.UTC(), trade.Size,
		trade.Confidence, string(reasons), trade.StopLoss, trade.TakeProfit,
		trade.CurrentStopLoss, trade.HighestPrice, string(history), trade.ATR,
		trade.WallPrice, trade.ImbalanceAtEntry, trade.ExitPrice, trade.ExitTime.UTC(),
		string(trade.ExitReason), trade.PnLPercent, trade.PnLUSD)
	if err != nil {
		return apperrors.Wrap(err, "saving closed trade")
	}
	return nil
}

// TradeStatistics aggregates closed trades, optionally for one instrument.
func (s *SQLiteStore) TradeStatistics(ctx context.Context, instrument string) (models.TradeStats, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pnl_usd > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN pnl_usd <= 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(pnl_percent), 0),
		       COALESCE(SUM(pnl_usd), 0),
		       COALESCE(AVG(confidence), 0),
		       COALESCE(AVG(strftime('%s', exit_time) - strftime('%s', entry_time)), 0)
		FROM trades`
	args := []interface{}{}
	if instrument != "" {
		query += " WHERE instrument = ?"
		args = append(args, instrument)
	}

	var stats models.TradeStats
	var avgSeconds float64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalTrades, &stats.WinningTrades, &stats.LosingTrades,
		&stats.AvgPnLPercent, &stats.TotalPnLUSD, &stats.AvgConfidence, &avgSeconds)
	if err != nil {
		return models.TradeStats{}, apperrors.Wrap(err, "querying trade statistics")
	}
	stats.AvgDuration = time.Duration(avgSeconds * float64(time.Second))
	return stats, nil
}

// RecentTrades returns the latest closed trades, newest first.
func (s *SQLiteStore) RecentTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instrument, entry_price, entry_time, size, confidence, reasons,
		       stop_loss, take_profit, final_stop_loss, highest_price, stop_history, atr,
		       wall_price, imbalance_at_entry, exit_price, exit_time, exit_reason, pnl_percent, pnl_usd
		FROM trades ORDER BY exit_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "querying recent trades")
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var reasons, history, exitReason string
		if err := rows.Scan(&t.ID, &t.Instrument, &t.EntryPrice, &t.EntryTime, &t.Size,
			&t.Confidence, &reasons, &t.StopLoss, &t.TakeProfit, &t.CurrentStopLoss,
			&t.HighestPrice, &history, &t.ATR, &t.WallPrice, &t.ImbalanceAtEntry,
			&t.ExitPrice, &t.ExitTime, &exitReason, &t.PnLPercent, &t.PnLUSD); err != nil {
			return nil, apperrors.Wrap(err, "scanning trade row")
		}
		t.Status = models.TradeClosed
		t.ExitReason = models.ExitReason(exitReason)
		if reasons != "" {
			json.Unmarshal([]byte(reasons), &t.Reasons)
		}
		if history != "" {
			json.Unmarshal([]byte(history), &t.StopHistory)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
