package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"binance-pulse/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "pulse_test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleClosedTrade(id string, pnlUSD float64) models.Trade {
	entry := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.Trade{
		ID:              id,
		Instrument:      "BTCUSDT",
		EntryPrice:      62000,
		EntryTime:       entry,
		Size:            500,
		Confidence:      88,
		Reasons:         []string{"price near range low", "bid imbalance 2.8"},
		StopLoss:        60760,
		TakeProfit:      65100,
		CurrentStopLoss: 62031,
		HighestPrice:    63500,
		StopHistory: []models.StopChange{
			{Price: 60760, At: entry, Reason: "initial"},
			{Price: 62031, At: entry.Add(time.Hour), Reason: "breakeven"},
		},
		ATR:              620,
		WallPrice:        61800,
		ImbalanceAtEntry: 2.8,
		Status:           models.TradeClosed,
		ExitPrice:        63400,
		ExitTime:         entry.Add(2 * time.Hour),
		ExitReason:       models.ExitTrailingProfit,
		PnLPercent:       2.06,
		PnLUSD:           pnlUSD,
	}
}

func TestSaveClosedTradeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleClosedTrade("trade-1", 10.3)
	if err := s.SaveClosedTrade(ctx, want); err != nil {
		t.Fatalf("SaveClosedTrade() error: %v", err)
	}

	trades, err := s.RecentTrades(ctx, 10)
	if err != nil {
		t.Fatalf("RecentTrades() error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}

	got := trades[0]
	if got.ID != want.ID || got.Instrument != want.Instrument {
		t.Errorf("identity = %s/%s, want %s/%s", got.ID, got.Instrument, want.ID, want.Instrument)
	}
	if got.ExitReason != models.ExitTrailingProfit {
		t.Errorf("ExitReason = %v, want %v", got.ExitReason, models.ExitTrailingProfit)
	}
	if len(got.Reasons) != 2 {
		t.Errorf("Reasons = %v, want 2 entries", got.Reasons)
	}
	if len(got.StopHistory) != 2 || got.StopHistory[1].Reason != "breakeven" {
		t.Errorf("StopHistory = %v", got.StopHistory)
	}
	if got.PnLUSD != want.PnLUSD {
		t.Errorf("PnLUSD = %v, want %v", got.PnLUSD, want.PnLUSD)
	}
}

func TestSaveClosedTradeRejectsActive(t *testing.T) {
	s := newTestStore(t)

	trade := sampleClosedTrade("trade-1", 10)
	trade.Status = models.TradeActive
	if err := s.SaveClosedTrade(context.Background(), trade); err == nil {
		t.Fatal("expected error for active trade")
	}
}

func TestTradeStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	win := sampleClosedTrade("trade-1", 50)
	loss := sampleClosedTrade("trade-2", -20)
	loss.PnLPercent = -2
	other := sampleClosedTrade("trade-3", 15)
	other.Instrument = "ETHUSDT"

	for _, trade := range []models.Trade{win, loss, other} {
		if err := s.SaveClosedTrade(ctx, trade); err != nil {
			t.Fatalf("SaveClosedTrade() error: %v", err)
		}
	}

	all, err := s.TradeStatistics(ctx, "")
	if err != nil {
		t.Fatalf("TradeStatistics() error: %v", err)
	}
	if all.TotalTrades != 3 || all.WinningTrades != 2 || all.LosingTrades != 1 {
		t.Errorf("all stats = %+v", all)
	}
	if math.Abs(all.TotalPnLUSD-45) > 1e-9 {
		t.Errorf("TotalPnLUSD = %v, want 45", all.TotalPnLUSD)
	}
	if all.AvgDuration != 2*time.Hour {
		t.Errorf("AvgDuration = %v, want 2h", all.AvgDuration)
	}

	btc, err := s.TradeStatistics(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("TradeStatistics(BTCUSDT) error: %v", err)
	}
	if btc.TotalTrades != 2 {
		t.Errorf("BTCUSDT TotalTrades = %d, want 2", btc.TotalTrades)
	}
}

func TestTradeStatisticsEmpty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.TradeStatistics(context.Background(), "")
	if err != nil {
		t.Fatalf("TradeStatistics() error: %v", err)
	}
	if stats.TotalTrades != 0 || stats.TotalPnLUSD != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
}

func TestSaveCandleUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	candle := models.Candle{
		OpenTime:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Open:      62000,
		High:      62100,
		Low:       61900,
		Close:     62050,
		Volume:    12.5,
		Timeframe: models.Timeframe1m,
	}
	if err := s.SaveCandle(ctx, "BTCUSDT", candle); err != nil {
		t.Fatalf("SaveCandle() error: %v", err)
	}

	// Same open time replaces the row instead of duplicating it.
	candle.Close = 62080
	if err := s.SaveCandle(ctx, "BTCUSDT", candle); err != nil {
		t.Fatalf("SaveCandle() second write error: %v", err)
	}

	var count int
	var closePrice float64
	err := s.db.QueryRow(`SELECT COUNT(*), MAX(close) FROM candles WHERE instrument = 'BTCUSDT'`).Scan(&count, &closePrice)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	if count != 1 {
		t.Errorf("candle rows = %d, want 1", count)
	}
	if closePrice != 62080 {
		t.Errorf("close = %v, want 62080", closePrice)
	}
}

func TestSaveWhaleSighting(t *testing.T) {
	s := newTestStore(t)

	sighting := models.WhaleSighting{
		Instrument:   "SOLUSDT",
		Count:        4,
		LargestValue: 310000,
		AvgValue:     140000,
		Positions:    []int{1, 3, 7, 12},
		PowerScore:   15,
		ObservedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.SaveWhaleSighting(context.Background(), sighting); err != nil {
		t.Fatalf("SaveWhaleSighting() error: %v", err)
	}

	var count int
	var positions string
	err := s.db.QueryRow(`SELECT count, positions FROM whale_sightings WHERE instrument = 'SOLUSDT'`).Scan(&count, &positions)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
	if positions != "[1,3,7,12]" {
		t.Errorf("positions = %q", positions)
	}
}

func TestSaveIndicatorSnapshot(t *testing.T) {
	s := newTestStore(t)

	snap := models.IndicatorSnapshot{
		Instrument:       "BTCUSDT",
		RSI:              52.3,
		RSISmoothed:      49.8,
		ATR:              620,
		VolumeRatio:      1.4,
		SMAShort:         61800,
		SMALong:          60500,
		Close:            62050,
		PricePositionPct: 34.2,
		MACD:             120.5,
		MACDSignal:       98.1,
		BandWidth:        0.015,
		Timestamp:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.SaveIndicatorSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("SaveIndicatorSnapshot() error: %v", err)
	}

	var rsi float64
	if err := s.db.QueryRow(`SELECT rsi FROM indicator_snapshots WHERE instrument = 'BTCUSDT'`).Scan(&rsi); err != nil {
		t.Fatalf("query error: %v", err)
	}
	if rsi != 52.3 {
		t.Errorf("rsi = %v, want 52.3", rsi)
	}
}
