// Package market maintains per-instrument rolling candle history and derives
// indicator snapshots from it.
package market

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"binance-pulse/internal/analysis/indicators"
	pulseerr "binance-pulse/internal/errors"
	"binance-pulse/internal/models"
)

// SnapshotWriter persists indicator snapshots. Persistence failures never
// block signal evaluation.
type SnapshotWriter interface {
	SaveIndicatorSnapshot(ctx context.Context, snap models.IndicatorSnapshot) error
}

const (
	rsiPeriod       = 14
	rsiSmoothPeriod = 20
	atrPeriod       = 14
	volumePeriod    = 20
	smaShortPeriod  = 50
	smaLongPeriod   = 200
	macdFast        = 12
	macdSlow        = 26
	macdSignal      = 9
	bbPeriod        = 20
)

// Store holds the rolling candle window for a single instrument and computes
// indicator snapshots over the completed portion of it.
type Store struct {
	instrument string
	timeframe  models.Timeframe
	window     int
	minCandles int

	engine      *indicators.Engine
	rsi         *indicators.RSI
	smoothedRSI *indicators.SmoothedRSI
	atr         *indicators.ATR
	volumeSMA   *indicators.VolumeSMA
	volumeRatio *indicators.VolumeRatio
	smaShort    *indicators.SMA
	smaLong     *indicators.SMA
	pricePos    *indicators.PricePosition
	macd        *indicators.MACD
	bollinger   *indicators.BollingerBands

	writer SnapshotWriter
	logger zerolog.Logger

	mu      sync.RWMutex
	candles []models.Candle
}

// NewStore creates a candle store for one instrument. window is the maximum
// number of candles retained, minCandles the number of completed candles
// required before snapshots are produced.
func NewStore(instrument string, timeframe models.Timeframe, window, minCandles int, writer SnapshotWriter, logger zerolog.Logger) *Store {
	s := &Store{
		instrument: instrument,
		timeframe:  timeframe,
		window:     window,
		minCandles: minCandles,
		engine:     indicators.NewEngine(4),
		writer:     writer,
		logger:     logger.With().Str("instrument", instrument).Logger(),
	}

	// Price position looks back over a day's worth of candles, but never
	// more than the guaranteed completed history.
	posPeriod := int(24 * time.Hour / timeframe.Duration())
	if posPeriod > minCandles {
		posPeriod = minCandles
	}

	s.rsi = indicators.NewRSI(rsiPeriod)
	s.smoothedRSI = indicators.NewSmoothedRSI(rsiPeriod, rsiSmoothPeriod)
	s.atr = indicators.NewATR(atrPeriod)
	s.volumeSMA = indicators.NewVolumeSMA(volumePeriod)
	s.volumeRatio = indicators.NewVolumeRatio(volumePeriod)
	s.smaShort = indicators.NewSMA(smaShortPeriod)
	s.smaLong = indicators.NewSMA(smaLongPeriod)
	s.pricePos = indicators.NewPricePosition(posPeriod)
	s.macd = indicators.NewMACD(macdFast, macdSlow, macdSignal)
	s.bollinger = indicators.NewBollingerBands(bbPeriod, 2.0)

	s.engine.RegisterIndicator(s.rsi)
	s.engine.RegisterIndicator(s.smoothedRSI)
	s.engine.RegisterIndicator(s.atr)
	s.engine.RegisterIndicator(s.volumeSMA)
	s.engine.RegisterIndicator(s.volumeRatio)
	s.engine.RegisterIndicator(s.smaShort)
	s.engine.RegisterIndicator(s.smaLong)
	s.engine.RegisterIndicator(s.pricePos)
	s.engine.RegisterMultiIndicator(s.macd)
	s.engine.RegisterMultiIndicator(s.bollinger)

	return s
}

// Instrument returns the instrument this store tracks.
func (s *Store) Instrument() string {
	return s.instrument
}

// Update upserts a candle keyed by its open time. An existing candle with
// the same open time is replaced in full, so repeated updates of the forming
// candle converge on its final values. The window is truncated to the newest
// entries after insertion.
func (s *Store) Update(c models.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.candles {
		if s.candles[i].OpenTime.Equal(c.OpenTime) {
			s.candles[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		s.candles = append(s.candles, c)
		sort.Slice(s.candles, func(i, j int) bool {
			return s.candles[i].OpenTime.Before(s.candles[j].OpenTime)
		})
	}

	if len(s.candles) > s.window {
		s.candles = s.candles[len(s.candles)-s.window:]
	}
}

// Len returns the number of candles currently held, including any forming one.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candles)
}

// Completed returns a copy of the completed candles as of now. A candle
// whose interval has not elapsed yet is still forming and excluded.
func (s *Store) Completed(now time.Time) []models.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Candle, 0, len(s.candles))
	for _, c := range s.candles {
		if c.Closed(now) {
			out = append(out, c)
		}
	}
	return out
}

// Snapshot computes the indicator snapshot over completed candles. It returns
// ErrInsufficientData until minCandles completed candles have accumulated.
// The snapshot is persisted asynchronously when a writer is configured.
func (s *Store) Snapshot(ctx context.Context, now time.Time) (*models.IndicatorSnapshot, error) {
	candles := s.Completed(now)
	if len(candles) < s.minCandles {
		return nil, pulseerr.ErrInsufficientData
	}

	single, multi, err := s.engine.CalculateAll(ctx, candles)
	if err != nil {
		return nil, err
	}

	n := len(candles)
	last := candles[n-1]
	prev := candles[n-2]

	snap := &models.IndicatorSnapshot{
		Instrument:       s.instrument,
		Close:            last.Close,
		PrevClose:        prev.Close,
		RSI:              lastValue(single[s.rsi.Name()]),
		PrevRSI:          prevValue(single[s.rsi.Name()]),
		RSISmoothed:      lastValue(single[s.smoothedRSI.Name()]),
		ATR:              lastValue(single[s.atr.Name()]),
		AvgVolume:        lastValue(single[s.volumeSMA.Name()]),
		VolumeRatio:      lastValue(single[s.volumeRatio.Name()]),
		SMAShort:         lastValue(single[s.smaShort.Name()]),
		SMALong:          lastValue(single[s.smaLong.Name()]),
		PricePositionPct: lastValue(single[s.pricePos.Name()]),
		Timestamp:        now,
	}

	if m, ok := multi[s.macd.Name()]; ok {
		snap.MACD = lastValue(m["macd"])
		snap.MACDSignal = lastValue(m["signal"])
	}
	if b, ok := multi[s.bollinger.Name()]; ok {
		snap.BandWidth = lastValue(b["bandwidth"])
	}

	if s.writer != nil {
		go s.persist(*snap)
	}

	return snap, nil
}

func (s *Store) persist(snap models.IndicatorSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writer.SaveIndicatorSnapshot(ctx, snap); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to persist indicator snapshot")
	}
}

func lastValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func prevValue(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return values[len(values)-2]
}
