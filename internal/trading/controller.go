package trading

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"binance-pulse/internal/config"
	apperrors "binance-pulse/internal/errors"
	"binance-pulse/internal/logging"
	"binance-pulse/internal/market"
	"binance-pulse/internal/models"
	"binance-pulse/internal/orderbook"
	"binance-pulse/internal/scoring"
)

const (
	scanInterval          = 5 * time.Second
	candleRefreshInterval = 30 * time.Second
	monitorInterval       = time.Second
)

// MarketFeed is the slice of the exchange feed the controller consumes.
type MarketFeed interface {
	LatestCandles(ctx context.Context, instrument string, timeframe models.Timeframe, limit int) ([]models.Candle, error)
	Subscribe(ctx context.Context, instrument string) (<-chan models.OrderBookSnapshot, error)
	Health(instrument string) models.FeedHealth
}

// Recorder is the persistence surface the controller and its monitor use.
type Recorder interface {
	TradeRecorder
	SaveCandle(ctx context.Context, instrument string, candle models.Candle) error
}

// Controller owns the full decision loop for one instrument: it keeps the
// candle store fed, scores the market on a timer, and when an entry clears
// every gate it opens a trade and hands it to a lifecycle monitor. All
// state is written from the single Run goroutine; the read side is locked
// for the monitor's MarketView calls.
type Controller struct {
	instrument string
	timeframe  models.Timeframe
	cfg        *config.Config

	feed     MarketFeed
	store    *market.Store
	book     *orderbook.Analyzer
	engine   *scoring.Engine
	gate     *RiskGate
	targets  *TargetCalculator
	recorder Recorder
	notifier Notifier
	perf     *PerformanceTracker
	logger   zerolog.Logger

	mu       sync.RWMutex
	lastBook *models.OrderBookSnapshot
	lastSnap *models.IndicatorSnapshot
	monitor  *Monitor
}

// ControllerDeps bundles the shared collaborators a controller needs.
type ControllerDeps struct {
	Feed     MarketFeed
	Store    *market.Store
	Book     *orderbook.Analyzer
	Engine   *scoring.Engine
	Gate     *RiskGate
	Targets  *TargetCalculator
	Recorder Recorder
	Notifier Notifier
	Perf     *PerformanceTracker
}

// NewController creates the controller for one instrument.
func NewController(instrument string, cfg *config.Config, deps ControllerDeps, logger zerolog.Logger) *Controller {
	return &Controller{
		instrument: instrument,
		timeframe:  models.Timeframe(cfg.Engine.Timeframe),
		cfg:        cfg,
		feed:       deps.Feed,
		store:      deps.Store,
		book:       deps.Book,
		engine:     deps.Engine,
		gate:       deps.Gate,
		targets:    deps.Targets,
		recorder:   deps.Recorder,
		notifier:   deps.Notifier,
		perf:       deps.Perf,
		logger:     logging.WithInstrument(logger, instrument),
	}
}

// Run drives the controller until the context ends. It is the only writer
// of controller state.
func (c *Controller) Run(ctx context.Context) error {
	books, err := c.feed.Subscribe(ctx, c.instrument)
	if err != nil {
		return apperrors.Wrapf(err, "subscribing depth stream for %s", c.instrument)
	}

	if err := c.refreshCandles(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("initial candle backfill failed, retrying on timer")
	}

	candleTicker := time.NewTicker(candleRefreshInterval)
	defer candleTicker.Stop()
	scanTicker := time.NewTicker(scanInterval)
	defer scanTicker.Stop()

	c.logger.Info().Str("timeframe", string(c.timeframe)).Msg("controller started")

	for {
		select {
		case <-ctx.Done():
			c.stopMonitor()
			return ctx.Err()
		case book, ok := <-books:
			if !ok {
				c.stopMonitor()
				return apperrors.NewFeedError("depth", c.instrument, "depth stream closed", nil)
			}
			c.setBook(&book)
		case <-candleTicker.C:
			if err := c.refreshCandles(ctx); err != nil {
				c.logger.Warn().Err(err).Msg("candle refresh failed")
			}
		case now := <-scanTicker.C:
			c.scan(ctx, now)
		}
	}
}

// refreshCandles pulls the candle window over REST and upserts it into the
// store. The newest completed candle is also persisted, best effort.
func (c *Controller) refreshCandles(ctx context.Context) error {
	candles, err := c.feed.LatestCandles(ctx, c.instrument, c.timeframe, c.cfg.Engine.CandleWindow)
	if err != nil {
		return err
	}
	for _, candle := range candles {
		c.store.Update(candle)
	}

	now := time.Now()
	if completed := c.store.Completed(now); len(completed) > 0 {
		latest := completed[len(completed)-1]
		go func() {
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.recorder.SaveCandle(saveCtx, c.instrument, latest); err != nil {
				c.logger.Debug().Err(err).Msg("candle persist failed")
			}
		}()
	}
	return nil
}

// scan runs one entry evaluation. It exits early on the cheap checks and
// only scores the market once the feed and spread preconditions hold.
func (c *Controller) scan(ctx context.Context, now time.Time) {
	if c.activeMonitor() != nil {
		return
	}

	health := c.feed.Health(c.instrument)
	if !health.Fresh(now, c.cfg.Feed.StaleAfter) {
		c.logger.Debug().
			Bool("stable", health.Stable).
			Time("last_update", health.LastUpdate).
			Msg("feed not fresh, skipping scan")
		return
	}

	book := c.latestBook()
	if book == nil {
		return
	}
	if spread := book.Spread(); spread > c.cfg.Engine.MaxSpread {
		c.logger.Debug().Float64("spread", spread).Msg("spread too wide, skipping scan")
		return
	}

	snap, err := c.store.Snapshot(ctx, now)
	if err != nil {
		c.logger.Debug().Err(err).Msg("indicator snapshot unavailable")
		return
	}
	c.setSnap(snap)

	liquidity := c.book.AnalyzeLiquidity(book)
	whales := c.book.AnalyzeWhales(book, snap.Close, snap.AvgVolume, now)
	decision := c.engine.Score(snap, liquidity, whales, c.store.Completed(now), now)

	if decision.Confidence < c.cfg.Engine.MinConfidence {
		return
	}
	if snap.RSI > c.cfg.Engine.MaxRSIEntry {
		c.logger.Debug().Float64("rsi", snap.RSI).Msg("rsi above entry ceiling")
		return
	}

	if err := c.gate.Admit(c.instrument, now); err != nil {
		c.logger.Debug().Err(err).Msg("entry not admitted")
		return
	}

	entry := book.BestAsk()
	if entry <= 0 {
		return
	}

	targets, ok := c.targets.Calculate(entry, snap.ATR, decision.Confidence, liquidity.StrongWall)
	if !ok {
		c.logger.Debug().Float64("confidence", decision.Confidence).Msg("targets rejected")
		return
	}

	size, err := c.gate.Size(decision.Confidence, len(whales.Whales), liquidity.Imbalance, entry, targets.StopLoss)
	if err != nil {
		c.logger.Debug().Err(err).Msg("sizing rejected")
		return
	}

	c.open(ctx, &models.Opportunity{
		Instrument:        c.instrument,
		EntryPrice:        entry,
		Targets:           targets,
		Confidence:        decision.Confidence,
		Reasons:           decision.Reasons,
		Warnings:          decision.Warnings,
		Indicators:        snap,
		WallPrice:         wallPrice(liquidity.StrongWall),
		InitialWallVolume: wallNotional(liquidity.StrongWall),
		ImbalanceAtEntry:  liquidity.Imbalance,
		WhaleCount:        len(whales.Whales),
		Spread:            book.Spread(),
		FoundAt:           now,
	}, size)
}

// open creates the trade and starts its lifecycle monitor.
func (c *Controller) open(ctx context.Context, opp *models.Opportunity, size float64) {
	trade := &models.Trade{
		ID:                uuid.NewString(),
		Instrument:        opp.Instrument,
		EntryPrice:        opp.EntryPrice,
		EntryTime:         opp.FoundAt,
		Size:              size,
		Confidence:        opp.Confidence,
		Reasons:           opp.Reasons,
		StopLoss:          opp.Targets.StopLoss,
		TakeProfit:        opp.Targets.TakeProfit,
		CurrentStopLoss:   opp.Targets.StopLoss,
		HighestPrice:      opp.EntryPrice,
		ATR:               opp.Targets.ATR,
		WallPrice:         opp.WallPrice,
		InitialWallVolume: opp.InitialWallVolume,
		ImbalanceAtEntry:  opp.ImbalanceAtEntry,
		Status:            models.TradeActive,
	}
	trade.RecordStop(trade.StopLoss, opp.FoundAt, "initial")

	c.gate.Register(trade.Instrument, trade.ID)
	logging.LogEntry(c.logger, trade.Instrument, trade.EntryPrice, trade.Size, trade.Confidence)
	if c.notifier != nil {
		c.notifier.NotifyEntry(trade)
	}

	cfg := MonitorConfig{
		Interval:           monitorInterval,
		MaxHold:            c.cfg.Risk.MaxHold,
		TakerFee:           c.cfg.Risk.TakerFee,
		BreakevenProfitPct: c.cfg.Risk.BreakevenProfitPct,
		LockProfitPct:      c.cfg.Risk.LockProfitPct,
		ATRTrailProfitPct:  c.cfg.Risk.ATRTrailProfitPct,
		ATRTrailMultiplier: c.cfg.Risk.ATRTrailMultiplier,
	}
	monitor := NewMonitor(trade, c, c.recorder, c.notifier, cfg, c.logger, func(t *models.Trade) {
		c.gate.Release(t.Instrument, t.PnLUSD, t.ExitTime)
		c.perf.Record(*t)
		c.clearMonitor()
	})

	c.mu.Lock()
	c.monitor = monitor
	c.mu.Unlock()
	monitor.Start(ctx)
}

// LatestBook implements MarketView for the lifecycle monitor.
func (c *Controller) LatestBook(string) (*models.OrderBookSnapshot, bool) {
	book := c.latestBook()
	return book, book != nil
}

// LatestIndicators implements MarketView for the lifecycle monitor.
func (c *Controller) LatestIndicators(string) (*models.IndicatorSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSnap, c.lastSnap != nil
}

// ActiveTrade returns the currently monitored trade, if any.
func (c *Controller) ActiveTrade() *models.Trade {
	if m := c.activeMonitor(); m != nil {
		return m.Trade()
	}
	return nil
}

func (c *Controller) setBook(book *models.OrderBookSnapshot) {
	c.mu.Lock()
	c.lastBook = book
	c.mu.Unlock()
}

func (c *Controller) latestBook() *models.OrderBookSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastBook
}

func (c *Controller) setSnap(snap *models.IndicatorSnapshot) {
	c.mu.Lock()
	c.lastSnap = snap
	c.mu.Unlock()
}

func (c *Controller) activeMonitor() *Monitor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.monitor
}

func (c *Controller) clearMonitor() {
	c.mu.Lock()
	c.monitor = nil
	c.mu.Unlock()
}

func (c *Controller) stopMonitor() {
	if m := c.activeMonitor(); m != nil {
		m.Stop()
	}
}

func wallPrice(wall *models.WallCluster) float64 {
	if wall == nil {
		return 0
	}
	return wall.Price
}

func wallNotional(wall *models.WallCluster) float64 {
	if wall == nil {
		return 0
	}
	return wall.Notional
}
