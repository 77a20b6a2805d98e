package trading

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"binance-pulse/internal/logging"
	"binance-pulse/internal/models"
)

const (
	// Spoofing confirmation: the entry wall evaporated shortly after the
	// fill while price and flow turned against the position.
	spoofWallRemnantFraction = 0.10
	spoofWindow              = 30 * time.Second
	spoofPriceFraction       = 0.997
	spoofImbalanceMax        = 0.6

	// Take-profit extension when the book is still heavily bid.
	extendImbalanceMin = 3.5
	extendStopFraction = 0.994
	extendTPFraction   = 1.012

	// Momentum reversal exit, only taken while in net profit.
	reversalImbalanceMax    = 0.6
	reversalMinNetProfitPct = 0.5

	// Trailing stop placement per stage.
	breakevenStopFraction = 1.0005
	lockStopFraction      = 1.01

	// Window used to read the entry wall's remaining notional off the book.
	wallReadWindow = 0.001

	// Depth window for the imbalance ratio, per side.
	imbalanceDepthLevels = 15
)

// MarketView supplies the freshest market state for a monitored instrument.
type MarketView interface {
	LatestBook(instrument string) (*models.OrderBookSnapshot, bool)
	LatestIndicators(instrument string) (*models.IndicatorSnapshot, bool)
}

// TradeRecorder persists closed trades. Writes are best effort.
type TradeRecorder interface {
	SaveClosedTrade(ctx context.Context, trade models.Trade) error
}

// Notifier delivers trade event notifications.
type Notifier interface {
	NotifyEntry(trade *models.Trade)
	NotifyExit(trade *models.Trade)
}

// MonitorConfig carries the lifecycle parameters shared by all monitors.
type MonitorConfig struct {
	Interval           time.Duration
	MaxHold            time.Duration
	TakerFee           float64
	BreakevenProfitPct float64
	LockProfitPct      float64
	ATRTrailProfitPct  float64
	ATRTrailMultiplier float64
}

// Monitor drives one active trade from entry to its terminal CLOSED state.
// It ticks on a timer, trails the stop through the profit stages, and
// closes the trade on the first matching exit condition.
type Monitor struct {
	mu    sync.Mutex
	trade *models.Trade

	view     MarketView
	recorder TradeRecorder
	notifier Notifier
	cfg      MonitorConfig
	onClose  func(trade *models.Trade)
	logger   zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a monitor for an active trade. onClose runs exactly
// once, after the trade has transitioned to CLOSED.
func NewMonitor(trade *models.Trade, view MarketView, recorder TradeRecorder, notifier Notifier, cfg MonitorConfig, logger zerolog.Logger, onClose func(trade *models.Trade)) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Monitor{
		trade:    trade,
		view:     view,
		recorder: recorder,
		notifier: notifier,
		cfg:      cfg,
		onClose:  onClose,
		logger:   logging.WithTradeID(logging.WithInstrument(logger, trade.Instrument), trade.ID),
		done:     make(chan struct{}),
	}
}

// Start launches the monitor loop. It returns immediately; the loop stops
// when the trade closes, Stop is called, or the parent context ends.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.run(ctx)
}

// Stop cancels the monitor loop and waits for it to drain. A trade still
// active at this point stays active; it is not force-closed.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	<-m.done
}

// Done is closed when the monitor loop has exited.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			book, ok := m.view.LatestBook(m.trade.Instrument)
			if !ok || len(book.Bids) == 0 {
				continue
			}
			snap, ok := m.view.LatestIndicators(m.trade.Instrument)
			if !ok {
				continue
			}
			if m.Tick(now, book, snap) {
				return
			}
		}
	}
}

// Tick runs one evaluation pass against the given market state and
// reports whether the trade closed. It is exported so the exit logic can
// be driven deterministically in tests.
func (m *Monitor) Tick(now time.Time, book *models.OrderBookSnapshot, snap *models.IndicatorSnapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.trade
	if t.Status != models.TradeActive {
		return true
	}

	price := book.BestBid()
	if price <= 0 {
		return false
	}
	if price > t.HighestPrice {
		t.HighestPrice = price
	}

	netProfitPct := t.GrossProfitPct(price) - 2*m.cfg.TakerFee*100
	imbalance := bookImbalance(book)

	m.trailStop(price, netProfitPct, now)

	if reason, ok := m.exitReason(t, now, price, netProfitPct, imbalance, book, snap); ok {
		m.closeLocked(reason, price, now)
		return true
	}
	return false
}

// trailStop tightens the stop through the profit stages. The stop never
// loosens: each stage only applies when its level is above the current one.
func (m *Monitor) trailStop(price, netProfitPct float64, now time.Time) {
	t := m.trade

	var target float64
	var reason string
	switch {
	case netProfitPct >= m.cfg.ATRTrailProfitPct:
		target = price - t.ATR*m.cfg.ATRTrailMultiplier
		reason = "atr_trail"
	case netProfitPct >= m.cfg.LockProfitPct:
		target = t.EntryPrice * lockStopFraction
		reason = "profit_lock"
	case netProfitPct >= m.cfg.BreakevenProfitPct:
		target = t.EntryPrice * breakevenStopFraction
		reason = "breakeven"
	default:
		return
	}

	if target <= t.CurrentStopLoss {
		return
	}
	from := t.CurrentStopLoss
	t.RecordStop(target, now, reason)
	logging.LogStopMove(m.logger, t.ID, from, target, reason)
}

// exitReason evaluates the exit conditions in priority order.
func (m *Monitor) exitReason(t *models.Trade, now time.Time, price, netProfitPct, imbalance float64, book *models.OrderBookSnapshot, snap *models.IndicatorSnapshot) (models.ExitReason, bool) {
	// Entry wall pulled right after the fill, with price rolling over and
	// the book flipping sell-heavy.
	if t.WallPrice > 0 && t.InitialWallVolume > 0 && now.Sub(t.EntryTime) <= spoofWindow {
		remnant := wallNotionalNear(book, t.WallPrice)
		if remnant < t.InitialWallVolume*spoofWallRemnantFraction &&
			price <= t.EntryPrice*spoofPriceFraction &&
			imbalance < spoofImbalanceMax {
			return models.ExitConfirmedSpoofing, true
		}
	}

	if price <= t.CurrentStopLoss {
		if t.CurrentStopLoss > t.EntryPrice {
			return models.ExitTrailingProfit, true
		}
		return models.ExitStopLoss, true
	}

	if price >= t.TakeProfit {
		if imbalance > extendImbalanceMin {
			from := t.CurrentStopLoss
			t.RecordStop(price*extendStopFraction, now, "tp_extension")
			t.TakeProfit = price * extendTPFraction
			logging.LogStopMove(m.logger, t.ID, from, t.CurrentStopLoss, "tp_extension")
			m.logger.Info().
				Float64("take_profit", t.TakeProfit).
				Float64("imbalance", imbalance).
				Msg("Take-profit extended on strong bid pressure")
			return "", false
		}
		return models.ExitTakeProfit, true
	}

	if netProfitPct >= reversalMinNetProfitPct &&
		(snap.MACD < snap.MACDSignal || imbalance < reversalImbalanceMax) {
		return models.ExitMomentumReversal, true
	}

	if t.Duration(now) > m.cfg.MaxHold {
		if netProfitPct > 0 {
			return models.ExitTimeLimitProfit, true
		}
		return models.ExitTimeLimitLoss, true
	}

	return "", false
}

// closeLocked performs the single ACTIVE to CLOSED transition. The caller
// holds the mutex.
func (m *Monitor) closeLocked(reason models.ExitReason, price float64, now time.Time) {
	t := m.trade
	t.Status = models.TradeClosed
	t.ExitPrice = price
	t.ExitTime = now
	t.ExitReason = reason
	t.PnLPercent = t.GrossProfitPct(price) - 2*m.cfg.TakerFee*100
	t.PnLUSD = t.Size * t.PnLPercent / 100

	logging.LogExit(m.logger, t.Instrument, string(reason), price, t.PnLPercent, t.PnLUSD)

	closed := *t
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.recorder.SaveClosedTrade(ctx, closed); err != nil {
			m.logger.Warn().Err(err).Msg("failed to persist closed trade")
		}
	}()
	if m.notifier != nil {
		m.notifier.NotifyExit(t)
	}
	if m.onClose != nil {
		m.onClose(t)
	}
	if m.cancel != nil {
		m.cancel()
	}
}

// Trade returns the monitored trade. The pointer is shared with the
// monitor; callers should treat it as read-only while the trade is active.
func (m *Monitor) Trade() *models.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trade
}

// bookImbalance is bid notional over ask notional across the top
// imbalanceDepthLevels per side, the same window the entry analyzer reads.
func bookImbalance(book *models.OrderBookSnapshot) float64 {
	var bids, asks float64
	for _, l := range topLevels(book.Bids) {
		bids += l.Notional()
	}
	for _, l := range topLevels(book.Asks) {
		asks += l.Notional()
	}
	if asks == 0 {
		return 1
	}
	return bids / asks
}

func topLevels(levels []models.PriceLevel) []models.PriceLevel {
	if len(levels) > imbalanceDepthLevels {
		return levels[:imbalanceDepthLevels]
	}
	return levels
}

// wallNotionalNear sums bid notional within the cluster window around the
// recorded wall price.
func wallNotionalNear(book *models.OrderBookSnapshot, wallPrice float64) float64 {
	if wallPrice <= 0 {
		return 0
	}
	var total float64
	for _, l := range book.Bids {
		diff := l.Price - wallPrice
		if diff < 0 {
			diff = -diff
		}
		if diff/wallPrice <= wallReadWindow {
			total += l.Notional()
		}
	}
	return total
}
