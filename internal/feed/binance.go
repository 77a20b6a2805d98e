package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"binance-pulse/internal/config"
	apperrors "binance-pulse/internal/errors"
	"binance-pulse/internal/models"
	"binance-pulse/pkg/utils"
)

const (
	// Depth messages with fewer levels per side carry too little of the
	// book to analyze and are dropped.
	minDepthLevels = 10

	depthReadTimeout = 30 * time.Second
	subscribeBuffer  = 16
)

// BinanceFeed implements Feed against the Binance spot API.
type BinanceFeed struct {
	cfg    config.FeedConfig
	client *http.Client
	health *healthTracker
	logger zerolog.Logger
}

// NewBinanceFeed creates a feed client from the connectivity configuration.
func NewBinanceFeed(cfg config.FeedConfig, logger zerolog.Logger) *BinanceFeed {
	return &BinanceFeed{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		health: newHealthTracker(cfg.StableAfterTicks),
		logger: logger.With().Str("component", "feed").Logger(),
	}
}

// LatestCandles fetches the most recent candles over REST. The last
// element may still be forming; callers filter on Candle.Closed.
func (f *BinanceFeed) LatestCandles(ctx context.Context, instrument string, timeframe models.Timeframe, limit int) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", instrument)
	params.Set("interval", string(timeframe))
	params.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.cfg.RESTBaseURL, params.Encode())

	body, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() ([]byte, error) {
		return f.get(ctx, endpoint)
	})
	if err != nil {
		return nil, apperrors.NewFeedError("klines", instrument, "fetching candles", err)
	}

	// Kline rows mix raw numbers (timestamps) and quoted decimals (OHLCV).
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperrors.NewFeedError("klines", instrument, "parsing candles", err)
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		openMs, ok := k[0].(float64)
		if !ok {
			continue
		}
		candles = append(candles, models.Candle{
			OpenTime:  time.UnixMilli(int64(openMs)).UTC(),
			Open:      fieldFloat(k[1]),
			High:      fieldFloat(k[2]),
			Low:       fieldFloat(k[3]),
			Close:     fieldFloat(k[4]),
			Volume:    fieldFloat(k[5]),
			Timeframe: timeframe,
		})
	}
	return candles, nil
}

func (f *BinanceFeed) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	f.logger.Debug().
		Str("endpoint", req.URL.Path).
		Dur("duration", time.Since(start)).
		Int("status", resp.StatusCode).
		Msg("rest call")
	return body, err
}

// depthMessage is the partial book depth stream payload.
type depthMessage struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// Subscribe opens the depth stream for an instrument. Each message is a
// full snapshot that replaces the previous one; the stream reconnects with
// backoff and the channel closes only when the context ends.
func (f *BinanceFeed) Subscribe(ctx context.Context, instrument string) (<-chan models.OrderBookSnapshot, error) {
	if instrument == "" {
		return nil, apperrors.NewValidationError("instrument", instrument, "instrument must not be empty")
	}

	out := make(chan models.OrderBookSnapshot, subscribeBuffer)
	go f.stream(ctx, instrument, out)
	return out, nil
}

// Health returns the stream liveness for an instrument.
func (f *BinanceFeed) Health(instrument string) models.FeedHealth {
	return f.health.get(instrument)
}

func (f *BinanceFeed) stream(ctx context.Context, instrument string, out chan models.OrderBookSnapshot) {
	defer close(out)

	endpoint := fmt.Sprintf("%s/ws/%s@depth%d@100ms", f.cfg.WSBaseURL, strings.ToLower(instrument), f.cfg.DepthLevels)
	backoff := f.cfg.ReconnectBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
		if err != nil {
			attempts++
			if f.cfg.MaxReconnects > 0 && attempts > f.cfg.MaxReconnects {
				f.logger.Error().Err(err).Str("instrument", instrument).Msg("depth stream gave up reconnecting")
				return
			}
			f.logger.Warn().Err(err).
				Str("instrument", instrument).
				Dur("backoff", backoff).
				Msg("depth stream dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}

		f.logger.Info().Str("instrument", instrument).Msg("depth stream connected")
		attempts = 0
		backoff = f.cfg.ReconnectBackoff
		if backoff <= 0 {
			backoff = time.Second
		}

		f.readLoop(ctx, instrument, conn, out)
		conn.Close()
		f.health.reset(instrument)
	}
}

// readLoop consumes one connection until it fails or the context ends.
func (f *BinanceFeed) readLoop(ctx context.Context, instrument string, conn *websocket.Conn, out chan models.OrderBookSnapshot) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(depthReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				f.logger.Warn().Err(err).Str("instrument", instrument).Msg("depth stream read failed, reconnecting")
			}
			return
		}

		snapshot, ok := f.parseDepth(instrument, raw)
		if !ok {
			continue
		}
		f.health.tick(instrument, snapshot.ReceivedAt)

		sendLatest(out, snapshot)
	}
}

// sendLatest delivers a snapshot without blocking. When the receiver is
// behind, the oldest buffered snapshot is dropped so the channel always
// carries the freshest book.
func sendLatest(out chan models.OrderBookSnapshot, snapshot models.OrderBookSnapshot) {
	select {
	case out <- snapshot:
	default:
		select {
		case <-out:
		default:
		}
		select {
		case out <- snapshot:
		default:
		}
	}
}

// parseDepth converts one stream message into a snapshot. Malformed or
// shallow messages are dropped without surfacing an error.
func (f *BinanceFeed) parseDepth(instrument string, raw []byte) (models.OrderBookSnapshot, bool) {
	var msg depthMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		f.logger.Debug().Err(err).Str("instrument", instrument).Msg("dropping malformed depth message")
		return models.OrderBookSnapshot{}, false
	}

	bids, ok := parseLevels(msg.Bids)
	if !ok || len(bids) < minDepthLevels {
		return models.OrderBookSnapshot{}, false
	}
	asks, ok := parseLevels(msg.Asks)
	if !ok || len(asks) < minDepthLevels {
		return models.OrderBookSnapshot{}, false
	}

	return models.OrderBookSnapshot{
		Instrument: instrument,
		Bids:       bids,
		Asks:       asks,
		ReceivedAt: time.Now().UTC(),
	}, true
}

func parseLevels(raw [][]string) ([]models.PriceLevel, bool) {
	levels := make([]models.PriceLevel, 0, len(raw))
	for _, lv := range raw {
		if len(lv) < 2 {
			return nil, false
		}
		price, err := strconv.ParseFloat(lv[0], 64)
		if err != nil || price <= 0 {
			return nil, false
		}
		qty, err := strconv.ParseFloat(lv[1], 64)
		if err != nil || qty < 0 {
			return nil, false
		}
		levels = append(levels, models.PriceLevel{Price: price, Size: qty})
	}
	return levels, true
}

func fieldFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		return 0
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
