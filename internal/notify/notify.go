// Package notify delivers trade event notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"binance-pulse/internal/config"
	"binance-pulse/internal/models"
	"binance-pulse/pkg/utils"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTrade NotificationType = "trade"
	NotificationError NotificationType = "error"
	NotificationInfo  NotificationType = "info"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// Notification is one deliverable message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Timestamp time.Time
}

// Channel is a single delivery backend.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// MultiNotifier fans notifications out to all enabled channels and
// implements the trading layer's entry/exit callbacks. Delivery failures
// are logged, never propagated into the trading path.
type MultiNotifier struct {
	mu       sync.RWMutex
	channels []Channel
	level    NotificationLevel
	logger   zerolog.Logger
}

// NewMultiNotifier builds a notifier from configuration.
func NewMultiNotifier(cfg config.NotificationConfig, logger zerolog.Logger) *MultiNotifier {
	mn := &MultiNotifier{
		level:  NotificationLevel(cfg.Level),
		logger: logger.With().Str("component", "notify").Logger(),
	}
	if mn.level == "" {
		mn.level = LevelAll
	}
	if cfg.Enabled && cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramNotifier(cfg.Telegram))
	}
	return mn
}

// AddChannel adds a delivery channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

func (mn *MultiNotifier) shouldSend(t NotificationType) bool {
	switch mn.level {
	case LevelTradesOnly:
		return t == NotificationTrade
	case LevelErrorsOnly:
		return t == NotificationError
	default:
		return true
	}
}

// Send delivers a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) {
	if !mn.shouldSend(n.Type) {
		return
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			mn.logger.Warn().Err(err).Str("channel", ch.Name()).Msg("notification delivery failed")
		}
	}
}

// NotifyEntry reports a newly opened position.
func (mn *MultiNotifier) NotifyEntry(trade *models.Trade) {
	mn.sendAsync(Notification{
		Type:  NotificationTrade,
		Title: fmt.Sprintf("Opened %s", trade.Instrument),
		Message: fmt.Sprintf("Entry %s, size %s, confidence %.0f\nStop %s, target %s",
			utils.FormatPrice(trade.EntryPrice), utils.FormatUSD(trade.Size), trade.Confidence,
			utils.FormatPrice(trade.StopLoss), utils.FormatPrice(trade.TakeProfit)),
	})
}

// NotifyExit reports a closed position.
func (mn *MultiNotifier) NotifyExit(trade *models.Trade) {
	mn.sendAsync(Notification{
		Type:  NotificationTrade,
		Title: fmt.Sprintf("Closed %s: %s", trade.Instrument, trade.ExitReason),
		Message: fmt.Sprintf("Exit %s after %s\nPnL %s (%s)",
			utils.FormatPrice(trade.ExitPrice), utils.FormatDuration(trade.ExitTime.Sub(trade.EntryTime)),
			utils.FormatUSD(trade.PnLUSD), utils.FormatPercent(trade.PnLPercent)),
	})
}

func (mn *MultiNotifier) sendAsync(n Notification) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mn.Send(ctx, n)
	}()
}

// TelegramNotifier sends notifications via a Telegram bot.
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
	baseURL  string
}

// NewTelegramNotifier creates a Telegram channel.
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  "https://api.telegram.org",
	}
}

// Name returns the channel name.
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// IsEnabled reports whether the channel can deliver.
func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

// Send delivers one message through the bot API.
func (t *TelegramNotifier) Send(ctx context.Context, n Notification) error {
	if !t.enabled {
		return nil
	}

	text := fmt.Sprintf("<b>%s</b>\n\n%s", escapeHTML(n.Title), escapeHTML(n.Message))
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// LogChannel writes notifications to the structured log. It is always
// enabled and serves as the fallback when no external channel is set up.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a log-backed channel.
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

// Name returns the channel name.
func (l *LogChannel) Name() string {
	return "log"
}

// IsEnabled always reports true.
func (l *LogChannel) IsEnabled() bool {
	return true
}

// Send writes the notification as a log line.
func (l *LogChannel) Send(_ context.Context, n Notification) error {
	l.logger.Info().
		Str("type", string(n.Type)).
		Str("title", n.Title).
		Msg(strings.ReplaceAll(n.Message, "\n", " | "))
	return nil
}
