package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Binance Pulse Configuration

[engine]
# Instruments to monitor
instruments = ["BTCUSDT", "ETHUSDT", "SOLUSDT"]
# Candle timeframe
timeframe = "1m"
# Rolling candle window size
candle_window = 300
# Minimum completed candles before signals are produced
min_candles = 220
# Minimum confidence score (0-100) to open a position
min_confidence = 83.0
# Reject entries when RSI exceeds this value
max_rsi_entry = 68.0
# Minimum volume ratio vs 20-period average
min_volume_ratio = 1.2
# Maximum relative bid/ask spread at entry
max_spread = 0.0012
# Default order book wall threshold in USD
wall_threshold_default = 100000.0

[engine.wall_thresholds]
BTCUSDT = 1500000.0
ETHUSDT = 700000.0
SOLUSDT = 250000.0

[risk]
# Account balance in USD used for sizing
balance = 1000.0
# Minimum risk-reward ratio for valid targets
min_risk_reward = 1.3
# Maximum concurrent open positions
max_concurrent_trades = 2
# Cooldown per instrument after an exit
cooldown = "10m"
# Maximum holding time before forced exit
max_hold = "4h"
# Daily loss circuit breaker, percent of reference balance
daily_loss_limit_pct = 10.0
# Drawdown circuit breaker, percent from peak balance
max_drawdown_pct = 15.0
# Taker fee per side
taker_fee = 0.001
# Trailing stop stages (net profit percentages)
breakeven_profit_pct = 0.3
lock_profit_pct = 2.5
atr_trail_profit_pct = 5.0
atr_trail_multiplier = 2.0

[feed]
rest_base_url = "https://api.binance.com"
ws_base_url = "wss://stream.binance.com:9443/ws"
depth_levels = 20
# Snapshot older than this marks the feed unhealthy
stale_after = "2s"
# Ticks required before the feed is considered stable
stable_after_ticks = 3
reconnect_backoff = "1s"
# 0 means retry forever
max_reconnects = 0

[storage]
# Defaults to <config dir>/pulse.db when unset
# database_path = "/path/to/pulse.db"

[notifications]
enabled = false
# Notification level: all, trades_only, errors_only
level = "trades_only"

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[logging]
level = "info"
console = true
file = true
# Defaults to <config dir>/logs/pulse.log when unset
# file_path = "/path/to/pulse.log"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}
