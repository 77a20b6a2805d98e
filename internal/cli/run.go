package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"binance-pulse/internal/feed"
	"binance-pulse/internal/logging"
	"binance-pulse/internal/market"
	"binance-pulse/internal/models"
	"binance-pulse/internal/notify"
	"binance-pulse/internal/orderbook"
	"binance-pulse/internal/scoring"
	"binance-pulse/internal/trading"
)

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the signal engine",
		Long: `Run connects to the exchange, scores every configured instrument on a
timer, and manages any positions it opens until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable, cannot run without persistence")
			}
			return runEngine(app)
		},
	}
}

// runEngine wires the shared collaborators, starts one controller per
// instrument, and blocks until a shutdown signal arrives.
func runEngine(app *App) error {
	cfg := app.Config
	logger := app.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	binanceFeed := feed.NewBinanceFeed(cfg.Feed, logger)

	notifier := notify.NewMultiNotifier(cfg.Notifications, logger)
	notifier.AddChannel(notify.NewLogChannel(logger))

	gate := trading.NewRiskGate(
		cfg.Risk.Balance,
		cfg.Risk.MaxConcurrentTrades,
		cfg.Risk.Cooldown,
		cfg.Risk.DailyLossLimitPct,
		cfg.Risk.MaxDrawdownPct,
		logger,
	)
	targets := trading.NewTargetCalculator(cfg.Risk.MinRiskReward)
	perf := trading.NewPerformanceTracker()
	engine := scoring.NewEngine(cfg.Engine.MinVolumeRatio, logger)

	logger.Info().
		Strs("instruments", cfg.Engine.Instruments).
		Str("timeframe", cfg.Engine.Timeframe).
		Float64("balance", cfg.Risk.Balance).
		Msg("starting signal engine")

	var wg sync.WaitGroup
	for _, instrument := range cfg.Engine.Instruments {
		candleStore := market.NewStore(
			instrument,
			models.Timeframe(cfg.Engine.Timeframe),
			cfg.Engine.CandleWindow,
			cfg.Engine.MinCandles,
			app.Store,
			logger,
		)
		analyzer := orderbook.NewAnalyzer(instrument, cfg.Engine.WallThreshold(instrument), app.Store, logger)

		controller := trading.NewController(instrument, cfg, trading.ControllerDeps{
			Feed:     binanceFeed,
			Store:    candleStore,
			Book:     analyzer,
			Engine:   engine,
			Gate:     gate,
			Targets:  targets,
			Recorder: app.Store,
			Notifier: notifier,
			Perf:     perf,
		}, logger)

		wg.Add(1)
		go func(instrument string) {
			defer wg.Done()
			if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				instLogger := logging.WithInstrument(logger, instrument)
				instLogger.Error().Err(err).Msg("controller stopped")
			}
		}(instrument)
	}

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received, stopping controllers")
	wg.Wait()

	stats := perf.Stats()
	logger.Info().
		Int("trades", stats.TotalTrades).
		Float64("pnl_usd", stats.TotalPnLUSD).
		Float64("balance", gate.Balance()).
		Msg("signal engine stopped")

	return app.Store.Close()
}
