package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"binance-pulse/internal/config"
	"binance-pulse/internal/logging"
	"binance-pulse/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dataStore, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, persistence disabled")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Storage.DatabasePath).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "Binance Pulse - real-time signal scoring and position lifecycle engine",
		Long: `Binance Pulse scores spot market conditions in real time and manages the
full lifecycle of the positions it opens.

It combines candle indicators, order book liquidity, and whale activity into
a single confidence score, sizes entries against a layered risk gate, and
trails every open position until one of its exit rules fires.

Use 'pulse help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/binance-pulse)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newStatsCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Binance Pulse v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Engine Configuration")
	output.Printf("  Instruments:     %v\n", cfg.Engine.Instruments)
	output.Printf("  Timeframe:       %s\n", cfg.Engine.Timeframe)
	output.Printf("  Candle Window:   %d\n", cfg.Engine.CandleWindow)
	output.Printf("  Min Confidence:  %.1f\n", cfg.Engine.MinConfidence)
	output.Printf("  Max RSI Entry:   %.1f\n", cfg.Engine.MaxRSIEntry)
	output.Printf("  Max Spread:      %.4f\n", cfg.Engine.MaxSpread)
	output.Println()

	output.Bold("Risk Configuration")
	output.Printf("  Balance:         %.2f\n", cfg.Risk.Balance)
	output.Printf("  Min Risk/Reward: %.1f\n", cfg.Risk.MinRiskReward)
	output.Printf("  Max Positions:   %d\n", cfg.Risk.MaxConcurrentTrades)
	output.Printf("  Cooldown:        %s\n", cfg.Risk.Cooldown)
	output.Printf("  Max Hold:        %s\n", cfg.Risk.MaxHold)
	output.Printf("  Daily Loss %%:    %.1f\n", cfg.Risk.DailyLossLimitPct)
	output.Printf("  Max Drawdown %%:  %.1f\n", cfg.Risk.MaxDrawdownPct)
	output.Println()

	output.Bold("Feed Configuration")
	output.Printf("  REST Base URL:   %s\n", cfg.Feed.RESTBaseURL)
	output.Printf("  WS Base URL:     %s\n", cfg.Feed.WSBaseURL)
	output.Printf("  Depth Levels:    %d\n", cfg.Feed.DepthLevels)
	output.Printf("  Stale After:     %s\n", cfg.Feed.StaleAfter)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:           %s\n", cfg.Notifications.Level)
	output.Printf("  Telegram:        %v\n", cfg.Notifications.Telegram.Enabled)
}
