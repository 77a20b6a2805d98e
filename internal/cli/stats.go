package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"binance-pulse/pkg/utils"
)

func newStatsCmd(app *App) *cobra.Command {
	var instrument string
	var limit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show trade statistics",
		Long:  "Show aggregate performance and recent closed trades from the local database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}
			output := NewOutput(cmd)

			stats, err := app.Store.TradeStatistics(cmd.Context(), instrument)
			if err != nil {
				return err
			}
			trades, err := app.Store.RecentTrades(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"stats":  stats,
					"trades": trades,
				})
			}

			if instrument != "" {
				output.Bold("Trade Statistics (%s)", instrument)
			} else {
				output.Bold("Trade Statistics")
			}
			output.Printf("  Total Trades:    %d\n", stats.TotalTrades)
			output.Printf("  Winning:         %d\n", stats.WinningTrades)
			output.Printf("  Losing:          %d\n", stats.LosingTrades)
			if stats.TotalTrades > 0 {
				winRate := float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
				output.Printf("  Win Rate:        %.1f%%\n", winRate)
			}
			output.Printf("  Total PnL:       %s\n", output.PnLString(stats.TotalPnLUSD, utils.FormatUSD(stats.TotalPnLUSD)))
			output.Printf("  Avg PnL:         %s\n", output.PnLString(stats.AvgPnLPercent, utils.FormatPercent(stats.AvgPnLPercent)))
			output.Printf("  Avg Confidence:  %.1f\n", stats.AvgConfidence)
			output.Printf("  Avg Duration:    %s\n", utils.FormatDuration(stats.AvgDuration))

			if len(trades) == 0 {
				return nil
			}

			output.Println()
			output.Bold("Recent Trades")
			for _, t := range trades {
				pnl := output.PnLString(t.PnLUSD, fmt.Sprintf("%s (%s)", utils.FormatUSD(t.PnLUSD), utils.FormatPercent(t.PnLPercent)))
				output.Printf("  %s  %-8s  %s  %s  %s\n",
					t.ExitTime.Format(time.DateTime),
					t.Instrument,
					pnl,
					utils.FormatDuration(t.Duration(t.ExitTime)),
					t.ExitReason,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&instrument, "instrument", "", "filter statistics by instrument")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of recent trades to show")
	return cmd
}
