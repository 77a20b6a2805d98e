// Package orderbook scores order book snapshots for liquidity support,
// bid walls, and large resting orders.
package orderbook

import (
	"fmt"

	"github.com/rs/zerolog"

	"binance-pulse/internal/models"
)

const (
	// minLevels is the minimum depth per side for a meaningful analysis.
	minLevels = 15

	// Imbalance bands. Moderate bid dominance scores full points; an
	// extreme ratio is more likely spoofing than genuine support and is
	// scored near neutral.
	imbalanceStrong     = 2.5
	imbalanceSuspicious = 8.0
	imbalanceSellHeavy  = 0.4

	scoreImbalanceStrong     = 20.0
	scoreImbalanceSuspicious = 5.0
	scoreSellPressure        = -30.0

	// Wall detection over the top bid levels. A level at 70% of the
	// instrument threshold seeds a cluster; adjacent levels within 0.1%
	// of the seed price merge into it.
	wallScanLevels    = 10
	wallSeedFraction  = 0.7
	wallClusterWindow = 0.001
)

// Analyzer scores order book snapshots for a single instrument. Analysis is
// a pure function of the snapshot, so re-running it on the same snapshot
// yields the same result.
type Analyzer struct {
	instrument    string
	wallThreshold float64
	recorder      SightingRecorder
	logger        zerolog.Logger
}

// NewAnalyzer creates an order book analyzer. wallThreshold is the
// quote-currency notional above which a bid cluster counts as a wall.
// recorder may be nil.
func NewAnalyzer(instrument string, wallThreshold float64, recorder SightingRecorder, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		instrument:    instrument,
		wallThreshold: wallThreshold,
		recorder:      recorder,
		logger:        logger.With().Str("instrument", instrument).Logger(),
	}
}

// WallThreshold returns the configured wall notional threshold.
func (a *Analyzer) WallThreshold() float64 {
	return a.wallThreshold
}

// AnalyzeLiquidity scores bid/ask balance and detects the strongest bid
// wall. A book with too few levels per side scores neutral rather than
// producing a judgment from thin data.
func (a *Analyzer) AnalyzeLiquidity(book *models.OrderBookSnapshot) models.BookAnalysis {
	result := models.BookAnalysis{Imbalance: 1.0}

	if book == nil || len(book.Bids) < minLevels || len(book.Asks) < minLevels {
		result.Warnings = append(result.Warnings, "order book too shallow for liquidity analysis")
		return result
	}

	// Imbalance reads only the top levels per side; deep resting
	// liquidity far from the touch does not move the ratio.
	var bidNotional, askNotional float64
	for _, l := range book.Bids[:minLevels] {
		bidNotional += l.Notional()
	}
	for _, l := range book.Asks[:minLevels] {
		askNotional += l.Notional()
	}

	if askNotional <= 0 {
		result.Warnings = append(result.Warnings, "empty ask side")
		return result
	}
	result.Imbalance = bidNotional / askNotional

	switch {
	case result.Imbalance > imbalanceSuspicious:
		result.Score += scoreImbalanceSuspicious
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("extreme bid imbalance %.1fx, possible spoofing", result.Imbalance))
	case result.Imbalance > imbalanceStrong:
		result.Score += scoreImbalanceStrong
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("strong bid support %.1fx ask liquidity", result.Imbalance))
	case result.Imbalance < imbalanceSellHeavy:
		result.Score += scoreSellPressure
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("heavy sell pressure, imbalance %.2f", result.Imbalance))
	}

	if wall := a.findStrongWall(book.Bids); wall != nil {
		result.StrongWall = wall
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("bid wall $%.0f at %.2f", wall.Notional, wall.Price))
	}

	return result
}

// findStrongWall scans the top bid levels for clusters of resting liquidity.
// Levels within wallClusterWindow of a seed price merge into one cluster.
// The highest-notional cluster above the instrument threshold is returned,
// or nil when none qualifies.
func (a *Analyzer) findStrongWall(bids []models.PriceLevel) *models.WallCluster {
	scan := bids
	if len(scan) > wallScanLevels {
		scan = scan[:wallScanLevels]
	}

	var best *models.WallCluster
	used := make([]bool, len(scan))

	for i, seed := range scan {
		if used[i] {
			continue
		}
		if seed.Notional() < a.wallThreshold*wallSeedFraction {
			continue
		}

		cluster := models.WallCluster{
			Price:    seed.Price,
			Notional: seed.Notional(),
			Levels:   1,
		}
		used[i] = true

		for j := i + 1; j < len(scan); j++ {
			if used[j] {
				continue
			}
			rel := (seed.Price - scan[j].Price) / seed.Price
			if rel < 0 {
				rel = -rel
			}
			if rel <= wallClusterWindow {
				cluster.Notional += scan[j].Notional()
				cluster.Levels++
				used[j] = true
			}
		}

		if cluster.Notional > a.wallThreshold {
			if best == nil || cluster.Notional > best.Notional {
				c := cluster
				best = &c
			}
		}
	}

	return best
}
