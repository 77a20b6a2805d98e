package orderbook

import (
	"context"
	"fmt"
	"time"

	"binance-pulse/internal/models"
)

const (
	// Whale threshold scales with recent turnover: 0.1% of a candle's
	// average notional volume, clamped to a sane absolute range.
	whaleVolumeFraction   = 0.001
	whaleThresholdFloor   = 20_000.0
	whaleCeilingFraction  = 0.02
	whaleScanLevels       = 20
	whaleFrontLevels      = 3
	whaleCountStrong      = 10
	scoreWhalesStrong     = 20.0
	scorePerWhale         = 2.5
	scoreFrontOfBookBonus = 5.0
)

// SightingRecorder persists whale sightings. Recording is fire-and-forget
// and never blocks analysis.
type SightingRecorder interface {
	SaveWhaleSighting(ctx context.Context, sighting models.WhaleSighting) error
}

// AnalyzeWhales scans the top bid levels for orders large enough to move
// the market. close and avgVolume come from the latest indicator snapshot
// and scale the notional threshold to the instrument's recent turnover.
func (a *Analyzer) AnalyzeWhales(book *models.OrderBookSnapshot, close, avgVolume float64, now time.Time) models.WhaleAnalysis {
	result := models.WhaleAnalysis{}

	if book == nil || len(book.Bids) == 0 || close <= 0 || avgVolume <= 0 {
		return result
	}

	turnover := close * avgVolume
	threshold := turnover * whaleVolumeFraction
	if threshold < whaleThresholdFloor {
		threshold = whaleThresholdFloor
	}
	if ceiling := turnover * whaleCeilingFraction; threshold > ceiling {
		threshold = ceiling
	}
	result.Threshold = threshold

	scan := book.Bids
	if len(scan) > whaleScanLevels {
		scan = scan[:whaleScanLevels]
	}

	frontOfBook := false
	for i, l := range scan {
		if l.Notional() < threshold {
			continue
		}
		result.Whales = append(result.Whales, models.Whale{
			Value:    l.Notional(),
			Position: i + 1,
		})
		if i < whaleFrontLevels {
			frontOfBook = true
		}
	}

	count := len(result.Whales)
	if count == 0 {
		return result
	}

	if count >= whaleCountStrong {
		result.Score = scoreWhalesStrong
	} else {
		result.Score = scorePerWhale * float64(count)
	}
	result.Reasons = append(result.Reasons,
		fmt.Sprintf("%d whale orders above $%.0f on the bid", count, threshold))

	if frontOfBook {
		result.Score += scoreFrontOfBookBonus
		result.Reasons = append(result.Reasons, "whale order at front of book")
	}

	if a.recorder != nil {
		go a.record(result.Sighting(a.instrument, now))
	}

	return result
}

func (a *Analyzer) record(sighting *models.WhaleSighting) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.recorder.SaveWhaleSighting(ctx, *sighting); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to persist whale sighting")
	}
}
