package trading

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"binance-pulse/internal/models"
)

func TestCalculateHighConfidenceTargets(t *testing.T) {
	calc := NewTargetCalculator(1.3)

	targets, ok := calc.Calculate(100, 2, 90, nil)
	if !ok {
		t.Fatal("expected targets to be accepted")
	}
	if math.Abs(targets.StopLoss-96.4) > 1e-9 {
		t.Errorf("StopLoss = %v, want 96.4", targets.StopLoss)
	}
	if math.Abs(targets.TakeProfit-110.08) > 1e-9 {
		t.Errorf("TakeProfit = %v, want 110.08", targets.TakeProfit)
	}
	if targets.StopMultiplier != 1.8 || targets.ProfitMultiplier != 2.8 {
		t.Errorf("multipliers = %v/%v, want 1.8/2.8", targets.StopMultiplier, targets.ProfitMultiplier)
	}
	if math.Abs(targets.RiskReward-2.8) > 1e-9 {
		t.Errorf("RiskReward = %v, want 2.8", targets.RiskReward)
	}
}

func TestCalculateConfidenceTiers(t *testing.T) {
	calc := NewTargetCalculator(1.3)

	tests := []struct {
		name           string
		confidence     float64
		wantStopMult   float64
		wantProfitMult float64
	}{
		{"high tier", 95, 1.8, 2.8},
		{"high tier boundary", 90, 1.8, 2.8},
		{"mid tier", 85, 2.2, 2.5},
		{"mid tier boundary", 80, 2.2, 2.5},
		{"low tier", 75, 2.5, 2.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, ok := calc.Calculate(100, 2, tt.confidence, nil)
			if !ok {
				t.Fatal("expected targets to be accepted")
			}
			if targets.StopMultiplier != tt.wantStopMult {
				t.Errorf("StopMultiplier = %v, want %v", targets.StopMultiplier, tt.wantStopMult)
			}
			if targets.ProfitMultiplier != tt.wantProfitMult {
				t.Errorf("ProfitMultiplier = %v, want %v", targets.ProfitMultiplier, tt.wantProfitMult)
			}
		})
	}
}

func TestCalculateStopFloor(t *testing.T) {
	calc := NewTargetCalculator(1.3)

	// A tiny ATR produces a stop tighter than the 1% floor; the floor wins.
	targets, ok := calc.Calculate(100, 0.1, 90, nil)
	if !ok {
		t.Fatal("expected targets to be accepted")
	}
	if math.Abs(targets.StopLoss-99.0) > 1e-9 {
		t.Errorf("StopLoss = %v, want floor at 99.0", targets.StopLoss)
	}
}

func TestCalculateWallPullsStop(t *testing.T) {
	calc := NewTargetCalculator(1.3)

	wall := &models.WallCluster{Price: 98.5, Notional: 200000, Levels: 3}
	targets, ok := calc.Calculate(100, 2, 90, wall)
	if !ok {
		t.Fatal("expected targets to be accepted")
	}
	want := 98.5 * 0.9995
	if math.Abs(targets.StopLoss-want) > 1e-9 {
		t.Errorf("StopLoss = %v, want %v behind the wall", targets.StopLoss, want)
	}

	// A wall below the ATR stop must not loosen it.
	deepWall := &models.WallCluster{Price: 90, Notional: 200000, Levels: 2}
	targets, ok = calc.Calculate(100, 2, 90, deepWall)
	if !ok {
		t.Fatal("expected targets to be accepted")
	}
	if math.Abs(targets.StopLoss-96.4) > 1e-9 {
		t.Errorf("StopLoss = %v, deep wall must not widen the stop", targets.StopLoss)
	}
}

func TestCalculateRejections(t *testing.T) {
	tests := []struct {
		name          string
		minRiskReward float64
		entry         float64
		atr           float64
		confidence    float64
	}{
		{"zero entry", 1.3, 0, 2, 90},
		{"zero atr", 1.3, 100, 0, 90},
		{"rr below minimum", 3.0, 100, 2, 75},
		{"stop at or above entry", 1.3, 100, -1, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewTargetCalculator(tt.minRiskReward)
			if _, ok := calc.Calculate(tt.entry, tt.atr, tt.confidence, nil); ok {
				t.Error("expected rejection")
			}
		})
	}
}

func TestProperty_AcceptedTargetsAreOrdered(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300

	properties := gopter.NewProperties(parameters)
	calc := NewTargetCalculator(1.3)

	properties.Property("stop < entry < take-profit with sufficient reward", prop.ForAll(
		func(entry, atrFrac, confidence float64) bool {
			atr := entry * atrFrac
			targets, ok := calc.Calculate(entry, atr, confidence, nil)
			if !ok {
				return true
			}
			if !(targets.StopLoss < entry && entry < targets.TakeProfit) {
				return false
			}
			rr := (targets.TakeProfit - entry) / (entry - targets.StopLoss)
			return rr >= 1.3-1e-9
		},
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0.0001, 0.2),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}
