package indicators

import (
	"fmt"

	"binance-pulse/internal/models"
)

// VolumeSMA calculates the Simple Moving Average of volume.
type VolumeSMA struct {
	period int
}

// NewVolumeSMA creates a new VolumeSMA indicator.
func NewVolumeSMA(period int) *VolumeSMA {
	return &VolumeSMA{period: period}
}

func (v *VolumeSMA) Name() string {
	return fmt.Sprintf("VolumeSMA_%d", v.period)
}

func (v *VolumeSMA) Period() int {
	return v.period
}

func (v *VolumeSMA) Calculate(candles []models.Candle) ([]float64, error) {
	if v.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < v.period {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)
	vols := volumes(candles)

	windowSum := sum(vols[:v.period])
	result[v.period-1] = windowSum / float64(v.period)
	for i := v.period; i < n; i++ {
		windowSum += vols[i] - vols[i-v.period]
		result[i] = windowSum / float64(v.period)
	}

	return result, nil
}

// VolumeRatio calculates current volume relative to its moving average.
type VolumeRatio struct {
	period int
}

// NewVolumeRatio creates a new VolumeRatio indicator.
func NewVolumeRatio(period int) *VolumeRatio {
	return &VolumeRatio{period: period}
}

func (v *VolumeRatio) Name() string {
	return fmt.Sprintf("VolumeRatio_%d", v.period)
}

func (v *VolumeRatio) Period() int {
	return v.period
}

func (v *VolumeRatio) Calculate(candles []models.Candle) ([]float64, error) {
	avg, err := NewVolumeSMA(v.period).Calculate(candles)
	if err != nil {
		return nil, err
	}

	n := len(candles)
	result := make([]float64, n)
	vols := volumes(candles)

	for i := v.period - 1; i < n; i++ {
		if avg[i] > 0 {
			result[i] = vols[i] / avg[i]
		}
	}

	return result, nil
}
