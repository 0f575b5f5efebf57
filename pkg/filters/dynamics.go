package filters

import (
	"fmt"
	"math"

	"github.com/xaionaro-go/nocle/pkg/audio"
)

// NoiseGate zeroes every sample with |x| <= threshold.
func NoiseGate(data []float32, threshold float64) []float32 {
	result := make([]float32, len(data))
	for idx, x := range data {
		if math.Abs(float64(x)) > threshold {
			result[idx] = x
		}
	}
	return result
}

// DynamicExpansion raises every sample with |x| > threshold to the power of
// ratio (keeping the sign) and then normalizes the whole signal so that its
// peak absolute value is exactly 1.
//
// The normalization is global: a loud transient scales down everything else.
func DynamicExpansion(data []float32, threshold, ratio float64) ([]float32, error) {
	expanded := make([]float64, len(data))
	var peak float64
	for idx, x := range data {
		v := float64(x)
		abs := math.Abs(v)
		if abs > threshold {
			abs = math.Pow(abs, ratio)
			v = math.Copysign(abs, v)
		}
		expanded[idx] = v
		if abs > peak {
			peak = abs
		}
	}
	if peak == 0 || !isFinite(peak) {
		return nil, audio.ErrNumericDegeneracy{
			Stage:  StepDynamicExpansion.String(),
			Reason: fmt.Sprintf("the peak of the expanded signal is %v, cannot normalize", peak),
		}
	}

	result := make([]float32, len(data))
	for idx, v := range expanded {
		result[idx] = float32(v / peak)
	}
	return result, nil
}

// ExponentialSmooth is a causal first order low-pass:
// y[0] = x[0], y[t] = alpha*x[t] + (1-alpha)*y[t-1].
func ExponentialSmooth(data []float32, alpha float64) []float32 {
	result := make([]float32, len(data))
	if len(data) == 0 {
		return result
	}
	result[0] = data[0]
	prev := float64(data[0])
	for idx := 1; idx < len(data); idx++ {
		prev = alpha*float64(data[idx]) + (1-alpha)*prev
		result[idx] = float32(prev)
	}
	return result
}
