package filters

import (
	"fmt"
	"math/cmplx"
	"sort"

	"github.com/xaionaro-go/nocle/pkg/audio"
)

// SpectralGating removes stationary noise: for every frequency bin the
// median magnitude across all the frames is taken as the noise floor, and
// every time-frequency bin not louder than threshold times the floor is
// zeroed. The surviving bins keep their original phase.
//
// The result always has len(signal) samples.
func SpectralGating(
	signal []float32,
	sampleRate audio.SampleRate,
	windowSize int,
	hopSize int,
	threshold float64,
) ([]float32, error) {
	stage := StepSpectralGating.String()
	if sampleRate == 0 {
		return nil, invalid(stage, "sampleRate", sampleRate, "must be positive")
	}
	if windowSize < 2 {
		return nil, invalid(stage, "windowSize", windowSize, "must be at least 2")
	}
	if hopSize <= 0 || hopSize > windowSize {
		return nil, invalid(stage, "hopSize", hopSize, fmt.Sprintf("must be in [1, %d]", windowSize))
	}
	if !isFinite(threshold) || threshold < 0 {
		return nil, invalid(stage, "threshold", threshold, "must be a non-negative number")
	}
	if len(signal) == 0 {
		return []float32{}, nil
	}

	spec, err := stft(signal, windowSize, hopSize)
	if err != nil {
		return nil, fmt.Errorf("unable to calculate the STFT: %w", err)
	}

	floor := noiseFloor(spec)
	for _, frame := range spec.frames {
		for k, v := range frame {
			if !(cmplx.Abs(v) > threshold*floor[k]) {
				frame[k] = 0
			}
		}
	}

	result, err := spec.istft(len(signal))
	if err != nil {
		return nil, fmt.Errorf("unable to calculate the inverse STFT: %w", err)
	}
	return result, nil
}

// noiseFloor returns the per-bin median of the magnitudes across frames.
func noiseFloor(spec *spectrogram) []float64 {
	floor := make([]float64, spec.bins())
	magnitudes := make([]float64, len(spec.frames))
	for k := range floor {
		for t, frame := range spec.frames {
			magnitudes[t] = cmplx.Abs(frame[k])
		}
		floor[k] = median(magnitudes)
	}
	return floor
}

// median sorts values in place. For an even amount of values it is the
// mean of the two middle ones.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}
