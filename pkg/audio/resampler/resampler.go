package resampler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	resampling "github.com/tphakala/go-audio-resampling"
	"github.com/xaionaro-go/nocle/pkg/audio"
)

const (
	// paddingDuration of silence is added on both sides of the input, so the
	// filter transients land in the padding and not in the signal.
	paddingDuration = 100 * time.Millisecond

	// calibrationSigma is the width of the gaussian bump used to measure
	// the resampler delay.
	calibrationSigma = 2 * time.Millisecond
)

type ratePair struct {
	Source audio.SampleRate
	Target audio.SampleRate
}

// leadCache maps ratePair to the measured lead (int).
var leadCache sync.Map

// Resample converts the waveform to the target sample rate using a
// band-limited polyphase resampler.
//
// If the rates are equal the waveform is returned as is. Otherwise the
// result has exactly round(len(in)*target/source) samples and is time
// aligned with the input: output sample j corresponds to input time
// j/targetRate.
func Resample(
	ctx context.Context,
	in audio.Waveform,
	targetRate audio.SampleRate,
) (_ret audio.Waveform, _err error) {
	logger.Tracef(ctx, "Resample(%v -> %v, len:%d)", in.SampleRate, targetRate, in.Len())
	defer func() { logger.Tracef(ctx, "/Resample(%v -> %v, len:%d): %v", in.SampleRate, targetRate, in.Len(), _err) }()

	if in.SampleRate == 0 {
		return audio.Waveform{}, audio.ErrInvalidParameter{
			Stage:  "resample",
			Name:   "sourceRate",
			Value:  in.SampleRate,
			Reason: "must be positive",
		}
	}
	if targetRate == 0 {
		return audio.Waveform{}, audio.ErrInvalidParameter{
			Stage:  "resample",
			Name:   "targetRate",
			Value:  targetRate,
			Reason: "must be positive",
		}
	}
	if in.SampleRate == targetRate {
		return in, nil
	}

	outLen := ExpectedLength(in.Len(), in.SampleRate, targetRate)
	if in.Len() == 0 {
		return audio.NewWaveform([]float32{}, targetRate), nil
	}

	lead, err := outputLead(ctx, in.SampleRate, targetRate)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("unable to measure the resampler delay %v -> %v: %w", in.SampleRate, targetRate, err)
	}

	output, err := resamplePadded(in.Samples, in.SampleRate, targetRate)
	if err != nil {
		return audio.Waveform{}, err
	}
	logger.Debugf(ctx, "resampled %d samples into %d (lead %d, expected %d)", in.Len(), len(output), lead, outLen)

	samples := make([]float32, outLen)
	for idx := range samples {
		if lead+idx >= len(output) {
			break
		}
		samples[idx] = float32(output[lead+idx])
	}
	return audio.NewWaveform(samples, targetRate), nil
}

func padding(rate audio.SampleRate) int {
	return int(rate.SamplesForDuration(paddingDuration))
}

// resamplePadded runs the samples surrounded by silence through a fresh
// resampler and returns the whole output, padding included.
func resamplePadded(
	samples []float32,
	sourceRate, targetRate audio.SampleRate,
) ([]float64, error) {
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(sourceRate),
		OutputRate: float64(targetRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a resampler %v -> %v: %w", sourceRate, targetRate, err)
	}

	pad := padding(sourceRate)
	input := make([]float64, pad+len(samples)+pad)
	for idx, v := range samples {
		input[pad+idx] = float64(v)
	}

	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("unable to resample %d samples: %w", len(input), err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("unable to flush the resampler: %w", err)
	}
	return append(output, tail...), nil
}

// outputLead returns the index of the resamplePadded output sample that
// corresponds to the first input sample. It is measured once per rate pair
// by resampling a gaussian bump and locating its peak.
func outputLead(
	ctx context.Context,
	sourceRate, targetRate audio.SampleRate,
) (int, error) {
	key := ratePair{Source: sourceRate, Target: targetRate}
	if v, ok := leadCache.Load(key); ok {
		return v.(int), nil
	}

	sigma := float64(sourceRate.SamplesForDuration(calibrationSigma))
	if sigma < 1 {
		sigma = 1
	}
	center := int(6 * sigma)
	bump := make([]float32, 2*center+1)
	for idx := range bump {
		d := float64(idx-center) / sigma
		bump[idx] = float32(math.Exp(-d * d / 2))
	}

	output, err := resamplePadded(bump, sourceRate, targetRate)
	if err != nil {
		return 0, err
	}

	ratio := float64(targetRate) / float64(sourceRate)
	lead := int(math.Round(peakPosition(output) - float64(center)*ratio))
	if lead < 0 {
		return 0, fmt.Errorf("the resampler delay exceeds the padding: lead %d", lead)
	}
	logger.Debugf(ctx, "resampler %v -> %v: lead %d (padding %d)", sourceRate, targetRate, lead, int(math.Round(float64(padding(sourceRate))*ratio)))

	leadCache.Store(key, lead)
	return lead, nil
}

// peakPosition is the position of the maximum, refined with a parabola
// through the neighbors.
func peakPosition(s []float64) float64 {
	best := 0
	for idx, v := range s {
		if v > s[best] {
			best = idx
		}
	}
	if best == 0 || best == len(s)-1 {
		return float64(best)
	}
	a, b, c := s[best-1], s[best], s[best+1]
	denom := a - 2*b + c
	if denom == 0 {
		return float64(best)
	}
	return float64(best) + 0.5*(a-c)/denom
}

// ExpectedLength returns the amount of samples Resample produces for
// an input of n samples.
func ExpectedLength(n int, sourceRate, targetRate audio.SampleRate) int {
	if sourceRate == targetRate || sourceRate == 0 {
		return n
	}
	return int(math.Round(float64(n) * float64(targetRate) / float64(sourceRate)))
}
