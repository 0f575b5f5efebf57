package audio

import (
	"time"
)

const (
	// DefaultSampleRate is the rate every processing stage works at.
	DefaultSampleRate = SampleRate(16000)
)

// Waveform is a single-channel sequence of samples at a known sample rate.
type Waveform struct {
	Samples    []float32
	SampleRate SampleRate
}

func NewWaveform(samples []float32, sampleRate SampleRate) Waveform {
	return Waveform{
		Samples:    samples,
		SampleRate: sampleRate,
	}
}

func (w Waveform) Len() int {
	return len(w.Samples)
}

func (w Waveform) Duration() time.Duration {
	return w.SampleRate.DurationForSamples(uint64(len(w.Samples)))
}
