package resampler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/nocle/pkg/audio"
)

func sine(freq float64, rate audio.SampleRate, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(rate)))
	}
	return s
}

func rms(s []float32) float64 {
	var sum float64
	for _, v := range s {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(s)))
}

func gaussianBump(n, center int, sigma float64) []float32 {
	s := make([]float32, n)
	for i := range s {
		d := float64(i-center) / sigma
		s[i] = float32(math.Exp(-d * d / 2))
	}
	return s
}

func argmax(s []float32) int {
	best := 0
	for i, v := range s {
		if v > s[best] {
			best = i
		}
	}
	return best
}

func TestResampleTimeAlignment(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		source, target audio.SampleRate
	}{
		{48000, 16000},
		{44100, 16000},
		{8000, 16000},
		{16000, 48000},
		{22050, 16000},
	} {
		t.Run(fmt.Sprintf("%v_to_%v", tc.source, tc.target), func(t *testing.T) {
			t.Run("bump_peak", func(t *testing.T) {
				n := int(tc.source)
				sigma := float64(tc.source) * 0.0025
				in := audio.NewWaveform(gaussianBump(n, n/2, sigma), tc.source)
				out, err := Resample(ctx, in, tc.target)
				require.NoError(t, err)

				expected := int(math.Round(float64(n/2) * float64(tc.target) / float64(tc.source)))
				assert.InDelta(t, expected, argmax(out.Samples), 1)
				assert.InDelta(t, 1, out.Samples[argmax(out.Samples)], 0.02)
			})

			t.Run("sine_phase_and_tail", func(t *testing.T) {
				const freq = 100
				in := audio.NewWaveform(sine(freq, tc.source, int(tc.source)/2), tc.source)
				out, err := Resample(ctx, in, tc.target)
				require.NoError(t, err)

				ideal := sine(freq, tc.target, out.Len())
				from, to := out.Len()-int(tc.target)/40, out.Len()-int(tc.target)/64
				assert.InDeltaSlice(t, ideal[from:to], out.Samples[from:to], 0.05)
				from, to = out.Len()/4, out.Len()/2
				assert.InDeltaSlice(t, ideal[from:to], out.Samples[from:to], 0.05)

				// the end of the signal is not replaced with silence
				assert.Greater(t, rms(out.Samples[out.Len()-int(tc.target)/50:]), 0.4)
			})
		})
	}
}

func TestResample(t *testing.T) {
	ctx := context.Background()

	t.Run("Identity_16000", func(t *testing.T) {
		in := audio.NewWaveform(sine(440, 16000, 1000), 16000)
		out, err := Resample(ctx, in, 16000)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Downsample_48000_to_16000", func(t *testing.T) {
		in := audio.NewWaveform(sine(440, 48000, 48000), 48000)
		out, err := Resample(ctx, in, 16000)
		require.NoError(t, err)
		assert.Equal(t, audio.SampleRate(16000), out.SampleRate)
		assert.Len(t, out.Samples, 16000)

		// the middle part is away from filter edge effects
		assert.InDelta(t, 1/math.Sqrt2, rms(out.Samples[4000:12000]), 0.05)
	})

	t.Run("Upsample_8000_to_16000", func(t *testing.T) {
		in := audio.NewWaveform(sine(300, 8000, 4001), 8000)
		out, err := Resample(ctx, in, 16000)
		require.NoError(t, err)
		assert.Len(t, out.Samples, 8002)
		assert.InDelta(t, 1/math.Sqrt2, rms(out.Samples[2000:6000]), 0.05)
	})

	t.Run("Odd_ratio_44100_to_16000", func(t *testing.T) {
		in := audio.NewWaveform(sine(1000, 44100, 44100), 44100)
		out, err := Resample(ctx, in, 16000)
		require.NoError(t, err)
		assert.Len(t, out.Samples, ExpectedLength(44100, 44100, 16000))
	})

	t.Run("Empty", func(t *testing.T) {
		out, err := Resample(ctx, audio.NewWaveform(nil, 8000), 16000)
		require.NoError(t, err)
		assert.Zero(t, out.Len())
	})

	t.Run("Zero_rate", func(t *testing.T) {
		_, err := Resample(ctx, audio.NewWaveform([]float32{1}, 0), 16000)
		var paramErr audio.ErrInvalidParameter
		require.True(t, errors.As(err, &paramErr), "%v", err)
		assert.Equal(t, "sourceRate", paramErr.Name)
	})
}

func TestExpectedLength(t *testing.T) {
	assert.Equal(t, 100, ExpectedLength(100, 16000, 16000))
	assert.Equal(t, 200, ExpectedLength(100, 8000, 16000))
	assert.Equal(t, 36281, ExpectedLength(100000, 44100, 16000))
}

func TestPeakPosition(t *testing.T) {
	assert.Equal(t, 2.0, peakPosition([]float64{0, 1, 2, 1, 0}))
	assert.InDelta(t, 2.25, peakPosition([]float64{0, 0.4375, 1.9375, 1.4375, 0}), 1e-9)
	assert.Equal(t, 0.0, peakPosition([]float64{3, 1, 0}))
}
