package filters

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/nocle/pkg/audio"
)

func whiteNoise(rng *rand.Rand, n int, amplitude float64) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(rng.NormFloat64() * amplitude)
	}
	return s
}

func energy(s []float32) float64 {
	var sum float64
	for _, v := range s {
		sum += float64(v) * float64(v)
	}
	return sum
}

func maxAbs(s []float32) float64 {
	var m float64
	for _, v := range s {
		m = math.Max(m, math.Abs(float64(v)))
	}
	return m
}

func TestNoiseGate(t *testing.T) {
	t.Run("example", func(t *testing.T) {
		assert.Equal(t, []float32{0, 0.5, -0.02}, NoiseGate([]float32{0.005, 0.5, -0.02}, 0.01))
	})

	t.Run("threshold_is_exclusive", func(t *testing.T) {
		assert.Equal(t, []float32{0, 0, 0.75}, NoiseGate([]float32{0.5, -0.5, 0.75}, 0.5))
	})

	t.Run("input_untouched", func(t *testing.T) {
		in := []float32{0.001, 0.002}
		out := NoiseGate(in, 0.01)
		assert.Equal(t, []float32{0, 0}, out)
		assert.Equal(t, []float32{0.001, 0.002}, in)
	})
}

func TestExponentialSmooth(t *testing.T) {
	t.Run("first_sample_exact", func(t *testing.T) {
		rng := rand.New(rand.NewSource(0))
		for i := 0; i < 100; i++ {
			in := whiteNoise(rng, 1+rng.Intn(50), 1)
			alpha := rng.Float64()
			out := ExponentialSmooth(in, alpha)
			require.Equal(t, in[0], out[0])
		}
	})

	t.Run("recurrence", func(t *testing.T) {
		out := ExponentialSmooth([]float32{1, 0, 0, 1}, 0.5)
		assert.Equal(t, []float32{1, 0.5, 0.25, 0.625}, out)
	})

	t.Run("alpha_1_is_identity", func(t *testing.T) {
		in := []float32{0.3, -0.1, 0.7}
		assert.Equal(t, in, ExponentialSmooth(in, 1))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, ExponentialSmooth(nil, 0.9))
	})
}

func TestDynamicExpansion(t *testing.T) {
	t.Run("peak_is_one", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 100; i++ {
			in := whiteNoise(rng, 1+rng.Intn(1000), rng.Float64()*2)
			if maxAbs(in) == 0 {
				continue
			}
			out, err := DynamicExpansion(in, DefaultExpansionThreshold, DefaultExpansionRatio)
			require.NoError(t, err)
			require.InDelta(t, 1.0, maxAbs(out), 1e-6)
		}
	})

	t.Run("values", func(t *testing.T) {
		out, err := DynamicExpansion([]float32{0.1, -0.5, 0.35}, 0.35, 1.5)
		require.NoError(t, err)
		peak := math.Pow(0.5, 1.5)
		assert.InDelta(t, 0.1/peak, out[0], 1e-6)
		assert.Equal(t, float32(-1), out[1])
		// threshold is exclusive
		assert.InDelta(t, 0.35/peak, out[2], 1e-6)
	})

	t.Run("all_zero", func(t *testing.T) {
		_, err := DynamicExpansion(make([]float32, 10), 0.35, 1.5)
		var degenerateErr audio.ErrNumericDegeneracy
		require.True(t, errors.As(err, &degenerateErr), "%v", err)
		assert.Equal(t, StepDynamicExpansion.String(), degenerateErr.Stage)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DynamicExpansion(nil, 0.35, 1.5)
		var degenerateErr audio.ErrNumericDegeneracy
		require.True(t, errors.As(err, &degenerateErr), "%v", err)
	})
}

func TestWiener(t *testing.T) {
	t.Run("hand_calculated", func(t *testing.T) {
		out, err := Wiener([]float32{1, 2, 3}, 3, 0.5)
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.InDelta(t, 1.0, out[0], 1e-6)
		assert.InDelta(t, 2.0, out[1], 1e-6)
		assert.InDelta(t, 18.0/7.0, out[2], 1e-6)
	})

	t.Run("large_noise_gives_local_mean", func(t *testing.T) {
		out, err := Wiener([]float32{3, 0, 0, 3, 0}, 3, 100)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float32{1, 1, 1, 1, 1}, out, 1e-6)
	})

	t.Run("constant_interior", func(t *testing.T) {
		in := make([]float32, 100)
		for i := range in {
			in[i] = 0.25
		}
		out, err := Wiener(in, 15, 0.01)
		require.NoError(t, err)
		for i := 7; i < 93; i++ {
			require.InDelta(t, 0.25, out[i], 1e-6)
		}
	})

	t.Run("zero_noise_zero_variance", func(t *testing.T) {
		out, err := Wiener(make([]float32, 20), 5, 0)
		require.NoError(t, err)
		for _, v := range out {
			require.False(t, math.IsNaN(float64(v)))
			require.Zero(t, v)
		}
	})

	for _, size := range []int{0, -3, 2, 14} {
		t.Run("invalid_size", func(t *testing.T) {
			_, err := Wiener([]float32{1, 2, 3}, size, 0.01)
			var paramErr audio.ErrInvalidParameter
			require.True(t, errors.As(err, &paramErr), "%v", err)
			assert.Equal(t, size, paramErr.Value)
		})
	}
}

func TestGaussianBlur(t *testing.T) {
	t.Run("reference_values", func(t *testing.T) {
		out, err := GaussianBlur([]float32{1, 2, 3, 4, 5}, 1)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float32{1.42704095, 2.06782203, 3, 3.93217797, 4.57295905}, out, 1e-5)

		out, err = GaussianBlur([]float32{1, 2, 3, 4, 5}, 4)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float32{2.91948343, 2.95023502, 3, 3.04976498, 3.08051657}, out, 1e-5)
	})

	t.Run("constant_preserved", func(t *testing.T) {
		in := []float32{0.5, 0.5, 0.5}
		out, err := GaussianBlur(in, 2)
		require.NoError(t, err)
		assert.InDeltaSlice(t, in, out, 1e-6)
	})

	t.Run("impulse_response", func(t *testing.T) {
		in := make([]float32, 101)
		in[50] = 1
		out, err := GaussianBlur(in, 2)
		require.NoError(t, err)
		var sum float64
		for _, v := range out {
			sum += float64(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-6)
		assert.Equal(t, out[49], out[51])
		assert.Zero(t, out[41])
		assert.NotZero(t, out[42])
	})

	t.Run("single_sample", func(t *testing.T) {
		out, err := GaussianBlur([]float32{0.7}, 2)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float32{0.7}, out, 1e-6)
	})

	for _, sigma := range []float64{0, -1, math.NaN()} {
		_, err := GaussianBlur([]float32{1}, sigma)
		var paramErr audio.ErrInvalidParameter
		require.True(t, errors.As(err, &paramErr), "%v", err)
	}
}

func TestReflectIndex(t *testing.T) {
	// d c b a | a b c d | d c b a
	for i, expected := range map[int]int{-1: 0, -2: 1, -4: 3, -5: 3, 4: 3, 5: 2, 8: 0, 9: 1} {
		assert.Equal(t, expected, reflectIndex(i, 4), "index %d", i)
	}
}
