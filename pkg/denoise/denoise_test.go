package denoise

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/nocle/pkg/audio"
	"github.com/xaionaro-go/nocle/pkg/audiofile"
	_ "github.com/xaionaro-go/nocle/pkg/audiofile/implementations/wav"
	"github.com/xaionaro-go/nocle/pkg/config"
	"github.com/xaionaro-go/nocle/pkg/inference"
	"github.com/xaionaro-go/nocle/pkg/metrics"
)

type scaleModel struct {
	Factor float32
	Err    error
	Closed bool
}

var _ inference.Model = (*scaleModel)(nil)

func (m *scaleModel) Close() error {
	m.Closed = true
	return nil
}

func (*scaleModel) Backend() inference.Backend {
	return inference.Backend("scale")
}

func (m *scaleModel) PredictChunk(_ context.Context, chunk []float32) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]float32, len(chunk))
	for i, v := range chunk {
		out[i] = v * m.Factor
	}
	return out, nil
}

func sine(n int, rate audio.SampleRate) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(0.3*math.Sin(2*math.Pi*300*float64(i)/float64(rate))) + float32(0.01*math.Sin(float64(i)*1.7))
	}
	return s
}

func passthroughConfig() config.Config {
	cfg := config.Default()
	cfg.Inference.Backend = inference.BackendPassthrough
	return cfg
}

func writeInput(t *testing.T, samples []float32, rate audio.SampleRate) string {
	path := filepath.Join(t.TempDir(), "input.wav")
	require.NoError(t, audiofile.Save(context.Background(), audio.NewWaveform(samples, rate), path))
	return path
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("passthrough_is_identity", func(t *testing.T) {
		in := sine(12001, 16000)
		inPath := writeInput(t, in, 16000)
		outPath := filepath.Join(t.TempDir(), "output.wav")

		p, err := New(ctx, passthroughConfig())
		require.NoError(t, err)
		defer p.Close()

		require.NoError(t, p.Run(ctx, inPath, outPath))

		out, err := audiofile.Load(ctx, outPath)
		require.NoError(t, err)
		assert.Equal(t, audio.SampleRate(16000), out.SampleRate)
		assert.Equal(t, in, out.Samples)
	})

	t.Run("resampled_to_model_rate", func(t *testing.T) {
		inPath := writeInput(t, sine(4000, 8000), 8000)
		outPath := filepath.Join(t.TempDir(), "output.wav")

		p, err := New(ctx, passthroughConfig())
		require.NoError(t, err)
		defer p.Close()

		require.NoError(t, p.Run(ctx, inPath, outPath))
		out, err := audiofile.Load(ctx, outPath)
		require.NoError(t, err)
		assert.Equal(t, audio.SampleRate(16000), out.SampleRate)
		assert.Equal(t, 8000, out.Len())
	})

	t.Run("filters_keep_length", func(t *testing.T) {
		cfg := passthroughConfig()
		cfg.Filters.Enabled = true
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)

		p, err := New(ctx, cfg, OptionMetrics(m))
		require.NoError(t, err)
		defer p.Close()

		in := audio.NewWaveform(sine(20000, 16000), 16000)
		orig := audio.NewWaveform(append([]float32(nil), in.Samples...), in.SampleRate)
		out, err := p.Denoise(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, in.Len(), out.Len())
		assert.Equal(t, orig, in)
		assert.Equal(t, 2.0, testutil.ToFloat64(m.ChunksPredicted.WithLabelValues("passthrough")))
		assert.Equal(t, 6, testutil.CollectAndCount(m.FilterStepLatency))
	})

	t.Run("workers_keep_order", func(t *testing.T) {
		in := audio.NewWaveform(sine(16000*5, 16000), 16000)

		var outputs [][]float32
		for _, workers := range []int{1, 4} {
			cfg := passthroughConfig()
			cfg.Audio.ChunkSize = 1000
			cfg.Inference.Workers = workers
			p, err := New(ctx, cfg, OptionModel(&scaleModel{Factor: 0.5}))
			require.NoError(t, err)
			out, err := p.Denoise(ctx, in)
			require.NoError(t, err)
			require.NoError(t, p.Close())
			outputs = append(outputs, out.Samples)
		}
		assert.Equal(t, outputs[0], outputs[1])
		assert.Equal(t, in.Samples[12345]*0.5, outputs[1][12345])
	})

	t.Run("inference_failure_leaves_no_output", func(t *testing.T) {
		inPath := writeInput(t, sine(30000, 16000), 16000)
		outPath := filepath.Join(t.TempDir(), "output.wav")
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		errModel := errors.New("session is broken")

		cfg := passthroughConfig()
		cfg.Inference.Workers = 2
		model := &scaleModel{Err: errModel}
		p, err := New(ctx, cfg, OptionModel(model), OptionMetrics(m))
		require.NoError(t, err)

		err = p.Run(ctx, inPath, outPath)
		require.ErrorIs(t, err, errModel)
		var inferenceErr audio.ErrInference
		require.True(t, errors.As(err, &inferenceErr), "%v", err)
		assert.Equal(t, "scale", inferenceErr.Backend)

		_, statErr := os.Stat(outPath)
		assert.True(t, os.IsNotExist(statErr))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesFailed))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.FilesProcessed))

		require.NoError(t, p.Close())
		assert.True(t, model.Closed)
	})

	t.Run("decode_failure_leaves_no_output", func(t *testing.T) {
		inPath := filepath.Join(t.TempDir(), "garbage.wav")
		require.NoError(t, os.WriteFile(inPath, []byte("definitely not a RIFF file"), 0640))
		outPath := filepath.Join(t.TempDir(), "output.wav")

		p, err := New(ctx, passthroughConfig())
		require.NoError(t, err)
		defer p.Close()

		err = p.Run(ctx, inPath, outPath)
		var decodeErr audio.ErrDecode
		require.True(t, errors.As(err, &decodeErr), "%v", err)
		_, statErr := os.Stat(outPath)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("degenerate_silence", func(t *testing.T) {
		cfg := passthroughConfig()
		cfg.Filters.Enabled = true
		p, err := New(ctx, cfg)
		require.NoError(t, err)
		defer p.Close()

		_, err = p.Denoise(ctx, audio.NewWaveform(make([]float32, 5000), 16000))
		var degenerateErr audio.ErrNumericDegeneracy
		require.True(t, errors.As(err, &degenerateErr), "%v", err)
	})

	t.Run("wrong_rate", func(t *testing.T) {
		p, err := New(ctx, passthroughConfig())
		require.NoError(t, err)
		defer p.Close()

		_, err = p.Denoise(ctx, audio.NewWaveform(sine(100, 8000), 8000))
		var paramErr audio.ErrInvalidParameter
		require.True(t, errors.As(err, &paramErr), "%v", err)
	})

	t.Run("invalid_config", func(t *testing.T) {
		cfg := passthroughConfig()
		cfg.Audio.ChunkSize = 0
		_, err := New(ctx, cfg)
		assert.Error(t, err)
	})

	t.Run("unknown_backend", func(t *testing.T) {
		cfg := passthroughConfig()
		cfg.Inference.Backend = inference.Backend("magic")
		_, err := New(ctx, cfg)
		assert.Error(t, err)
	})
}
