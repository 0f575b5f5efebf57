// Package denoise composes the stages: load, chunk, predict, reconstruct,
// post-process and save.
package denoise

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/nocle/pkg/audio"
	"github.com/xaionaro-go/nocle/pkg/audio/resampler"
	"github.com/xaionaro-go/nocle/pkg/audiofile"
	"github.com/xaionaro-go/nocle/pkg/batcher"
	"github.com/xaionaro-go/nocle/pkg/config"
	"github.com/xaionaro-go/nocle/pkg/filters"
	"github.com/xaionaro-go/nocle/pkg/inference"
	"github.com/xaionaro-go/nocle/pkg/metrics"
)

type Pipeline struct {
	Config  config.Config
	Model   inference.Model
	Metrics *metrics.Metrics
}

type Option func(*Pipeline)

func OptionMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.Metrics = m
	}
}

// OptionModel makes the pipeline use the given model instead of
// initializing the configured backend. The pipeline takes the ownership.
func OptionModel(model inference.Model) Option {
	return func(p *Pipeline) {
		p.Model = model
	}
}

// New validates the configuration and initializes the inference backend.
func New(
	ctx context.Context,
	cfg config.Config,
	opts ...Option,
) (_ret *Pipeline, _err error) {
	logger.Tracef(ctx, "New(%s)", cfg.Inference.Backend)
	defer func() { logger.Tracef(ctx, "/New(%s): %v", cfg.Inference.Backend, _err) }()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	p := &Pipeline{
		Config: cfg,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.Model == nil {
		model, err := inference.New(ctx, cfg.InferenceConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to initialize the inference: %w", err)
		}
		p.Model = model
	} else if _, ok := p.Model.(*inference.Adapter); !ok {
		p.Model = inference.NewAdapter(p.Model)
	}
	return p, nil
}

func (p *Pipeline) Close() error {
	return p.Model.Close()
}

// LoadWaveform reads the file and resamples it to the configured rate.
func (p *Pipeline) LoadWaveform(
	ctx context.Context,
	path string,
) (audio.Waveform, error) {
	return LoadWaveform(ctx, path, p.Config.Audio.SampleRate)
}

// LoadWaveform reads the whole file as a mono waveform at sampleRate.
func LoadWaveform(
	ctx context.Context,
	path string,
	sampleRate audio.SampleRate,
) (_ret audio.Waveform, _err error) {
	logger.Tracef(ctx, "LoadWaveform(%s, %v)", path, sampleRate)
	defer func() { logger.Tracef(ctx, "/LoadWaveform(%s, %v): %v", path, sampleRate, _err) }()

	wf, err := audiofile.Load(ctx, path, audiofile.OptionAssumedSampleRate(sampleRate))
	if err != nil {
		return audio.Waveform{}, err
	}
	wf, err = resampler.Resample(ctx, wf, sampleRate)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("unable to resample '%s' to %v: %w", path, sampleRate, err)
	}
	return wf, nil
}

func (p *Pipeline) predictor() batcher.ChunkPredictor {
	backend := p.Model.Backend().String()
	return batcher.ChunkPredictorFunc(func(ctx context.Context, chunk []float32) ([]float32, error) {
		startTS := time.Now()
		out, err := p.Model.PredictChunk(ctx, chunk)
		p.Metrics.ObserveChunk(backend, time.Since(startTS), err)
		return out, err
	})
}

// Denoise runs the model over the waveform chunk by chunk and then applies
// the configured filter chain (if enabled). The input is not modified and
// the result has exactly the same length and sample rate.
func (p *Pipeline) Denoise(
	ctx context.Context,
	wf audio.Waveform,
) (_ret audio.Waveform, _err error) {
	logger.Tracef(ctx, "Denoise(len:%d)", wf.Len())
	defer func() { logger.Tracef(ctx, "/Denoise(len:%d): %v", wf.Len(), _err) }()

	if wf.SampleRate != p.Config.Audio.SampleRate {
		return audio.Waveform{}, audio.ErrInvalidParameter{
			Stage:  "denoise",
			Name:   "sampleRate",
			Value:  wf.SampleRate,
			Reason: fmt.Sprintf("the model works at %v", p.Config.Audio.SampleRate),
		}
	}

	samples, err := batcher.Predict(ctx, p.predictor(), wf.Samples, p.Config.Audio.ChunkSize, p.Config.Inference.Workers)
	if err != nil {
		return audio.Waveform{}, err
	}

	chain := p.Config.FilterChain()
	if len(chain) > 0 {
		samples, err = chain.Apply(
			ctx,
			samples,
			wf.SampleRate,
			p.Config.Filters.Params,
			filters.OptionStepObserver(p.Metrics.StepObserver()),
		)
		if err != nil {
			return audio.Waveform{}, fmt.Errorf("unable to apply the filters: %w", err)
		}
	}

	return audio.NewWaveform(samples, wf.SampleRate), nil
}

// Run denoises the file at inputPath into outputPath. On failure
// outputPath is left untouched.
func (p *Pipeline) Run(
	ctx context.Context,
	inputPath string,
	outputPath string,
) (_err error) {
	logger.Tracef(ctx, "Run(%s, %s)", inputPath, outputPath)
	defer func() { logger.Tracef(ctx, "/Run(%s, %s): %v", inputPath, outputPath, _err) }()

	var written int
	defer func() { p.Metrics.ObserveFile(written, _err) }()

	startTS := time.Now()
	wf, err := p.LoadWaveform(ctx, inputPath)
	if err != nil {
		return err
	}

	out, err := p.Denoise(ctx, wf)
	if err != nil {
		return fmt.Errorf("unable to denoise '%s': %w", inputPath, err)
	}

	if err := audiofile.Save(ctx, out, outputPath); err != nil {
		return fmt.Errorf("unable to save '%s': %w", outputPath, err)
	}
	written = out.Len()

	logger.Infof(ctx, "denoised '%s' into '%s' (%v of audio) in %v", inputPath, outputPath, out.Duration(), time.Since(startTS))
	return nil
}
