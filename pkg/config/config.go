// Package config is the file configuration of the denoiser.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/nocle/pkg/audio"
	"github.com/xaionaro-go/nocle/pkg/batcher"
	"github.com/xaionaro-go/nocle/pkg/filters"
	"github.com/xaionaro-go/nocle/pkg/inference"
	"gopkg.in/yaml.v3"
)

const (
	MinWienerSize    = 3
	MaxWienerSize    = 31
	MaxGaussianSigma = 5.0
)

type Config struct {
	Audio     AudioConfig      `yaml:"audio"`
	Inference inference.Config `yaml:"inference"`
	Filters   FiltersConfig    `yaml:"filters"`
}

type AudioConfig struct {
	SampleRate audio.SampleRate `yaml:"sample_rate"`
	ChunkSize  int              `yaml:"chunk_size"`
}

// FiltersConfig is the optional post-processing. The chain is applied
// only if Enabled is true; an empty Chain means filters.DefaultChain.
type FiltersConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Chain          filters.Chain `yaml:"chain,omitempty"`
	filters.Params `yaml:",inline"`
}

func Default() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: audio.DefaultSampleRate,
			ChunkSize:  batcher.DefaultChunkSize,
		},
		Inference: inference.DefaultConfig(),
		Filters: FiltersConfig{
			Params: filters.DefaultParams(),
		},
	}
}

// Load reads the YAML file at path over Default() and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to parse config file '%s': %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file '%s': %w", path, err)
	}
	return cfg, nil
}

// Bytes returns the YAML representation of the config.
func (cfg Config) Bytes() ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Validate reports every problem found, not only the first one.
func (cfg Config) Validate() error {
	var mErr *multierror.Error

	if cfg.Audio.SampleRate == 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("audio.sample_rate must be positive"))
	}
	if cfg.Audio.ChunkSize <= 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("audio.chunk_size must be positive, got %d", cfg.Audio.ChunkSize))
	}

	if cfg.Inference.Backend == inference.BackendUndefined {
		mErr = multierror.Append(mErr, fmt.Errorf("inference.backend is not set"))
	}
	if cfg.Inference.Workers < 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("inference.workers must not be negative, got %d", cfg.Inference.Workers))
	}
	switch cfg.Inference.Backend {
	case inference.BackendFullPrecision, inference.BackendQuantized:
		if cfg.Inference.ModelPath == "" {
			mErr = multierror.Append(mErr, fmt.Errorf("inference.model_path is required for backend '%s'", cfg.Inference.Backend))
		}
	}

	params := cfg.Filters.Params
	if params.WienerSize < MinWienerSize || params.WienerSize > MaxWienerSize || params.WienerSize%2 == 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("filters.wiener_size must be an odd number in [%d, %d], got %d", MinWienerSize, MaxWienerSize, params.WienerSize))
	}
	if params.GaussianSigma > MaxGaussianSigma {
		mErr = multierror.Append(mErr, fmt.Errorf("filters.gaussian_sigma must be in (0, %v], got %v", MaxGaussianSigma, params.GaussianSigma))
	}
	if err := params.Validate(); err != nil {
		mErr = multierror.Append(mErr, err)
	}

	return mErr.ErrorOrNil()
}

// FilterChain returns the steps to apply after the inference, or nil if
// the post-processing is disabled.
func (cfg Config) FilterChain() filters.Chain {
	if !cfg.Filters.Enabled {
		return nil
	}
	if len(cfg.Filters.Chain) == 0 {
		return filters.DefaultChain()
	}
	return cfg.Filters.Chain
}

// InferenceConfig returns the inference configuration with the chunk size
// and the sample rate taken from the audio section.
func (cfg Config) InferenceConfig() inference.Config {
	result := cfg.Inference
	result.ChunkSize = cfg.Audio.ChunkSize
	result.SampleRate = cfg.Audio.SampleRate
	return result
}
