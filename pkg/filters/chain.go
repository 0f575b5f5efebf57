package filters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/nocle/pkg/audio"
)

type StepKind int

const (
	StepUndefined = StepKind(iota)
	StepSpectralGating
	StepWiener
	StepGaussianBlur
	StepNoiseGate
	StepDynamicExpansion
	StepExponentialSmooth
	endOfStepKind
)

func (k StepKind) String() string {
	switch k {
	case StepUndefined:
		return "undefined"
	case StepSpectralGating:
		return "spectral_gating"
	case StepWiener:
		return "wiener"
	case StepGaussianBlur:
		return "gaussian_blur"
	case StepNoiseGate:
		return "noise_gate"
	case StepDynamicExpansion:
		return "dynamic_expansion"
	case StepExponentialSmooth:
		return "exponential_smooth"
	default:
		return fmt.Sprintf("unknown_step_%d", int(k))
	}
}

func StepKindFromString(s string) StepKind {
	s = strings.ToLower(strings.Trim(s, " "))
	for k := StepUndefined + 1; k < endOfStepKind; k++ {
		if k.String() == s {
			return k
		}
	}
	return StepUndefined
}

func (k StepKind) MarshalYAML() (any, error) {
	return k.String(), nil
}

func (k *StepKind) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*k = StepKindFromString(s)
	if *k == StepUndefined {
		return fmt.Errorf("unknown filter step '%s'", s)
	}
	return nil
}

// Apply runs a single filter with its parameters taken from params.
// The input is never modified.
func (k StepKind) Apply(
	samples []float32,
	sampleRate audio.SampleRate,
	params Params,
) ([]float32, error) {
	switch k {
	case StepSpectralGating:
		return SpectralGating(samples, sampleRate, params.SpectralWindowSize, params.SpectralHopSize, params.SpectralThreshold)
	case StepWiener:
		return Wiener(samples, params.WienerSize, params.WienerNoiseVariance)
	case StepGaussianBlur:
		return GaussianBlur(samples, params.GaussianSigma)
	case StepNoiseGate:
		return NoiseGate(samples, params.NoiseGateThreshold), nil
	case StepDynamicExpansion:
		return DynamicExpansion(samples, params.ExpansionThreshold, params.ExpansionRatio)
	case StepExponentialSmooth:
		return ExponentialSmooth(samples, params.SmoothAlpha), nil
	default:
		return nil, fmt.Errorf("unknown filter step: %v", k)
	}
}

// Chain is an ordered list of filter steps; the output of a step is
// the input of the next one.
type Chain []StepKind

// DefaultChain: spectral gating removes the stationary broadband noise
// first, Wiener and gaussian smoothing suppress the residual high frequency
// artifacts, then the dynamics are reshaped and the exponential smoothing
// does the final cleanup.
func DefaultChain() Chain {
	return Chain{
		StepSpectralGating,
		StepWiener,
		StepGaussianBlur,
		StepNoiseGate,
		StepDynamicExpansion,
		StepExponentialSmooth,
	}
}

func (c Chain) String() string {
	names := make([]string, 0, len(c))
	for _, step := range c {
		names = append(names, step.String())
	}
	return strings.Join(names, ",")
}

// ParseChain parses a comma separated list of step names.
func ParseChain(s string) (Chain, error) {
	var c Chain
	for _, name := range strings.Split(s, ",") {
		if strings.Trim(name, " ") == "" {
			continue
		}
		step := StepKindFromString(name)
		if step == StepUndefined {
			return nil, fmt.Errorf("unknown filter step '%s'", name)
		}
		c = append(c, step)
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("no filter steps in '%s'", s)
	}
	return c, nil
}

// StepObserver is called after every executed step.
type StepObserver func(step StepKind, duration time.Duration, err error)

type applyConfig struct {
	stepObserver StepObserver
}

type ApplyOption func(*applyConfig)

func OptionStepObserver(observer StepObserver) ApplyOption {
	return func(cfg *applyConfig) {
		cfg.stepObserver = observer
	}
}

// Apply runs the steps in order. The first failing step aborts the chain.
func (c Chain) Apply(
	ctx context.Context,
	samples []float32,
	sampleRate audio.SampleRate,
	params Params,
	opts ...ApplyOption,
) (_ret []float32, _err error) {
	logger.Tracef(ctx, "Chain.Apply(%s, len:%d)", c, len(samples))
	defer func() { logger.Tracef(ctx, "/Chain.Apply(%s, len:%d): %v", c, len(samples), _err) }()

	var cfg applyConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	cur := samples
	for idx, step := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		startTS := time.Now()
		out, err := step.Apply(cur, sampleRate, params)
		duration := time.Since(startTS)
		logger.Debugf(ctx, "filter step #%d %s took %v: %v", idx, step, duration, err)
		if cfg.stepObserver != nil {
			cfg.stepObserver(step, duration, err)
		}
		if err != nil {
			return nil, fmt.Errorf("filter step #%d (%s) failed: %w", idx, step, err)
		}
		if len(out) != len(cur) {
			return nil, fmt.Errorf("internal error: filter step #%d (%s) changed the length from %d to %d", idx, step, len(cur), len(out))
		}
		cur = out
	}

	if len(c) == 0 {
		result := make([]float32, len(samples))
		copy(result, samples)
		return result, nil
	}
	return cur, nil
}

// ApplyAll runs DefaultChain.
func ApplyAll(
	ctx context.Context,
	samples []float32,
	sampleRate audio.SampleRate,
	params Params,
	opts ...ApplyOption,
) ([]float32, error) {
	return DefaultChain().Apply(ctx, samples, sampleRate, params, opts...)
}
