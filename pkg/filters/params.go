package filters

import (
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/nocle/pkg/audio"
)

const (
	DefaultNoiseGateThreshold  = 0.01
	DefaultExpansionThreshold  = 0.35
	DefaultExpansionRatio      = 1.5
	DefaultSmoothAlpha         = 0.9
	DefaultSpectralWindowSize  = 2048
	DefaultSpectralHopSize     = 512
	DefaultSpectralThreshold   = 1.5
	DefaultWienerSize          = 15
	DefaultWienerNoiseVariance = 0.01
	DefaultGaussianSigma       = 2.0
)

// Params are the parameters of all the filters. Every field is used as is,
// zero included; start from DefaultParams to get the defaults.
type Params struct {
	NoiseGateThreshold float64 `yaml:"noise_gate_threshold"`

	ExpansionThreshold float64 `yaml:"expansion_threshold"`
	ExpansionRatio     float64 `yaml:"expansion_ratio"`

	SmoothAlpha float64 `yaml:"smooth_alpha"`

	SpectralWindowSize int     `yaml:"spectral_window_size"`
	SpectralHopSize    int     `yaml:"spectral_hop_size"`
	SpectralThreshold  float64 `yaml:"spectral_threshold"`

	WienerSize          int     `yaml:"wiener_size"`
	WienerNoiseVariance float64 `yaml:"wiener_noise_variance"`

	GaussianSigma float64 `yaml:"gaussian_sigma"`
}

func DefaultParams() Params {
	return Params{
		NoiseGateThreshold:  DefaultNoiseGateThreshold,
		ExpansionThreshold:  DefaultExpansionThreshold,
		ExpansionRatio:      DefaultExpansionRatio,
		SmoothAlpha:         DefaultSmoothAlpha,
		SpectralWindowSize:  DefaultSpectralWindowSize,
		SpectralHopSize:     DefaultSpectralHopSize,
		SpectralThreshold:   DefaultSpectralThreshold,
		WienerSize:          DefaultWienerSize,
		WienerNoiseVariance: DefaultWienerNoiseVariance,
		GaussianSigma:       DefaultGaussianSigma,
	}
}

func invalid(stage, name string, value any, reason string) audio.ErrInvalidParameter {
	return audio.ErrInvalidParameter{
		Stage:  stage,
		Name:   name,
		Value:  value,
		Reason: reason,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate reports every parameter the filters cannot work with.
func (p Params) Validate() error {
	var mErr *multierror.Error
	if !isFinite(p.NoiseGateThreshold) || p.NoiseGateThreshold < 0 {
		mErr = multierror.Append(mErr, invalid(StepNoiseGate.String(), "threshold", p.NoiseGateThreshold, "must be a non-negative number"))
	}
	if !isFinite(p.ExpansionThreshold) || p.ExpansionThreshold < 0 {
		mErr = multierror.Append(mErr, invalid(StepDynamicExpansion.String(), "threshold", p.ExpansionThreshold, "must be a non-negative number"))
	}
	if !isFinite(p.ExpansionRatio) || p.ExpansionRatio <= 0 {
		mErr = multierror.Append(mErr, invalid(StepDynamicExpansion.String(), "ratio", p.ExpansionRatio, "must be positive"))
	}
	if !isFinite(p.SmoothAlpha) || p.SmoothAlpha <= 0 || p.SmoothAlpha > 1 {
		mErr = multierror.Append(mErr, invalid(StepExponentialSmooth.String(), "alpha", p.SmoothAlpha, "must be in (0, 1]"))
	}
	if p.SpectralWindowSize < 2 {
		mErr = multierror.Append(mErr, invalid(StepSpectralGating.String(), "windowSize", p.SpectralWindowSize, "must be at least 2"))
	}
	if p.SpectralHopSize <= 0 || p.SpectralHopSize > p.SpectralWindowSize {
		mErr = multierror.Append(mErr, invalid(StepSpectralGating.String(), "hopSize", p.SpectralHopSize, "must be in [1, windowSize]"))
	}
	if !isFinite(p.SpectralThreshold) || p.SpectralThreshold < 0 {
		mErr = multierror.Append(mErr, invalid(StepSpectralGating.String(), "threshold", p.SpectralThreshold, "must be a non-negative number"))
	}
	if p.WienerSize <= 0 || p.WienerSize%2 == 0 {
		mErr = multierror.Append(mErr, invalid(StepWiener.String(), "windowSize", p.WienerSize, "must be a positive odd number"))
	}
	if !isFinite(p.WienerNoiseVariance) || p.WienerNoiseVariance < 0 {
		mErr = multierror.Append(mErr, invalid(StepWiener.String(), "noiseVariance", p.WienerNoiseVariance, "must be a non-negative number"))
	}
	if !isFinite(p.GaussianSigma) || p.GaussianSigma <= 0 {
		mErr = multierror.Append(mErr, invalid(StepGaussianBlur.String(), "sigma", p.GaussianSigma, "must be positive"))
	}
	return mErr.ErrorOrNil()
}
