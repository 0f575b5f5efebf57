package audiofile

import (
	"context"
	"io"

	"github.com/xaionaro-go/nocle/pkg/audio"
)

// Codec is a container format handler. A codec may implement Decoder,
// Encoder or both.
type Codec interface {
	Name() string
	Extensions() []string
}

// Decoder reads a whole container into a mono waveform, down-mixing
// multi-channel input by averaging.
type Decoder interface {
	Codec
	Decode(ctx context.Context, r io.ReadSeeker, cfg DecodeConfig) (audio.Waveform, error)
}

// Encoder writes a mono waveform as a container with float samples
// (where the container supports it).
type Encoder interface {
	Codec
	Encode(ctx context.Context, w io.WriteSeeker, wf audio.Waveform) error
}

type DecodeConfig struct {
	// AssumedSampleRate is used by containers that do not store
	// the sample rate.
	AssumedSampleRate audio.SampleRate
}

type Option func(*DecodeConfig)

func OptionAssumedSampleRate(rate audio.SampleRate) Option {
	return func(cfg *DecodeConfig) {
		cfg.AssumedSampleRate = rate
	}
}

func defaultDecodeConfig() DecodeConfig {
	return DecodeConfig{
		AssumedSampleRate: audio.DefaultSampleRate,
	}
}
