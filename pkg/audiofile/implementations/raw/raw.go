// Package raw handles headerless mono little-endian PCM files. Such files do
// not store the sample rate, so DecodeConfig.AssumedSampleRate is used.
package raw

import (
	"context"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/nocle/pkg/audio"
	"github.com/xaionaro-go/nocle/pkg/audiofile"
)

const (
	Priority = 10
)

func init() {
	audiofile.RegisterCodec(Priority, Float32Codec{})
	audiofile.RegisterCodec(Priority, S16Codec{})
}

// Float32Codec handles raw float32 little-endian samples.
type Float32Codec struct{}

// S16Codec handles raw signed 16 bit little-endian samples.
type S16Codec struct{}

var (
	_ audiofile.Decoder = Float32Codec{}
	_ audiofile.Encoder = Float32Codec{}
	_ audiofile.Decoder = S16Codec{}
	_ audiofile.Encoder = S16Codec{}
)

func (Float32Codec) Name() string {
	return "raw-" + audio.PCMFormatFloat32LE.String()
}

func (Float32Codec) Extensions() []string {
	return []string{"f32", "raw"}
}

func (Float32Codec) Decode(ctx context.Context, r io.ReadSeeker, cfg audiofile.DecodeConfig) (audio.Waveform, error) {
	return decode(ctx, r, audio.PCMFormatFloat32LE, cfg)
}

func (Float32Codec) Encode(ctx context.Context, w io.WriteSeeker, wf audio.Waveform) error {
	return encode(ctx, w, audio.PCMFormatFloat32LE, wf)
}

func (S16Codec) Name() string {
	return "raw-" + audio.PCMFormatS16LE.String()
}

func (S16Codec) Extensions() []string {
	return []string{"s16", "pcm"}
}

func (S16Codec) Decode(ctx context.Context, r io.ReadSeeker, cfg audiofile.DecodeConfig) (audio.Waveform, error) {
	return decode(ctx, r, audio.PCMFormatS16LE, cfg)
}

func (S16Codec) Encode(ctx context.Context, w io.WriteSeeker, wf audio.Waveform) error {
	return encode(ctx, w, audio.PCMFormatS16LE, wf)
}

func decode(
	ctx context.Context,
	r io.Reader,
	pcmFormat audio.PCMFormat,
	cfg audiofile.DecodeConfig,
) (_ret audio.Waveform, _err error) {
	logger.Tracef(ctx, "decode(%v)", pcmFormat)
	defer func() { logger.Tracef(ctx, "/decode(%v): %v", pcmFormat, _err) }()

	if cfg.AssumedSampleRate == 0 {
		return audio.Waveform{}, fmt.Errorf("the sample rate is not stored in raw files, and no sample rate is assumed")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("unable to read: %w", err)
	}
	samples, err := audio.DecodePCM(pcmFormat, data)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("unable to decode %v samples: %w", pcmFormat, err)
	}
	return audio.NewWaveform(samples, cfg.AssumedSampleRate), nil
}

func encode(
	ctx context.Context,
	w io.Writer,
	pcmFormat audio.PCMFormat,
	wf audio.Waveform,
) (_err error) {
	logger.Tracef(ctx, "encode(%v)", pcmFormat)
	defer func() { logger.Tracef(ctx, "/encode(%v): %v", pcmFormat, _err) }()

	data, err := audio.EncodePCM(pcmFormat, wf.Samples)
	if err != nil {
		return fmt.Errorf("unable to encode %v samples: %w", pcmFormat, err)
	}

	wc := datacounter.NewWriterCounter(w)
	if _, err := wc.Write(data); err != nil {
		return fmt.Errorf("unable to write (written %d of %d bytes): %w", wc.Count(), len(data), err)
	}
	logger.Debugf(ctx, "written: %d", wc.Count())
	return nil
}
