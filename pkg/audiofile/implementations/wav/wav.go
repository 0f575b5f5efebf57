package wav

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/xaionaro-go/nocle/pkg/audio"
	"github.com/xaionaro-go/nocle/pkg/audiofile"
)

const (
	Priority = 100

	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

func init() {
	audiofile.RegisterCodec(Priority, Codec{})
}

// Codec reads integer (8/16/24/32 bit) and IEEE float (32 bit) WAV files and
// writes IEEE float 32 bit ones.
type Codec struct{}

var (
	_ audiofile.Decoder = Codec{}
	_ audiofile.Encoder = Codec{}
)

func (Codec) Name() string {
	return "wav"
}

func (Codec) Extensions() []string {
	return []string{"wav", "wave"}
}

func (Codec) Decode(
	ctx context.Context,
	r io.ReadSeeker,
	_ audiofile.DecodeConfig,
) (_ret audio.Waveform, _err error) {
	logger.Tracef(ctx, "Decode")
	defer func() { logger.Tracef(ctx, "/Decode: %v", _err) }()

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return audio.Waveform{}, fmt.Errorf("not a valid WAV file: %w", err)
		}
		return audio.Waveform{}, fmt.Errorf("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("unable to read PCM data: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return audio.Waveform{}, fmt.Errorf("no PCM data")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return audio.Waveform{}, fmt.Errorf("invalid amount of channels: %d", channels)
	}
	logger.Debugf(ctx, "WAV: format:%d depth:%d channels:%d rate:%d values:%d",
		dec.WavAudioFormat, dec.BitDepth, channels, buf.Format.SampleRate, len(buf.Data))

	toFloat, err := sampleConverter(dec.WavAudioFormat, int(dec.BitDepth))
	if err != nil {
		return audio.Waveform{}, err
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for idx := range samples {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += toFloat(buf.Data[idx*channels+ch])
		}
		samples[idx] = float32(sum / float64(channels))
	}

	return audio.NewWaveform(samples, audio.SampleRate(buf.Format.SampleRate)), nil
}

func sampleConverter(wavFormat uint16, bitDepth int) (func(int) float64, error) {
	switch wavFormat {
	case formatPCM, formatExtensible:
		switch bitDepth {
		case 8:
			// 8 bit WAV is unsigned
			return func(v int) float64 { return (float64(v) - 128) / 128 }, nil
		case 16:
			return func(v int) float64 { return float64(v) / 32768 }, nil
		case 24:
			return func(v int) float64 { return float64(v) / 8388608 }, nil
		case 32:
			return func(v int) float64 { return float64(int32(v)) / 2147483648 }, nil
		}
	case formatIEEEFloat:
		if bitDepth == 32 {
			return func(v int) float64 { return float64(math.Float32frombits(uint32(int32(v)))) }, nil
		}
	}
	return nil, fmt.Errorf("unsupported WAV sample format %d with bit depth %d", wavFormat, bitDepth)
}

func (Codec) Encode(
	ctx context.Context,
	w io.WriteSeeker,
	wf audio.Waveform,
) (_err error) {
	logger.Tracef(ctx, "Encode(len:%d)", wf.Len())
	defer func() { logger.Tracef(ctx, "/Encode(len:%d): %v", wf.Len(), _err) }()

	enc := wav.NewEncoder(w, int(wf.SampleRate), 32, 1, formatIEEEFloat)

	data := make([]int, wf.Len())
	for idx, v := range wf.Samples {
		data[idx] = int(int32(math.Float32bits(v)))
	}
	err := enc.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(wf.SampleRate),
		},
		Data:           data,
		SourceBitDepth: 32,
	})
	if err != nil {
		enc.Close()
		return fmt.Errorf("unable to write %d samples: %w", len(data), err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to finalize the WAV header: %w", err)
	}
	return nil
}
