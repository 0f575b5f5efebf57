package vorbis

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/nocle/pkg/audio"
	"github.com/xaionaro-go/nocle/pkg/audiofile"
)

const (
	Priority = 50

	readBufferSize = 4096
)

func init() {
	audiofile.RegisterCodec(Priority, Codec{})
}

// Codec decodes Ogg Vorbis files. Encoding is not supported.
type Codec struct{}

var _ audiofile.Decoder = Codec{}

func (Codec) Name() string {
	return "vorbis"
}

func (Codec) Extensions() []string {
	return []string{"ogg", "oga"}
}

func (Codec) Decode(
	ctx context.Context,
	r io.ReadSeeker,
	_ audiofile.DecodeConfig,
) (_ret audio.Waveform, _err error) {
	logger.Tracef(ctx, "Decode")
	defer func() { logger.Tracef(ctx, "/Decode: %v", _err) }()

	oggReader, err := oggvorbis.NewReader(r)
	if err != nil {
		return audio.Waveform{}, fmt.Errorf("unable to initialize a vorbis reader: %w", err)
	}

	channels := oggReader.Channels()
	if channels <= 0 {
		return audio.Waveform{}, fmt.Errorf("invalid amount of channels: %d", channels)
	}
	logger.Debugf(ctx, "vorbis: channels:%d rate:%d", channels, oggReader.SampleRate())

	var samples []float32
	buf := make([]float32, readBufferSize*channels)
	for {
		n, err := oggReader.Read(buf)
		for idx := 0; idx+channels <= n; idx += channels {
			var sum float32
			for ch := 0; ch < channels; ch++ {
				sum += buf[idx+ch]
			}
			samples = append(samples, sum/float32(channels))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return audio.Waveform{}, fmt.Errorf("unable to read vorbis samples: %w", err)
		}
	}

	return audio.NewWaveform(samples, audio.SampleRate(oggReader.SampleRate())), nil
}
