//go:build rnnoise
// +build rnnoise

package rnnoise

import (
	"context"
	"fmt"
	"math"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/nocle/pkg/audio"
	"github.com/xaionaro-go/nocle/pkg/audio/resampler"
	"github.com/xaionaro-go/nocle/pkg/inference"
)

/*
#cgo pkg-config: rnnoise
#cgo CFLAGS: -march=native
#include <rnnoise.h>
*/
import "C"

var frameSize int

func init() {
	frameSize = int(C.rnnoise_get_frame_size())
	inference.RegisterBackend(inference.BackendRNNoise, func(ctx context.Context, cfg inference.Config) (inference.Model, error) {
		m, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// RNNoise runs the compiled RNNoise network. It works at 48kHz, so chunks
// are resampled from SampleRate and back.
type RNNoise struct {
	SampleRate audio.SampleRate
}

var _ inference.Model = (*RNNoise)(nil)

// New creates the model for chunks at cfg.SampleRate (the default rate
// if unset).
func New(
	cfg inference.Config,
) (*RNNoise, error) {
	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &RNNoise{
		SampleRate: sampleRate,
	}, nil
}

func (*RNNoise) Backend() inference.Backend {
	return inference.BackendRNNoise
}

func (*RNNoise) Close() error {
	return nil
}

// PredictChunk denoises the chunk with a fresh denoise state, so calls are
// independent of each other and may run concurrently.
func (s *RNNoise) PredictChunk(
	ctx context.Context,
	chunk []float32,
) (_ret []float32, _err error) {
	logger.Tracef(ctx, "PredictChunk, len:%d", len(chunk))
	defer func() { logger.Tracef(ctx, "/PredictChunk, len:%d: %v", len(chunk), _err) }()

	upsampled, err := resampler.Resample(ctx, audio.NewWaveform(chunk, s.SampleRate), nativeSampleRate)
	if err != nil {
		return nil, fmt.Errorf("unable to resample to %v: %w", nativeSampleRate, err)
	}

	frames := (upsampled.Len() + frameSize - 1) / frameSize
	buf := make([]float32, frames*frameSize)
	gain(buf, upsampled.Samples)

	denoiseState := C.rnnoise_create(nil)
	if denoiseState == nil {
		return nil, fmt.Errorf("unable to create a denoise state")
	}
	defer C.rnnoise_destroy(denoiseState)

	var maxVADProb float64
	for offset := 0; offset < len(buf); offset += frameSize {
		frame := buf[offset : offset+frameSize]
		vadProb := C.rnnoise_process_frame(
			denoiseState,
			(*C.float)(unsafe.Pointer(unsafe.SliceData(frame))),
			(*C.float)(unsafe.Pointer(unsafe.SliceData(frame))),
		)
		if float64(vadProb) > maxVADProb {
			maxVADProb = float64(vadProb)
		}
	}
	ungain(buf)
	logger.Tracef(ctx, "frames:%d, max VAD probability: %f", frames, maxVADProb)

	downsampled, err := resampler.Resample(ctx, audio.NewWaveform(buf[:upsampled.Len()], nativeSampleRate), s.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("unable to resample back to %v: %w", s.SampleRate, err)
	}

	result := make([]float32, len(chunk))
	copy(result, downsampled.Samples)
	return result, nil
}

func gain(dst, src []float32) {
	for idx := range src {
		dst[idx] = src[idx] * math.MaxInt16
	}
}

func ungain(buf []float32) {
	for idx := range buf {
		buf[idx] /= math.MaxInt16
	}
}
