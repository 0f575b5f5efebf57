package audio

import (
	"fmt"
	"time"
)

type SampleRate uint32

func (r SampleRate) String() string {
	return fmt.Sprintf("%dHz", uint32(r))
}

// SamplesForDuration returns how many samples of a single channel
// fit into the given duration.
func (r SampleRate) SamplesForDuration(d time.Duration) uint64 {
	return uint64(d) * uint64(r) / uint64(time.Second)
}

// DurationForSamples is the inverse of SamplesForDuration.
func (r SampleRate) DurationForSamples(n uint64) time.Duration {
	if r == 0 {
		return 0
	}
	return time.Duration(n * uint64(time.Second) / uint64(r))
}

type PCMFormat uint

const (
	PCMFormatUndefined = PCMFormat(iota)
	PCMFormatS16LE
	PCMFormatFloat32LE
)

// Size returns the size of a single sample in bytes.
func (f PCMFormat) Size() uint {
	switch f {
	case PCMFormatS16LE:
		return 2
	case PCMFormatFloat32LE:
		return 4
	default:
		return 0
	}
}

func (f PCMFormat) String() string {
	switch f {
	case PCMFormatUndefined:
		return "undefined"
	case PCMFormatS16LE:
		return "s16le"
	case PCMFormatFloat32LE:
		return "f32le"
	default:
		return fmt.Sprintf("unknown_format_%d", uint(f))
	}
}
