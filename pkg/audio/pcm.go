package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

func sampleFloat64(f PCMFormat, p []byte) float64 {
	switch f {
	case PCMFormatS16LE:
		return float64(int16(binary.LittleEndian.Uint16(p))) / 32768
	case PCMFormatFloat32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

// putSampleFloat64 clips integer formats instead of wrapping around.
func putSampleFloat64(f PCMFormat, p []byte, v float64) {
	switch f {
	case PCMFormatS16LE:
		r := math.Round(v * 32768)
		r = math.Max(math.MinInt16, math.Min(math.MaxInt16, r))
		binary.LittleEndian.PutUint16(p, uint16(int16(r)))
	case PCMFormatFloat32LE:
		binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

// DecodePCM converts mono PCM bytes of format f into float32 samples.
func DecodePCM(
	f PCMFormat,
	data []byte,
) ([]float32, error) {
	sampleSize := int(f.Size())
	if sampleSize == 0 {
		return nil, fmt.Errorf("unsupported PCM format: %v", f)
	}
	if len(data)%sampleSize != 0 {
		return nil, fmt.Errorf("the data length %d is not a multiple of %d", len(data), sampleSize)
	}

	result := make([]float32, len(data)/sampleSize)
	for idx := range result {
		result[idx] = float32(sampleFloat64(f, data[idx*sampleSize:]))
	}
	return result, nil
}

// EncodePCM converts mono float32 samples into PCM bytes of format f.
func EncodePCM(
	f PCMFormat,
	samples []float32,
) ([]byte, error) {
	sampleSize := int(f.Size())
	if sampleSize == 0 {
		return nil, fmt.Errorf("unsupported PCM format: %v", f)
	}
	result := make([]byte, len(samples)*sampleSize)
	for idx, v := range samples {
		putSampleFloat64(f, result[idx*sampleSize:], float64(v))
	}
	return result, nil
}
