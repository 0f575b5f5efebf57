// Package batcher splits a waveform into fixed size chunks for the model and
// reassembles the model outputs back into a waveform.
package batcher

import (
	"fmt"

	"github.com/xaionaro-go/nocle/pkg/audio"
)

const (
	// DefaultChunkSize is ~0.75s at 16kHz.
	DefaultChunkSize = 12000
)

// Chunk is a contiguous slice of a waveform of exactly the chunk size.
type Chunk []float32

// ChunkCount returns ceil(n/chunkSize).
func ChunkCount(n, chunkSize int) int {
	return (n + chunkSize - 1) / chunkSize
}

// ToChunks splits samples into ceil(len(samples)/chunkSize) chunks, the last
// one right-padded with zeros up to chunkSize. The input is not retained.
func ToChunks(samples []float32, chunkSize int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, audio.ErrInvalidParameter{
			Stage:  "toChunks",
			Name:   "chunkSize",
			Value:  chunkSize,
			Reason: "must be positive",
		}
	}

	chunks := make([]Chunk, 0, ChunkCount(len(samples), chunkSize))
	for offset := 0; offset < len(samples); offset += chunkSize {
		chunk := make(Chunk, chunkSize)
		copy(chunk, samples[offset:])
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// FromChunks concatenates the chunks in order and truncates the result to
// exactly originalLength samples.
func FromChunks(chunks []Chunk, originalLength int) ([]float32, error) {
	if originalLength < 0 {
		return nil, audio.ErrInvalidParameter{
			Stage:  "fromChunks",
			Name:   "originalLength",
			Value:  originalLength,
			Reason: "must not be negative",
		}
	}

	var total int
	for _, chunk := range chunks {
		total += len(chunk)
	}
	if total < originalLength {
		return nil, audio.ErrInvalidParameter{
			Stage:  "fromChunks",
			Name:   "originalLength",
			Value:  originalLength,
			Reason: fmt.Sprintf("the chunks contain only %d samples", total),
		}
	}

	result := make([]float32, 0, total)
	for _, chunk := range chunks {
		result = append(result, chunk...)
		if len(result) >= originalLength {
			break
		}
	}
	return result[:originalLength], nil
}
