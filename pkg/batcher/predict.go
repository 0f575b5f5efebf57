package batcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
)

// ChunkPredictor is the per-chunk model capability.
type ChunkPredictor interface {
	PredictChunk(ctx context.Context, chunk []float32) ([]float32, error)
}

// ChunkPredictorFunc allows to use a plain function as a ChunkPredictor.
type ChunkPredictorFunc func(ctx context.Context, chunk []float32) ([]float32, error)

func (fn ChunkPredictorFunc) PredictChunk(ctx context.Context, chunk []float32) ([]float32, error) {
	return fn(ctx, chunk)
}

// Predict splits samples into chunks, predicts every chunk and reassembles
// the outputs into exactly len(samples) samples.
//
// With workers > 1 the chunks are predicted concurrently, but output chunk i
// always lands at position i. The first failure cancels the rest and is
// returned; no partial result is returned in this case.
func Predict(
	ctx context.Context,
	model ChunkPredictor,
	samples []float32,
	chunkSize int,
	workers int,
) (_ret []float32, _err error) {
	logger.Tracef(ctx, "Predict(len:%d, chunkSize:%d, workers:%d)", len(samples), chunkSize, workers)
	defer func() {
		logger.Tracef(ctx, "/Predict(len:%d, chunkSize:%d, workers:%d): %v", len(samples), chunkSize, workers, _err)
	}()

	chunks, err := ToChunks(samples, chunkSize)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}

	outputs := make([]Chunk, len(chunks))
	predictOne := func(ctx context.Context, idx int) error {
		out, err := model.PredictChunk(ctx, chunks[idx])
		if err != nil {
			return fmt.Errorf("unable to predict chunk #%d of %d: %w", idx, len(chunks), err)
		}
		if len(out) != len(chunks[idx]) {
			return fmt.Errorf("chunk #%d: the model returned %d samples instead of %d", idx, len(out), len(chunks[idx]))
		}
		outputs[idx] = out
		return nil
	}

	if workers <= 1 {
		for idx := range chunks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := predictOne(ctx, idx); err != nil {
				return nil, err
			}
		}
		return FromChunks(outputs, len(samples))
	}

	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	var (
		errLocker sync.Mutex
		firstErr  error
	)
	setErr := func(err error) {
		errLocker.Lock()
		defer errLocker.Unlock()
		if firstErr == nil {
			firstErr = err
			cancelFn()
		}
	}

	queue := make(chan int)
	var wg sync.WaitGroup
	for workerIdx := 0; workerIdx < workers; workerIdx++ {
		wg.Add(1)
		observability.Go(ctx, func() {
			defer wg.Done()
			for idx := range queue {
				if ctx.Err() != nil {
					continue
				}
				if err := predictOne(ctx, idx); err != nil {
					setErr(err)
				}
			}
		})
	}

	for idx := range chunks {
		if ctx.Err() != nil {
			break
		}
		queue <- idx
	}
	close(queue)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "predicted %d chunks using %d workers", len(chunks), workers)
	return FromChunks(outputs, len(samples))
}
