// Package onnxruntime runs the denoising model with ONNX Runtime.
//
// The same implementation serves two backends: "full-precision" (a float32
// model, default session options) and "quantized" (a model with quantized
// weights and float32 I/O, executed by a single-threaded session).
package onnxruntime

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	ort "github.com/yalue/onnxruntime_go"
	"github.com/xaionaro-go/nocle/pkg/inference"
)

func init() {
	for _, backend := range []inference.Backend{inference.BackendFullPrecision, inference.BackendQuantized} {
		inference.RegisterBackend(backend, func(ctx context.Context, cfg inference.Config) (inference.Model, error) {
			model, err := New(ctx, backend, cfg)
			if err != nil {
				return nil, err
			}
			return model, nil
		})
	}
}

var (
	environmentOnce sync.Once
	environmentErr  error
)

func initEnvironment(ctx context.Context, libraryPath string) error {
	environmentOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		environmentErr = ort.InitializeEnvironment()
		logger.Debugf(ctx, "ONNX Runtime environment initialization (library: '%s'): %v", libraryPath, environmentErr)
	})
	return environmentErr
}

type ONNXRuntime struct {
	Locker sync.Mutex

	backend   inference.Backend
	chunkSize int
	options   *ort.SessionOptions
	input     *ort.Tensor[float32]
	output    *ort.Tensor[float32]
	session   *ort.AdvancedSession
}

var _ inference.Model = (*ONNXRuntime)(nil)

func New(
	ctx context.Context,
	backend inference.Backend,
	cfg inference.Config,
) (_ret *ONNXRuntime, _err error) {
	logger.Tracef(ctx, "New(%s, '%s')", backend, cfg.ModelPath)
	defer func() { logger.Tracef(ctx, "/New(%s, '%s'): %v", backend, cfg.ModelPath, _err) }()

	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("the model path is not set")
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	inputName, outputName := cfg.InputName, cfg.OutputName
	if inputName == "" {
		inputName = inference.DefaultInputName
	}
	if outputName == "" {
		outputName = inference.DefaultOutputName
	}

	if err := initEnvironment(ctx, cfg.RuntimeLibraryPath); err != nil {
		return nil, fmt.Errorf("unable to initialize the ONNX Runtime environment: %w", err)
	}

	m := &ONNXRuntime{
		backend:   backend,
		chunkSize: cfg.ChunkSize,
	}
	defer func() {
		if _err != nil {
			m.Close()
		}
	}()

	if backend == inference.BackendQuantized {
		options, err := ort.NewSessionOptions()
		if err != nil {
			return nil, fmt.Errorf("unable to create session options: %w", err)
		}
		m.options = options
		if err := options.SetIntraOpNumThreads(1); err != nil {
			return nil, fmt.Errorf("unable to set the amount of intra-op threads: %w", err)
		}
		if err := options.SetInterOpNumThreads(1); err != nil {
			return nil, fmt.Errorf("unable to set the amount of inter-op threads: %w", err)
		}
	}

	shape := ort.NewShape(1, int64(cfg.ChunkSize), 1)
	input, err := ort.NewTensor(shape, make([]float32, cfg.ChunkSize))
	if err != nil {
		return nil, fmt.Errorf("unable to create the input tensor %v: %w", shape, err)
	}
	m.input = input

	output, err := ort.NewEmptyTensor[float32](shape)
	if err != nil {
		return nil, fmt.Errorf("unable to create the output tensor %v: %w", shape, err)
	}
	m.output = output

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inputName},
		[]string{outputName},
		[]ort.Value{m.input},
		[]ort.Value{m.output},
		m.options,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load the model '%s': %w", cfg.ModelPath, err)
	}
	m.session = session

	logger.Debugf(ctx, "loaded model '%s' as backend %s, tensor shape %v", cfg.ModelPath, backend, shape)
	return m, nil
}

func (m *ONNXRuntime) Backend() inference.Backend {
	return m.backend
}

// PredictChunk runs the model on a single chunk. The tensors are shared
// between calls, so concurrent calls are serialized.
func (m *ONNXRuntime) PredictChunk(
	ctx context.Context,
	chunk []float32,
) (_ret []float32, _err error) {
	logger.Tracef(ctx, "PredictChunk(len:%d)", len(chunk))
	defer func() { logger.Tracef(ctx, "/PredictChunk(len:%d): %v", len(chunk), _err) }()

	if len(chunk) != m.chunkSize {
		return nil, fmt.Errorf("the chunk length %d is not equal to the model input length %d", len(chunk), m.chunkSize)
	}

	m.Locker.Lock()
	defer m.Locker.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("the model is closed")
	}

	copy(m.input.GetData(), chunk)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("unable to run the model: %w", err)
	}

	result := make([]float32, m.chunkSize)
	copy(result, m.output.GetData())
	return result, nil
}

func (m *ONNXRuntime) Close() error {
	m.Locker.Lock()
	defer m.Locker.Unlock()

	var mErr *multierror.Error
	if m.session != nil {
		if err := m.session.Destroy(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to destroy the session: %w", err))
		}
		m.session = nil
	}
	if m.input != nil {
		if err := m.input.Destroy(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to destroy the input tensor: %w", err))
		}
		m.input = nil
	}
	if m.output != nil {
		if err := m.output.Destroy(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to destroy the output tensor: %w", err))
		}
		m.output = nil
	}
	if m.options != nil {
		if err := m.options.Destroy(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to destroy the session options: %w", err))
		}
		m.options = nil
	}
	return mErr.ErrorOrNil()
}
