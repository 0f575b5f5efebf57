package inference

import (
	"context"
	"io"
	"strings"

	"github.com/xaionaro-go/nocle/pkg/audio"
)

// Backend selects the runtime that executes the model.
type Backend string

const (
	BackendUndefined     = Backend("")
	BackendFullPrecision = Backend("full-precision")
	BackendQuantized     = Backend("quantized")
	BackendRNNoise       = Backend("rnnoise")
	BackendPassthrough   = Backend("passthrough")
)

func (b Backend) String() string {
	if b == BackendUndefined {
		return "undefined"
	}
	return string(b)
}

func BackendFromString(s string) Backend {
	return Backend(strings.ToLower(strings.Trim(s, " ")))
}

// Model is the opaque per-chunk denoising capability. A call consumes one
// chunk shaped as (1, len(chunk), 1) and returns a chunk of the same length.
// A Model keeps no state between calls.
type Model interface {
	io.Closer

	Backend() Backend
	PredictChunk(ctx context.Context, chunk []float32) ([]float32, error)
}

type Config struct {
	Backend   Backend `yaml:"backend"`
	ModelPath string  `yaml:"model_path"`

	// InputName and OutputName are the tensor names of the model graph.
	InputName  string `yaml:"input_name,omitempty"`
	OutputName string `yaml:"output_name,omitempty"`

	// RuntimeLibraryPath is the path to the shared library of the runtime
	// (if the backend needs one); empty means the platform default.
	RuntimeLibraryPath string `yaml:"runtime_library_path,omitempty"`

	Workers int `yaml:"workers"`

	// ChunkSize and SampleRate are set from the audio configuration.
	ChunkSize  int              `yaml:"-"`
	SampleRate audio.SampleRate `yaml:"-"`
}

const (
	DefaultInputName  = "input"
	DefaultOutputName = "output"
	DefaultModelPath  = "model/nocle.onnx"
)

func DefaultConfig() Config {
	return Config{
		Backend:    BackendFullPrecision,
		ModelPath:  DefaultModelPath,
		InputName:  DefaultInputName,
		OutputName: DefaultOutputName,
		Workers:    1,
	}
}
