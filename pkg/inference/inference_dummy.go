package inference

import (
	"context"
)

func init() {
	RegisterBackend(BackendPassthrough, func(context.Context, Config) (Model, error) {
		return NewPassthrough(), nil
	})
}

// Passthrough is the identity model.
type Passthrough struct{}

var _ Model = (*Passthrough)(nil)

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (*Passthrough) Close() error {
	return nil
}

func (*Passthrough) Backend() Backend {
	return BackendPassthrough
}

func (*Passthrough) PredictChunk(_ context.Context, chunk []float32) ([]float32, error) {
	out := make([]float32, len(chunk))
	copy(out, chunk)
	return out, nil
}
