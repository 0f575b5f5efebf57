package inference

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/nocle/pkg/audio"
)

// Adapter gives every backend the same contract: the output has the length
// of the input and every failure is an audio.ErrInference.
type Adapter struct {
	Model Model
}

var _ Model = (*Adapter)(nil)

func NewAdapter(model Model) *Adapter {
	return &Adapter{
		Model: model,
	}
}

func (a *Adapter) Backend() Backend {
	return a.Model.Backend()
}

func (a *Adapter) Close() error {
	return a.Model.Close()
}

func (a *Adapter) PredictChunk(
	ctx context.Context,
	chunk []float32,
) (_ret []float32, _err error) {
	logger.Tracef(ctx, "PredictChunk(%s, len:%d)", a.Backend(), len(chunk))
	defer func() { logger.Tracef(ctx, "/PredictChunk(%s, len:%d): %v", a.Backend(), len(chunk), _err) }()

	out, err := a.Model.PredictChunk(ctx, chunk)
	if err != nil {
		return nil, audio.ErrInference{
			Backend: a.Backend().String(),
			Err:     err,
		}
	}
	if len(out) != len(chunk) {
		return nil, audio.ErrInference{
			Backend: a.Backend().String(),
			Err:     fmt.Errorf("the output length %d is not equal to the input length %d", len(out), len(chunk)),
		}
	}
	return out, nil
}
