//go:build !rnnoise
// +build !rnnoise

package rnnoise

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/nocle/pkg/inference"
)

func init() {
	inference.RegisterBackend(inference.BackendRNNoise, func(ctx context.Context, cfg inference.Config) (inference.Model, error) {
		m, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

type RNNoise = inference.Passthrough

func New(
	cfg inference.Config,
) (*RNNoise, error) {
	return nil, fmt.Errorf("built without tag 'rnnoise' (expected %v input)", nativeSampleRate)
}
