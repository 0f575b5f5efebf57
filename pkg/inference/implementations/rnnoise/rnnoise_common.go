package rnnoise

import (
	"github.com/xaionaro-go/nocle/pkg/audio"
)

// nativeSampleRate is the only sample rate RNNoise is trained for.
const nativeSampleRate = audio.SampleRate(48_000)
