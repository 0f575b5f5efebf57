package audiofile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/nocle/pkg/audio"
)

// Load decodes a whole audio file into a mono waveform at the file's own
// sample rate. Any failure (including an empty file) is an audio.ErrDecode.
func Load(
	ctx context.Context,
	path string,
	opts ...Option,
) (_ret audio.Waveform, _err error) {
	logger.Tracef(ctx, "Load(%s)", path)
	defer func() { logger.Tracef(ctx, "/Load(%s): %v", path, _err) }()

	cfg := defaultDecodeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	decoder, err := DecoderForPath(path)
	if err != nil {
		return audio.Waveform{}, audio.ErrDecode{Path: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return audio.Waveform{}, audio.ErrDecode{Path: path, Err: err}
	}
	defer f.Close()

	wf, err := decoder.Decode(ctx, f, cfg)
	if err != nil {
		return audio.Waveform{}, audio.ErrDecode{
			Path: path,
			Err:  fmt.Errorf("unable to decode as %s: %w", decoder.Name(), err),
		}
	}
	if wf.Len() == 0 {
		return audio.Waveform{}, audio.ErrDecode{Path: path, Err: fmt.Errorf("no samples")}
	}
	if wf.SampleRate == 0 {
		return audio.Waveform{}, audio.ErrDecode{Path: path, Err: fmt.Errorf("the sample rate is zero")}
	}

	logger.Debugf(ctx, "loaded '%s' (%s): %d samples at %v", path, decoder.Name(), wf.Len(), wf.SampleRate)
	return wf, nil
}

// Save encodes the waveform into path, replacing the file if it exists.
//
// The data is written into a temporary file in the same directory first and
// renamed into place only on success, so a failure never leaves a partially
// written file at path.
func Save(
	ctx context.Context,
	wf audio.Waveform,
	path string,
) (_err error) {
	logger.Tracef(ctx, "Save(%s)", path)
	defer func() { logger.Tracef(ctx, "/Save(%s): %v", path, _err) }()

	if wf.SampleRate == 0 {
		return audio.ErrInvalidParameter{
			Stage:  "save",
			Name:   "sampleRate",
			Value:  wf.SampleRate,
			Reason: "must be positive",
		}
	}

	encoder, err := EncoderForPath(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create a temporary file next to '%s': %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if _err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := encoder.Encode(ctx, tmp, wf); err != nil {
		return fmt.Errorf("unable to encode as %s: %w", encoder.Name(), err)
	}
	if err := tmp.Chmod(0640); err != nil {
		return fmt.Errorf("unable to chmod '%s': %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close '%s': %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("unable to rename '%s' to '%s': %w", tmpPath, path, err)
	}

	logger.Debugf(ctx, "saved '%s' (%s): %d samples at %v", path, encoder.Name(), wf.Len(), wf.SampleRate)
	return nil
}
