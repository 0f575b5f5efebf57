package filters

import (
	"math"
	"math/cmplx"

	"github.com/brettbuddin/fourier"
	"github.com/mjibson/go-dsp/fft"
)

// useRadix2 reports whether the radix-2 transform handles the length; it
// leaves buffers of length 2 untransformed.
func useRadix2(n int) bool {
	return n > 2 && n&(n-1) == 0
}

// forwardFFT uses the radix-2 transform where possible and the generic one
// otherwise. The input is not modified.
func forwardFFT(x []complex128) ([]complex128, error) {
	if !useRadix2(len(x)) {
		return fft.FFT(x), nil
	}
	buf := make([]complex128, len(x))
	copy(buf, x)
	if err := fourier.Forward(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// inverseFFT is normalized by 1/N.
func inverseFFT(x []complex128) ([]complex128, error) {
	if !useRadix2(len(x)) {
		return fft.IFFT(x), nil
	}
	buf := make([]complex128, len(x))
	for i, v := range x {
		buf[i] = cmplx.Conj(v)
	}
	if err := fourier.Forward(buf); err != nil {
		return nil, err
	}
	scale := 1 / float64(len(x))
	for i, v := range buf {
		buf[i] = complex(real(v)*scale, -imag(v)*scale)
	}
	return buf, nil
}

// hannWindow is the periodic Hann window (the one used for spectral
// analysis, as opposed to the symmetric one used for filter design).
func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size))
	}
	return w
}

// spectrogram is a one-sided short-time spectrum: frames[t][k] is bin k of
// the frame starting at t*hopSize of the padded signal.
type spectrogram struct {
	windowSize int
	hopSize    int
	window     []float64
	frames     [][]complex128
}

func (s *spectrogram) bins() int {
	return s.windowSize/2 + 1
}

// stft computes the spectrogram of the signal centered by padding
// windowSize/2 zeros on both sides, so the frame t is centered at
// the sample t*hopSize.
func stft(signal []float32, windowSize, hopSize int) (*spectrogram, error) {
	pad := windowSize / 2
	padded := make([]float64, len(signal)+2*pad)
	for idx, v := range signal {
		padded[pad+idx] = float64(v)
	}

	s := &spectrogram{
		windowSize: windowSize,
		hopSize:    hopSize,
		window:     hannWindow(windowSize),
	}
	frameCount := 1 + (len(padded)-windowSize)/hopSize
	s.frames = make([][]complex128, frameCount)

	buf := make([]complex128, windowSize)
	for t := range s.frames {
		offset := t * hopSize
		for i := range buf {
			buf[i] = complex(padded[offset+i]*s.window[i], 0)
		}
		spectrum, err := forwardFFT(buf)
		if err != nil {
			return nil, err
		}
		s.frames[t] = spectrum[:s.bins()]
	}
	return s, nil
}

// istft reconstructs length samples by the windowed overlap-add of the
// inverse transforms of the frames, normalized by the sum of the squared
// window. Positions with no window coverage are left as zeros.
func (s *spectrogram) istft(length int) ([]float32, error) {
	n := s.windowSize
	total := n + s.hopSize*(len(s.frames)-1)
	acc := make([]float64, total)
	windowSum := make([]float64, total)

	full := make([]complex128, n)
	for t, frame := range s.frames {
		copy(full, frame)
		for k := 1; k < len(frame); k++ {
			if n-k >= len(frame) {
				full[n-k] = cmplx.Conj(frame[k])
			}
		}
		// the imaginary parts of DC (and of Nyquist for even sizes) do not
		// exist in a real signal
		full[0] = complex(real(full[0]), 0)
		if n%2 == 0 {
			full[n/2] = complex(real(full[n/2]), 0)
		}

		timeDomain, err := inverseFFT(full)
		if err != nil {
			return nil, err
		}
		offset := t * s.hopSize
		for i, v := range timeDomain {
			w := s.window[i]
			acc[offset+i] += real(v) * w
			windowSum[offset+i] += w * w
		}
	}

	pad := n / 2
	result := make([]float32, length)
	for idx := range result {
		p := pad + idx
		if p >= total {
			break
		}
		if windowSum[p] > windowSumEpsilon {
			result[idx] = float32(acc[p] / windowSum[p])
		} else {
			result[idx] = float32(acc[p])
		}
	}
	return result, nil
}

// windowSumEpsilon is the smallest positive normal float32.
const windowSumEpsilon = 1.1754943508222875e-38
