package filters

import (
	"math"
)

// Wiener is the classical adaptive Wiener filter: every sample is pulled
// towards the mean of the centered window of windowSize samples (zero padded
// at the edges) depending on how the local variance compares with the
// expected noise variance:
//
//	y = mean + (1 - noise/var) * (x - mean)   if var >= noise
//	y = mean                                  otherwise
func Wiener(data []float32, windowSize int, noiseVariance float64) ([]float32, error) {
	if windowSize <= 0 || windowSize%2 == 0 {
		return nil, invalid(StepWiener.String(), "windowSize", windowSize, "must be a positive odd number")
	}
	if !isFinite(noiseVariance) || noiseVariance < 0 {
		return nil, invalid(StepWiener.String(), "noiseVariance", noiseVariance, "must be a non-negative number")
	}

	n := len(data)
	sum := make([]float64, n+1)
	sumSq := make([]float64, n+1)
	for idx, x := range data {
		v := float64(x)
		sum[idx+1] = sum[idx] + v
		sumSq[idx+1] = sumSq[idx] + v*v
	}

	half := windowSize / 2
	size := float64(windowSize)
	result := make([]float32, n)
	for idx, x := range data {
		lo := max(idx-half, 0)
		hi := min(idx+half+1, n)
		mean := (sum[hi] - sum[lo]) / size
		variance := (sumSq[hi]-sumSq[lo])/size - mean*mean

		if variance < noiseVariance || variance <= 0 {
			result[idx] = float32(mean)
			continue
		}
		result[idx] = float32(mean + (1-noiseVariance/variance)*(float64(x)-mean))
	}
	return result, nil
}

// gaussianTruncate is the kernel radius in standard deviations.
const gaussianTruncate = 4.0

func gaussianKernel(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)
	var total float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		kernel[i+radius] = w
		total += w
	}
	for i := range kernel {
		kernel[i] /= total
	}
	return kernel
}

// reflectIndex maps an out of range index by mirroring the signal around its
// edges including the edge sample (d c b a | a b c d | d c b a).
func reflectIndex(i, n int) int {
	period := 2 * n
	m := i % period
	if m < 0 {
		m += period
	}
	if m >= n {
		m = period - 1 - m
	}
	return m
}

// GaussianBlur convolves the signal with a normalized gaussian kernel of
// the given standard deviation truncated at 4 sigma, mirroring the signal at
// the edges.
func GaussianBlur(data []float32, sigma float64) ([]float32, error) {
	if !isFinite(sigma) || sigma <= 0 {
		return nil, invalid(StepGaussianBlur.String(), "sigma", sigma, "must be positive")
	}

	n := len(data)
	result := make([]float32, n)
	if n == 0 {
		return result, nil
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	for idx := range data {
		var acc float64
		for k, w := range kernel {
			j := idx + k - radius
			if j < 0 || j >= n {
				j = reflectIndex(j, n)
			}
			acc += w * float64(data[j])
		}
		result[idx] = float32(acc)
	}
	return result, nil
}
