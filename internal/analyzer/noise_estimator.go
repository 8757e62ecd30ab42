package analyzer

import (
	"math/rand/v2"
	"sort"
)

// RandomSource is the subset of *rand.Rand the noise estimator consumes.
// Inject a seeded generator for reproducible estimates.
type RandomSource interface {
	IntN(n int) int
}

// NoiseResult holds the raw median residual and its normalised form.
type NoiseResult struct {
	Raw        float64 `json:"noiseRaw"`
	Normalized float64 `json:"noiseNormalized"`
}

// NoiseEstimator approximates pixel-level noise as the median absolute
// difference between the grayscale image and its box-blurred copy. Heavily
// smoothed (often synthetic) images score low.
type NoiseEstimator struct {
	Radius           int
	MaxSamples       int
	NormalizationMax float64
}

// NewNoiseEstimator returns an estimator with a 7x7 window, 2000 samples and
// an expected noise maximum of 30.
func NewNoiseEstimator() *NoiseEstimator {
	return &NoiseEstimator{
		Radius:           3,
		MaxSamples:       2000,
		NormalizationMax: 30,
	}
}

// Estimate computes the noise proxy. rng drives the median sampling; a nil rng
// falls back to the process-wide source and gives non-reproducible results.
func (e *NoiseEstimator) Estimate(buf *PixelBuffer, rng RandomSource) NoiseResult {
	if rng == nil {
		rng = globalSource{}
	}
	residuals := e.Residuals(buf)
	raw := e.sampleMedian(residuals, rng)
	return NoiseResult{Raw: raw, Normalized: e.Normalize(raw)}
}

// Normalize maps a raw residual onto [0,1].
func (e *NoiseEstimator) Normalize(raw float64) float64 {
	if e.NormalizationMax <= 0 || raw <= 0 {
		return 0
	}
	return min(1, raw/e.NormalizationMax)
}

// Residuals returns |gray - blur| per pixel, where blur is a separable
// (2r+1)x(2r+1) box filter with clamp-to-edge sampling.
func (e *NoiseEstimator) Residuals(buf *PixelBuffer) []float64 {
	width, height := buf.Width(), buf.Height()
	luma := buf.Luma()
	r := max(0, e.Radius)
	window := int64(2*r + 1)

	// Both passes keep unnormalised window sums so that the blur of a flat
	// region equals the region exactly.
	horizontal := make([]int64, len(luma))
	for y := 0; y < height; y++ {
		row := luma[y*width : (y+1)*width]
		out := horizontal[y*width : (y+1)*width]
		var sum int64
		for x := -r; x <= r; x++ {
			sum += int64(row[clampIndex(x, width)])
		}
		for x := 0; x < width; x++ {
			out[x] = sum
			sum += int64(row[clampIndex(x+r+1, width)]) - int64(row[clampIndex(x-r, width)])
		}
	}

	residuals := make([]float64, len(luma))
	scale := float64(window * window * lumaScale)
	for x := 0; x < width; x++ {
		var sum int64
		for y := -r; y <= r; y++ {
			sum += horizontal[clampIndex(y, height)*width+x]
		}
		for y := 0; y < height; y++ {
			i := y*width + x
			diff := int64(luma[i])*window*window - sum
			if diff < 0 {
				diff = -diff
			}
			residuals[i] = float64(diff) / scale
			sum += horizontal[clampIndex(y+r+1, height)*width+x] - horizontal[clampIndex(y-r, height)*width+x]
		}
	}
	return residuals
}

// sampleMedian draws min(MaxSamples, len) values with replacement, sorts them
// and returns the middle element, the lower of the two on even counts.
func (e *NoiseEstimator) sampleMedian(values []float64, rng RandomSource) float64 {
	if len(values) == 0 {
		return 0
	}
	n := len(values)
	if e.MaxSamples > 0 && e.MaxSamples < n {
		n = e.MaxSamples
	}
	sample := make([]float64, n)
	for i := range sample {
		sample[i] = values[rng.IntN(len(values))]
	}
	sort.Float64s(sample)
	return sample[(n-1)/2]
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }
