package analyzer

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// EdgeResult holds the Laplacian variance and the grayscale histogram entropy.
type EdgeResult struct {
	LapVar  float64 `json:"lapVar"`
	Entropy float64 `json:"entropy"`
}

// EdgeVarianceEstimator measures texture as the variance of a 3x3 Laplacian
// response. Low values indicate smoothed or low-detail images.
type EdgeVarianceEstimator struct{}

// NewEdgeVarianceEstimator creates a new edge variance estimator
func NewEdgeVarianceEstimator() *EdgeVarianceEstimator {
	return &EdgeVarianceEstimator{}
}

// Estimate computes both texture measures from its own grayscale copy.
func (e *EdgeVarianceEstimator) Estimate(buf *PixelBuffer) EdgeResult {
	luma := buf.Luma()
	return EdgeResult{
		LapVar:  e.laplacianVariance(luma, buf.Width(), buf.Height()),
		Entropy: grayEntropy(luma),
	}
}

// LaplacianVariance returns the population variance of the response to
// [[0,1,0],[1,-4,1],[0,1,0]]. Only interior pixels are convolved; the one
// pixel border stays zero and is still counted in the variance, which keeps
// the thresholds calibrated against the reference detector.
func (e *EdgeVarianceEstimator) LaplacianVariance(buf *PixelBuffer) float64 {
	return e.laplacianVariance(buf.Luma(), buf.Width(), buf.Height())
}

func (e *EdgeVarianceEstimator) laplacianVariance(luma []int32, width, height int) float64 {
	response := make([]float64, len(luma))
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			v := luma[i-width] + luma[i-1] + luma[i+1] + luma[i+width] - 4*luma[i]
			response[i] = float64(v) / lumaScale
		}
	}
	if len(response) == 0 {
		return 0
	}
	return stat.PopVariance(response, nil)
}

// grayEntropy is the Shannon entropy in bits of the 256-bin histogram of
// rounded luminance values.
func grayEntropy(luma []int32) float64 {
	if len(luma) == 0 {
		return 0
	}
	var hist [256]int
	for _, v := range luma {
		bin := (v + lumaScale/2) / lumaScale
		hist[min(255, max(0, int(bin)))]++
	}

	total := float64(len(luma))
	var entropy float64
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
