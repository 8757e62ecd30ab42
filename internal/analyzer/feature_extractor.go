package analyzer

import "fmt"

// FeatureExtractor runs the three estimators over one buffer and joins their
// outputs into a FeatureVector. The estimators share only the read-only
// buffer, so they run concurrently when a pool is configured.
type FeatureExtractor struct {
	color *ColorIndexAnalyzer
	noise *NoiseEstimator
	edge  *EdgeVarianceEstimator
	pool  *WorkerPool
}

// NewFeatureExtractor builds an extractor. A nil pool runs estimators in sequence.
func NewFeatureExtractor(color *ColorIndexAnalyzer, noise *NoiseEstimator, edge *EdgeVarianceEstimator, pool *WorkerPool) *FeatureExtractor {
	if color == nil {
		color = NewColorIndexAnalyzer()
	}
	if noise == nil {
		noise = NewNoiseEstimator()
	}
	if edge == nil {
		edge = NewEdgeVarianceEstimator()
	}
	return &FeatureExtractor{color: color, noise: noise, edge: edge, pool: pool}
}

// Extract computes all features. rng is consumed only by the noise estimator,
// so the result is reproducible for a given seed whether or not the
// estimators run in parallel.
func (fe *FeatureExtractor) Extract(buf *PixelBuffer, rng RandomSource, meta Metadata) (FeatureVector, error) {
	if buf == nil {
		return FeatureVector{}, fmt.Errorf("%w: nil pixel buffer", ErrInvalidInput)
	}

	var (
		color ColorStats
		noise NoiseResult
		edge  EdgeResult
	)
	jobs := []func(){
		func() { color = fe.color.Analyze(buf) },
		func() { noise = fe.noise.Estimate(buf, rng) },
		func() { edge = fe.edge.Estimate(buf) },
	}

	if fe.pool != nil {
		fe.pool.Run(jobs...)
	} else {
		for _, job := range jobs {
			job()
		}
	}

	return NewFeatureVector(buf.Width(), buf.Height(), color, noise, edge, meta), nil
}
