package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/anime-shed/synthscan/internal/logger"

	"github.com/corona10/goimagehash"
	"github.com/sirupsen/logrus"
)

// ErrInvalidOptions is returned when AnalysisOptions fail validation.
var ErrInvalidOptions = errors.New("invalid analysis options")

// coreAnalyzer implements ImageAnalyzer: decode, downscale, extract, score.
type coreAnalyzer struct {
	workerPool *WorkerPool
	parallel   *FeatureExtractor
	sequential *FeatureExtractor
	markers    MarkerExtractor
}

// NewImageAnalyzer creates a new image analyzer with all components. markers
// may be nil, in which case no EXIF marker is ever reported.
func NewImageAnalyzer(markers MarkerExtractor, workers int) (ImageAnalyzer, error) {
	workerPool := NewWorkerPool(workers)
	workerPool.Start()

	color := NewColorIndexAnalyzer()
	noise := NewNoiseEstimator()
	edge := NewEdgeVarianceEstimator()

	return &coreAnalyzer{
		workerPool: workerPool,
		parallel:   NewFeatureExtractor(color, noise, edge, workerPool),
		sequential: NewFeatureExtractor(color, noise, edge, nil),
		markers:    markers,
	}, nil
}

// AnalyzeBytes decodes the upload, resolves the EXIF marker and scores it.
func (ca *coreAnalyzer) AnalyzeBytes(ctx context.Context, data []byte, options AnalysisOptions) (*Report, error) {
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	buf, format, err := DecodeImageLimit(data, options.MaxDecodePixels)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := Metadata{FileSize: int64(len(data))}
	if !options.SkipMetadata && ca.markers != nil {
		if marker, ok := ca.markers.FindMarker(data); ok {
			meta.ExifMarker = &marker
		}
	}

	report, err := ca.AnalyzeBuffer(ctx, buf, meta, options)
	if err != nil {
		return nil, err
	}
	report.Format = format
	return report, nil
}

// AnalyzeBuffer runs the pipeline on a decoded buffer. Cancellation is
// observed between stages only.
func (ca *coreAnalyzer) AnalyzeBuffer(ctx context.Context, buf *PixelBuffer, meta Metadata, options AnalysisOptions) (*Report, error) {
	start := time.Now()
	if buf == nil {
		return nil, fmt.Errorf("%w: nil pixel buffer", ErrInvalidInput)
	}
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	small := buf.Downscale(options.MaxDim)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	extractor := ca.sequential
	if options.UseWorkerPool {
		extractor = ca.parallel
	}
	features, err := extractor.Extract(small, newRandomSource(options.Seed), meta)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !options.SkipPerceptualHash {
		features.PerceptualHash = perceptualHash(small)
	}

	result := NewHeuristicScorer(options.Scoring).Score(features)

	logger.WithFields(logrus.Fields{
		"width":       small.Width(),
		"height":      small.Height(),
		"score":       result.Score,
		"green_count": features.GreenPixelCount,
		"noise_raw":   features.NoiseRaw,
		"lap_var":     features.LapVar,
	}).Debug("Feature extraction completed")

	return &Report{
		Features:          features,
		Result:            result,
		OriginalWidth:     buf.Width(),
		OriginalHeight:    buf.Height(),
		Timestamp:         start,
		ProcessingTimeSec: time.Since(start).Seconds(),
	}, nil
}

// Close shuts down the worker pool.
func (ca *coreAnalyzer) Close() error {
	ca.workerPool.Close()
	return nil
}

// newRandomSource returns a PCG generator for the seed, or a randomly seeded one.
func newRandomSource(seed *uint64) *rand.Rand {
	s := rand.Uint64()
	if seed != nil {
		s = *seed
	}
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// perceptualHash returns the dHash of the analysed buffer, or "" when hashing fails.
func perceptualHash(buf *PixelBuffer) string {
	hash, err := goimagehash.DifferenceHash(buf.Image())
	if err != nil {
		logger.WithError(err).Warn("Perceptual hash failed")
		return ""
	}
	return hash.ToString()
}
