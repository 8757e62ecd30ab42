package analyzer

import "fmt"

// DefaultMaxDim is the largest side, in pixels, an image is analysed at.
const DefaultMaxDim = 900

// AnalysisOptions provides flexible configuration for image analysis
type AnalysisOptions struct {
	// MaxDim bounds the larger side of the analysed buffer. <= 0 disables downscaling.
	MaxDim int

	// MaxDecodePixels rejects images whose header declares a larger area.
	// <= 0 uses DefaultMaxDecodePixels.
	MaxDecodePixels int64

	// Seed makes the noise sampling reproducible. Nil draws a fresh seed.
	Seed *uint64

	// Scoring holds weights and thresholds.
	Scoring ScoringConfig

	// Feature toggles
	SkipMetadata       bool
	SkipPerceptualHash bool

	// Performance options
	UseWorkerPool bool
}

// DefaultOptions returns default analysis options
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		MaxDim:             DefaultMaxDim,
		MaxDecodePixels:    DefaultMaxDecodePixels,
		Scoring:            DefaultScoringConfig(),
		SkipMetadata:       false,
		SkipPerceptualHash: false,
		UseWorkerPool:      true,
	}
}

// FastOptions trades resolution for speed.
func FastOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.MaxDim = 512
	opts.SkipPerceptualHash = true
	return opts
}

// DetailedOptions analyses at a larger working size.
func DetailedOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.MaxDim = 1024
	return opts
}

// WithSeed returns options with a fixed sampling seed.
func (opts AnalysisOptions) WithSeed(seed uint64) AnalysisOptions {
	opts.Seed = &seed
	return opts
}

// WithMaxDim returns options with a different analysis size bound.
func (opts AnalysisOptions) WithMaxDim(maxDim int) AnalysisOptions {
	opts.MaxDim = maxDim
	return opts
}

// WithMaxDecodePixels returns options with a different decode area cap.
func (opts AnalysisOptions) WithMaxDecodePixels(n int64) AnalysisOptions {
	opts.MaxDecodePixels = n
	return opts
}

// WithScoring replaces the scoring table.
func (opts AnalysisOptions) WithScoring(cfg ScoringConfig) AnalysisOptions {
	opts.Scoring = cfg
	return opts
}

// WithoutMetadata disables EXIF marker extraction.
func (opts AnalysisOptions) WithoutMetadata() AnalysisOptions {
	opts.SkipMetadata = true
	return opts
}

// Validate checks option values before analysis.
func (opts AnalysisOptions) Validate() error {
	if err := opts.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}
