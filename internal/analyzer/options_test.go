package analyzer

import (
	"errors"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.MaxDim != DefaultMaxDim {
		t.Errorf("Expected MaxDim %d, got %d", DefaultMaxDim, opts.MaxDim)
	}
	if opts.Seed != nil {
		t.Error("Expected no seed by default")
	}
	if !opts.UseWorkerPool {
		t.Error("Expected worker pool to be enabled by default")
	}
	if opts.SkipMetadata || opts.SkipPerceptualHash {
		t.Error("Expected metadata and perceptual hash to be enabled by default")
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Expected default options to validate, got %v", err)
	}
}

func TestFastOptions(t *testing.T) {
	opts := FastOptions()
	if opts.MaxDim != 512 {
		t.Errorf("Expected MaxDim 512 for fast options, got %d", opts.MaxDim)
	}
	if !opts.SkipPerceptualHash {
		t.Error("Expected perceptual hash to be skipped in fast mode")
	}
}

func TestDetailedOptions(t *testing.T) {
	if got := DetailedOptions().MaxDim; got != 1024 {
		t.Errorf("Expected MaxDim 1024 for detailed options, got %d", got)
	}
}

func TestOptionsBuilders(t *testing.T) {
	scoring := DefaultScoringConfig()
	scoring.Weights.Exif = 10

	opts := DefaultOptions().WithSeed(7).WithMaxDim(300).WithScoring(scoring).WithoutMetadata()

	if opts.Seed == nil || *opts.Seed != 7 {
		t.Errorf("Expected seed 7, got %v", opts.Seed)
	}
	if opts.MaxDim != 300 {
		t.Errorf("Expected MaxDim 300, got %d", opts.MaxDim)
	}
	if opts.Scoring.Weights.Exif != 10 {
		t.Errorf("Expected exif weight 10, got %f", opts.Scoring.Weights.Exif)
	}
	if !opts.SkipMetadata {
		t.Error("Expected metadata to be skipped")
	}

	// Builders work on copies
	base := DefaultOptions()
	_ = base.WithSeed(1)
	if base.Seed != nil {
		t.Error("Expected WithSeed not to mutate the receiver")
	}
}

func TestScoringConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScoringConfig)
		wantErr bool
	}{
		{"defaults", func(*ScoringConfig) {}, false},
		{"negative weight", func(c *ScoringConfig) { c.Weights.Noise = -1 }, true},
		{"all zero weights", func(c *ScoringConfig) { c.Weights = Weights{} }, true},
		{"zero exg range", func(c *ScoringConfig) { c.ExGRange = 0 }, true},
		{"zero laplacian range", func(c *ScoringConfig) { c.LaplacianRange = 0 }, true},
		{"single criterion", func(c *ScoringConfig) { c.Weights = Weights{Exif: 1} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScoringConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsValidate_WrapsScoringError(t *testing.T) {
	opts := DefaultOptions()
	opts.Scoring.Weights = Weights{}
	err := opts.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Error("Option errors must not be reported as invalid input")
	}
}
