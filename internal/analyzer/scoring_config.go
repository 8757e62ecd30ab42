package analyzer

import (
	"fmt"
	"math"
)

// Criterion names a scored signal.
type Criterion string

const (
	CriterionExif       Criterion = "exif"
	CriterionNoise      Criterion = "noise"
	CriterionLaplacian  Criterion = "lap"
	CriterionExG        Criterion = "exg"
	CriterionGreenCount Criterion = "greenCount"
)

// Weights is the relative importance of each criterion in the weighted mean.
type Weights struct {
	Exif       float64 `json:"exif"`
	ExG        float64 `json:"exg"`
	GreenCount float64 `json:"greenCount"`
	Noise      float64 `json:"noise"`
	Laplacian  float64 `json:"lap"`
}

// Of returns the weight configured for a criterion.
func (w Weights) Of(c Criterion) float64 {
	switch c {
	case CriterionExif:
		return w.Exif
	case CriterionExG:
		return w.ExG
	case CriterionGreenCount:
		return w.GreenCount
	case CriterionNoise:
		return w.Noise
	case CriterionLaplacian:
		return w.Laplacian
	}
	return 0
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Exif + w.ExG + w.GreenCount + w.Noise + w.Laplacian
}

// ScoringConfig holds every tunable constant of the heuristic scorer.
type ScoringConfig struct {
	Weights Weights `json:"weights"`

	// ReasonThreshold: a criterion above this value contributes a reason.
	ReasonThreshold float64 `json:"reasonThreshold"`

	// exg = clamp01((ExGBaseline - meanExG) / ExGRange), or ExGFallback when
	// no green pixel was found.
	ExGBaseline float64 `json:"exgBaseline"`
	ExGRange    float64 `json:"exgRange"`
	ExGFallback float64 `json:"exgFallback"`

	// greenCount = clamp01(1 - greenFraction * GreenFractionGain)
	GreenFractionGain float64 `json:"greenFractionGain"`

	// noise = clamp01((NoiseMidpoint - noiseNormalized) * NoiseGain)
	NoiseMidpoint float64 `json:"noiseMidpoint"`
	NoiseGain     float64 `json:"noiseGain"`

	// lap = clamp01((LaplacianBaseline - lapVar) / LaplacianRange)
	LaplacianBaseline float64 `json:"laplacianBaseline"`
	LaplacianRange    float64 `json:"laplacianRange"`
}

// DefaultScoringConfig returns the calibrated defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: Weights{
			Exif:       3,
			ExG:        1.5,
			GreenCount: 1.2,
			Noise:      2,
			Laplacian:  1.8,
		},
		ReasonThreshold:   0.6,
		ExGBaseline:       50,
		ExGRange:          100,
		ExGFallback:       0.3,
		GreenFractionGain: 5,
		NoiseMidpoint:     0.5,
		NoiseGain:         2,
		LaplacianBaseline: 200,
		LaplacianRange:    400,
	}
}

// Validate rejects configurations that would make the weighted mean undefined.
func (c ScoringConfig) Validate() error {
	for _, crit := range criteriaOrder {
		w := c.Weights.Of(crit)
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weight %q must be a finite non-negative number (got %v)", crit, w)
		}
	}
	if c.Weights.Sum() <= 0 {
		return fmt.Errorf("weights must sum to a positive value")
	}
	if c.ExGRange <= 0 || c.LaplacianRange <= 0 {
		return fmt.Errorf("exgRange and laplacianRange must be > 0 (got %v, %v)", c.ExGRange, c.LaplacianRange)
	}
	return nil
}
