package analyzer

import (
	"fmt"
	"math"
)

// NoIndicatorReason is emitted when no criterion crosses the reason threshold.
const NoIndicatorReason = "No strong heuristic indicators found"

// ScoreResult is the scorer output: a 0-100 suspicion score, reasons in
// evaluation order, and the per-criterion suspicion values.
type ScoreResult struct {
	Score      int                `json:"score"`
	Reasons    []string           `json:"reasons"`
	Components map[string]float64 `json:"components"`
}

// criteriaOrder fixes both the evaluation and the reason order.
var criteriaOrder = []Criterion{
	CriterionExif,
	CriterionNoise,
	CriterionLaplacian,
	CriterionExG,
	CriterionGreenCount,
}

type criterionRule struct {
	suspicion func(f FeatureVector, cfg ScoringConfig) float64
	reason    func(f FeatureVector) string
}

var criterionRules = map[Criterion]criterionRule{
	CriterionExif: {
		suspicion: func(f FeatureVector, _ ScoringConfig) float64 {
			if f.ExifMarker != nil {
				return 1
			}
			return 0
		},
		reason: func(f FeatureVector) string {
			marker := ""
			if f.ExifMarker != nil {
				marker = *f.ExifMarker
			}
			return fmt.Sprintf("Found possible generator tag %q in EXIF", marker)
		},
	},
	CriterionNoise: {
		suspicion: func(f FeatureVector, cfg ScoringConfig) float64 {
			return clamp01((cfg.NoiseMidpoint - f.NoiseNormalized) * cfg.NoiseGain)
		},
		reason: func(FeatureVector) string { return "Image noise is unusually low (very smooth)" },
	},
	CriterionLaplacian: {
		suspicion: func(f FeatureVector, cfg ScoringConfig) float64 {
			return clamp01((cfg.LaplacianBaseline - f.LapVar) / cfg.LaplacianRange)
		},
		reason: func(FeatureVector) string { return "Low edge/texture variance (smoothed details)" },
	},
	CriterionExG: {
		suspicion: func(f FeatureVector, cfg ScoringConfig) float64 {
			if f.MeanExG == nil {
				return clamp01(cfg.ExGFallback)
			}
			return clamp01((cfg.ExGBaseline - *f.MeanExG) / cfg.ExGRange)
		},
		reason: func(FeatureVector) string { return "Color indices deviate from normal plant green" },
	},
	CriterionGreenCount: {
		suspicion: func(f FeatureVector, cfg ScoringConfig) float64 {
			return clamp01(1 - f.GreenFraction()*cfg.GreenFractionGain)
		},
		reason: func(FeatureVector) string { return "Very few green pixels detected relative to size" },
	},
}

// HeuristicScorer maps a FeatureVector to a ScoreResult. It never fails:
// missing inputs map to their documented fallbacks.
type HeuristicScorer struct {
	config ScoringConfig
}

// NewHeuristicScorer creates a scorer with the given configuration.
func NewHeuristicScorer(cfg ScoringConfig) *HeuristicScorer {
	return &HeuristicScorer{config: cfg}
}

// Config returns the scorer configuration.
func (s *HeuristicScorer) Config() ScoringConfig {
	return s.config
}

// Components returns the clamped suspicion value of every criterion.
func (s *HeuristicScorer) Components(f FeatureVector) map[string]float64 {
	components := make(map[string]float64, len(criteriaOrder))
	for _, c := range criteriaOrder {
		components[string(c)] = criterionRules[c].suspicion(f, s.config)
	}
	return components
}

// Score computes round(100 * sum(value*weight) / sum(weight)) and the reasons.
func (s *HeuristicScorer) Score(f FeatureVector) ScoreResult {
	components := s.Components(f)

	var weighted, total float64
	reasons := make([]string, 0, len(criteriaOrder))
	for _, c := range criteriaOrder {
		value := components[string(c)]
		w := s.config.Weights.Of(c)
		weighted += value * w
		total += w
		if value > s.config.ReasonThreshold {
			reasons = append(reasons, criterionRules[c].reason(f))
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, NoIndicatorReason)
	}

	score := 0
	if total > 0 {
		score = int(math.Round(100 * clamp01(weighted/total)))
	}

	return ScoreResult{
		Score:      score,
		Reasons:    reasons,
		Components: components,
	}
}

// clamp01 limits v to [0,1]; NaN maps to 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return v
}
