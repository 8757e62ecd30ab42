package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anime-shed/synthscan/internal/analyzer"
)

// AnalysisStrategy maps a named analysis mode to pipeline options.
type AnalysisStrategy interface {
	Options(maxDim int) analyzer.AnalysisOptions
	GetStrategyName() string
}

// StandardStrategy uses the server's configured bound and every feature.
type StandardStrategy struct{}

// Options returns the default options bounded by maxDim.
func (StandardStrategy) Options(maxDim int) analyzer.AnalysisOptions {
	return analyzer.DefaultOptions().WithMaxDim(maxDim)
}

// GetStrategyName returns the strategy name
func (StandardStrategy) GetStrategyName() string { return "standard" }

// FastStrategy trades resolution for latency and skips the perceptual hash.
type FastStrategy struct{}

// Options never exceeds the fast preset's bound.
func (FastStrategy) Options(maxDim int) analyzer.AnalysisOptions {
	opts := analyzer.FastOptions()
	if maxDim > 0 && maxDim < opts.MaxDim {
		opts.MaxDim = maxDim
	}
	return opts
}

// GetStrategyName returns the strategy name
func (FastStrategy) GetStrategyName() string { return "fast" }

// DetailedStrategy analyses at a higher resolution and reports its constants.
type DetailedStrategy struct{}

// Options keeps at least the detailed preset's bound.
func (DetailedStrategy) Options(maxDim int) analyzer.AnalysisOptions {
	opts := analyzer.DetailedOptions()
	if maxDim > opts.MaxDim {
		opts.MaxDim = maxDim
	}
	return opts
}

// GetStrategyName returns the strategy name
func (DetailedStrategy) GetStrategyName() string { return "detailed" }

// Registry resolves strategies by name.
type Registry struct {
	strategies map[string]AnalysisStrategy
	fallback   AnalysisStrategy
}

// NewRegistry registers the built-in strategies; "" resolves to standard.
func NewRegistry() *Registry {
	r := &Registry{strategies: map[string]AnalysisStrategy{}, fallback: StandardStrategy{}}
	for _, s := range []AnalysisStrategy{StandardStrategy{}, FastStrategy{}, DetailedStrategy{}} {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a strategy.
func (r *Registry) Register(s AnalysisStrategy) {
	r.strategies[s.GetStrategyName()] = s
}

// Resolve returns the strategy for mode.
func (r *Registry) Resolve(mode string) (AnalysisStrategy, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return r.fallback, nil
	}
	s, ok := r.strategies[mode]
	if !ok {
		return nil, fmt.Errorf("unknown analysis mode %q (available: %s)", mode, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Names lists registered modes in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
