package models

import (
	"time"

	"github.com/anime-shed/synthscan/internal/analyzer"
)

// AnalysisDetails is attached to detailed-mode responses: how the score was
// produced and with which constants.
type AnalysisDetails struct {
	Mode              string                 `json:"mode"`
	Seed              *uint64                `json:"seed,omitempty"`
	MaxDim            int                    `json:"maxDim"`
	OriginalWidth     int                    `json:"originalWidth"`
	OriginalHeight    int                    `json:"originalHeight"`
	Timestamp         string                 `json:"timestamp"`
	ProcessingTimeSec float64                `json:"processingTimeSec"`
	Scoring           analyzer.ScoringConfig `json:"scoring"`
}

// NewAnalyzeResponse flattens a report into the wire format.
func NewAnalyzeResponse(report *analyzer.Report, filename string) AnalyzeResponse {
	return AnalyzeResponse{
		Score:      report.Result.Score,
		Reasons:    report.Result.Reasons,
		Components: report.Result.Components,
		Features:   report.Features,
		Info: FileInfo{
			Filename: filename,
			Size:     report.Features.FileSize,
			Format:   report.Format,
		},
	}
}

// NewAnalysisDetails describes the run behind a report.
func NewAnalysisDetails(report *analyzer.Report, mode string, opts analyzer.AnalysisOptions) *AnalysisDetails {
	return &AnalysisDetails{
		Mode:              mode,
		Seed:              opts.Seed,
		MaxDim:            opts.MaxDim,
		OriginalWidth:     report.OriginalWidth,
		OriginalHeight:    report.OriginalHeight,
		Timestamp:         report.Timestamp.UTC().Format(time.RFC3339),
		ProcessingTimeSec: report.ProcessingTimeSec,
		Scoring:           opts.Scoring,
	}
}

// ScanResult is one JSON line printed by the scan command.
type ScanResult struct {
	File       string             `json:"file"`
	Score      int                `json:"score,omitempty"`
	Reasons    []string           `json:"reasons,omitempty"`
	Components map[string]float64 `json:"components,omitempty"`
	Format     string             `json:"format,omitempty"`
	Error      string             `json:"error,omitempty"`
}
