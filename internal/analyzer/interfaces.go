package analyzer

import (
	"context"
	"time"
)

// ImageAnalyzer defines the main interface for image analysis
type ImageAnalyzer interface {
	// AnalyzeBytes decodes an encoded image and scores it.
	AnalyzeBytes(ctx context.Context, data []byte, options AnalysisOptions) (*Report, error)

	// AnalyzeBuffer scores an already decoded buffer with externally resolved metadata.
	AnalyzeBuffer(ctx context.Context, buf *PixelBuffer, meta Metadata, options AnalysisOptions) (*Report, error)

	// Lifecycle management
	Close() error
}

// MarkerExtractor resolves an AI-generator marker from encoded image bytes.
type MarkerExtractor interface {
	FindMarker(data []byte) (string, bool)
}

// Report is the outcome of one analysis.
type Report struct {
	Features          FeatureVector `json:"features"`
	Result            ScoreResult   `json:"result"`
	Format            string        `json:"format,omitempty"`
	OriginalWidth     int           `json:"originalWidth"`
	OriginalHeight    int           `json:"originalHeight"`
	Timestamp         time.Time     `json:"timestamp"`
	ProcessingTimeSec float64       `json:"processingTimeSec"`
}
