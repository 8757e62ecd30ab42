package models

import "github.com/anime-shed/synthscan/internal/analyzer"

// AnalyzeURLRequest asks the server to fetch and score a remote image.
type AnalyzeURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// FeedbackRequest is the body of POST /api/feedback.
type FeedbackRequest struct {
	Email string `json:"email"`
	Msg   string `json:"msg"`
	// BgData is an optional data:image/<type>;base64,... background image.
	BgData string `json:"bgData"`
}

// FeedbackResponse reports what was stored.
type FeedbackResponse struct {
	Success bool   `json:"success"`
	SavedBg bool   `json:"savedBg"`
	BgPath  string `json:"bgPath"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// StatusResponse is returned by the health and test endpoints.
type StatusResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// FileInfo describes the analysed upload.
type FileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
}

// AnalyzeResponse is the result of one heuristic analysis.
type AnalyzeResponse struct {
	Score      int                    `json:"score"`
	Reasons    []string               `json:"reasons"`
	Components map[string]float64     `json:"components"`
	Features   analyzer.FeatureVector `json:"features"`
	Info       FileInfo               `json:"info"`
	Details    *AnalysisDetails       `json:"details,omitempty"`
}
