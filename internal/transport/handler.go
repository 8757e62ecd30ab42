package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/anime-shed/synthscan/internal/config"
	apperrors "github.com/anime-shed/synthscan/internal/errors"
	"github.com/anime-shed/synthscan/internal/logger"
	"github.com/anime-shed/synthscan/internal/observer"
	"github.com/anime-shed/synthscan/internal/service"
	"github.com/anime-shed/synthscan/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MetricsProvider exposes the running analysis counters.
type MetricsProvider interface {
	GetMetrics() observer.Metrics
}

type handler struct {
	analysis service.ImageAnalysisService
	feedback service.FeedbackService
	metrics  MetricsProvider
	cfg      *config.Config
}

func NewHandler(
	analysis service.ImageAnalysisService,
	feedback service.FeedbackService,
	metrics MetricsProvider,
	cfg *config.Config,
) http.Handler {
	h := &handler{analysis: analysis, feedback: feedback, metrics: metrics, cfg: cfg}

	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(),
		cors(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/backgrounds/:name", h.getBackground)

	api := r.Group("/api")
	api.GET("/test", healthCheck)
	api.POST("/analyze", h.analyzeUpload)
	api.POST("/analyze/url", h.analyzeURL)
	api.POST("/feedback", h.submitFeedback)
	api.GET("/metrics", h.getMetrics)

	return r
}

func (h *handler) analyzeUpload(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	params, err := parseAnalyzeParams(c)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid query parameters", err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, "upload too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "No file uploaded", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to open upload", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read upload", err)
		return
	}

	resp, err := h.analysis.AnalyzeUpload(ctx, fileHeader.Filename, data, params)
	if err != nil {
		respondError(c, determineStatusCode(err), "analysis failed", err)
		return
	}

	logCompleted(c, fileHeader.Filename, resp, startTime)
	c.JSON(http.StatusOK, resp)
}

func (h *handler) analyzeURL(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	params, err := parseAnalyzeParams(c)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid query parameters", err)
		return
	}

	var req models.AnalyzeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	logger.WithFields(logrus.Fields{
		"url":  req.URL,
		"mode": params.Mode,
	}).Debug("Fetching image")

	resp, err := h.analysis.AnalyzeURL(ctx, req.URL, params)
	if err != nil {
		respondError(c, determineStatusCode(err), "analysis failed", err)
		return
	}

	logCompleted(c, req.URL, resp, startTime)
	c.JSON(http.StatusOK, resp)
}

func (h *handler) submitFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if tooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, "feedback too large", err)
			return
		}
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}

	resp, err := h.feedback.SubmitFeedback(c.Request.Context(), req)
	if err != nil {
		respondError(c, determineStatusCode(err), "feedback rejected", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getBackground serves a saved feedback background at the BgPath it was reported under.
func (h *handler) getBackground(c *gin.Context) {
	bg, err := h.feedback.Background(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, determineStatusCode(err), "background unavailable", err)
		return
	}

	// Backgrounds are user supplied; never let a browser run them
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
	c.Data(http.StatusOK, bg.MimeType, bg.Data)
}

func (h *handler) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetMetrics())
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// parseAnalyzeParams reads the seed, maxDim and mode query parameters.
func parseAnalyzeParams(c *gin.Context) (service.AnalyzeParams, error) {
	params := service.AnalyzeParams{Mode: c.Query("mode")}

	if raw := c.Query("seed"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return params, apperrors.NewValidationError("seed must be an unsigned integer", err)
		}
		params.Seed = &seed
	}
	if raw := c.Query("maxDim"); raw != "" {
		maxDim, err := strconv.Atoi(raw)
		if err != nil {
			return params, apperrors.NewValidationError("maxDim must be an integer", err)
		}
		params.MaxDim = maxDim
	}
	return params, nil
}

func logCompleted(c *gin.Context, source string, resp *models.AnalyzeResponse, startTime time.Time) {
	logger.WithFields(logrus.Fields{
		"source":             source,
		"ip":                 c.ClientIP(),
		"processing_time_ms": time.Since(startTime).Milliseconds(),
		"score":              resp.Score,
		"reasons":            resp.Reasons,
	}).Info("Image analysis completed successfully")
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		}).Info("Request handled")
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	if appErr, ok := apperrors.As(err); ok {
		resp.Message = appErr.Message
		resp.Details = appErr.Details
	}
	c.AbortWithStatusJSON(code, resp)
}
