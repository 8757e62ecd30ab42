package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anime-shed/synthscan/internal/analyzer"
	apperrors "github.com/anime-shed/synthscan/internal/errors"
	"github.com/anime-shed/synthscan/internal/logger"
	"github.com/anime-shed/synthscan/internal/observer"
	"github.com/anime-shed/synthscan/internal/repository"
	"github.com/anime-shed/synthscan/internal/storage"
	"github.com/anime-shed/synthscan/internal/strategy"
	"github.com/anime-shed/synthscan/pkg/models"
	"github.com/anime-shed/synthscan/pkg/validation"

	"github.com/sirupsen/logrus"
)

const (
	minMaxDim = 16
	maxMaxDim = 4096
)

// AnalyzeParams are the per-request knobs of an analysis.
type AnalyzeParams struct {
	// Mode selects a registered strategy; "" is standard.
	Mode string
	// Seed fixes the noise sampling. Nil draws a fresh seed.
	Seed *uint64
	// MaxDim overrides the configured analysis bound when non-zero.
	MaxDim int
}

// Config holds service level limits.
type Config struct {
	MaxDim          int
	AnalysisTimeout time.Duration
	FetchTimeout    time.Duration
	MaxUploadBytes  int64
	MaxDecodePixels int64
}

// ImageAnalysisService defines the interface for upload and URL analysis
type ImageAnalysisService interface {
	// AnalyzeUpload scores an uploaded file.
	AnalyzeUpload(ctx context.Context, filename string, data []byte, params AnalyzeParams) (*models.AnalyzeResponse, error)

	// AnalyzeURL fetches a remote image and scores it.
	AnalyzeURL(ctx context.Context, imageURL string, params AnalyzeParams) (*models.AnalyzeResponse, error)

	// Common validation
	ValidateImageURL(imageURL string) error
}

// imageAnalysisService implements ImageAnalysisService with a single analyzer
type imageAnalysisService struct {
	imageRepo  repository.ImageRepository
	analyzer   analyzer.ImageAnalyzer
	strategies *strategy.Registry
	uploads    *validation.UploadValidator
	events     observer.Subject
	cfg        Config
}

// NewImageAnalysisService creates a new image analysis service
func NewImageAnalysisService(
	imageRepository repository.ImageRepository,
	imageAnalyzer analyzer.ImageAnalyzer,
	strategies *strategy.Registry,
	events observer.Subject,
	cfg Config,
) ImageAnalysisService {
	if strategies == nil {
		strategies = strategy.NewRegistry()
	}
	if cfg.MaxDim <= 0 {
		cfg.MaxDim = analyzer.DefaultMaxDim
	}
	return &imageAnalysisService{
		imageRepo:  imageRepository,
		analyzer:   imageAnalyzer,
		strategies: strategies,
		uploads:    validation.NewUploadValidator(cfg.MaxUploadBytes),
		events:     events,
		cfg:        cfg,
	}
}

// AnalyzeUpload validates and scores uploaded bytes
func (s *imageAnalysisService) AnalyzeUpload(ctx context.Context, filename string, data []byte, params AnalyzeParams) (*models.AnalyzeResponse, error) {
	if _, err := s.uploads.ValidateUpload(data); err != nil {
		return nil, err
	}
	return s.analyze(ctx, filename, data, params)
}

// AnalyzeURL fetches and scores a remote image
func (s *imageAnalysisService) AnalyzeURL(ctx context.Context, imageURL string, params AnalyzeParams) (*models.AnalyzeResponse, error) {
	if err := s.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}

	fetchCtx := ctx
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	start := time.Now()
	img, err := s.imageRepo.FetchImage(fetchCtx, imageURL)
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.ImageFetchFailed,
			Source:         imageURL,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, mapFetchError(err)
	}
	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.ImageFetched,
		Source:         imageURL,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"bytes":        len(img.Data),
			"content_type": img.ContentType,
		},
	})

	if _, err := s.uploads.ValidateUpload(img.Data); err != nil {
		return nil, err
	}

	name := img.Name
	if name == "" {
		name = imageURL
	}
	return s.analyze(ctx, name, img.Data, params)
}

// ValidateImageURL validates the image URL
func (s *imageAnalysisService) ValidateImageURL(imageURL string) error {
	if err := s.imageRepo.ValidateImageURL(imageURL); err != nil {
		if _, ok := apperrors.As(err); ok {
			return err
		}
		return apperrors.NewValidationError("invalid image URL", err)
	}
	return nil
}

func (s *imageAnalysisService) analyze(ctx context.Context, source string, data []byte, params AnalyzeParams) (*models.AnalyzeResponse, error) {
	strat, opts, err := s.resolveOptions(params)
	if err != nil {
		return nil, err
	}

	if s.cfg.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AnalysisTimeout)
		defer cancel()
	}

	start := time.Now()
	s.publish(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		Source:    source,
		Metadata:  map[string]interface{}{"mode": strat.GetStrategyName(), "max_dim": opts.MaxDim},
	})

	report, err := s.analyzer.AnalyzeBytes(ctx, data, opts)
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.AnalysisFailed,
			Source:         source,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, mapAnalysisError(err)
	}

	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		Source:         source,
		ProcessingTime: time.Since(start),
		Success:        true,
		Score:          report.Result.Score,
		Metadata: map[string]interface{}{
			"reasons": report.Result.Reasons,
			"format":  report.Format,
		},
	})

	logger.WithFields(logrus.Fields{
		"source":  source,
		"mode":    strat.GetStrategyName(),
		"score":   report.Result.Score,
		"reasons": report.Result.Reasons,
	}).Debug("Analysis finished")

	resp := models.NewAnalyzeResponse(report, source)
	if _, detailed := strat.(strategy.DetailedStrategy); detailed {
		resp.Details = models.NewAnalysisDetails(report, strat.GetStrategyName(), opts)
	}
	return &resp, nil
}

func (s *imageAnalysisService) resolveOptions(params AnalyzeParams) (strategy.AnalysisStrategy, analyzer.AnalysisOptions, error) {
	strat, err := s.strategies.Resolve(params.Mode)
	if err != nil {
		return nil, analyzer.AnalysisOptions{}, apperrors.NewValidationError("invalid analysis mode", err)
	}

	maxDim := s.cfg.MaxDim
	if params.MaxDim != 0 {
		if params.MaxDim < minMaxDim || params.MaxDim > maxMaxDim {
			return nil, analyzer.AnalysisOptions{}, apperrors.NewValidationError(
				fmt.Sprintf("maxDim must be between %d and %d", minMaxDim, maxMaxDim), nil)
		}
		maxDim = params.MaxDim
	}

	opts := strat.Options(maxDim)
	if s.cfg.MaxDecodePixels > 0 {
		opts = opts.WithMaxDecodePixels(s.cfg.MaxDecodePixels)
	}
	if params.Seed != nil {
		opts = opts.WithSeed(*params.Seed)
	}
	return strat, opts, nil
}

func (s *imageAnalysisService) publish(ctx context.Context, event observer.AnalysisEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

// mapAnalysisError converts analyzer failures into AppErrors.
func mapAnalysisError(err error) error {
	switch {
	case errors.Is(err, analyzer.ErrInvalidInput):
		return apperrors.NewValidationError("invalid image", err)
	case errors.Is(err, analyzer.ErrDecode):
		return apperrors.NewDecodeError("failed to decode image", err)
	case errors.Is(err, analyzer.ErrInvalidOptions):
		return apperrors.NewValidationError("invalid analysis options", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("analysis timed out", err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return apperrors.NewProcessingError("analysis failed", err)
	}
}

// mapFetchError converts fetcher failures into AppErrors.
func mapFetchError(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return apperrors.NewValidationError("remote image too large", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("image fetch timed out", err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return apperrors.NewNetworkError("failed to fetch image", err)
	}
}
