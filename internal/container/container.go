package container

import (
	"fmt"
	"net/http"

	"github.com/anime-shed/synthscan/internal/analyzer"
	"github.com/anime-shed/synthscan/internal/config"
	"github.com/anime-shed/synthscan/internal/factory"
	"github.com/anime-shed/synthscan/internal/feedback"
	"github.com/anime-shed/synthscan/internal/logger"
	"github.com/anime-shed/synthscan/internal/observer"
	"github.com/anime-shed/synthscan/internal/repository"
	"github.com/anime-shed/synthscan/internal/service"
	"github.com/anime-shed/synthscan/internal/strategy"
	"github.com/anime-shed/synthscan/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config               *config.Config
	imageAnalyzer        analyzer.ImageAnalyzer
	imageRepository      repository.ImageRepository
	feedbackStore        *feedback.Store
	events               *observer.EventPublisher
	metrics              *observer.MetricsObserver
	imageAnalysisService service.ImageAnalysisService
	feedbackService      service.FeedbackService
	handler              http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	// Build dependency graph
	imageFetcher, err := components.StorageFactory.CreateStorage(factory.RoutingStorage)
	if err != nil {
		return nil, fmt.Errorf("failed to create image fetcher: %w", err)
	}
	sink, err := components.StorageFactory.CreateFeedbackSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback sink: %w", err)
	}
	feedbackStore, err := feedback.NewStore(cfg.FeedbackDir, sink)
	if err != nil {
		return nil, err
	}

	imageAnalyzer, err := components.AnalyzerFactory.CreateAnalyzer(factory.StandardAnalyzer)
	if err != nil {
		return nil, err
	}

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	imageRepository := repository.NewHTTPImageRepository(imageFetcher, nil)
	imageAnalysisService := service.NewImageAnalysisService(
		imageRepository,
		imageAnalyzer,
		strategy.NewRegistry(),
		events,
		service.Config{
			MaxDim:          cfg.MaxAnalysisDim,
			AnalysisTimeout: cfg.AnalysisTimeout,
			FetchTimeout:    cfg.ImageFetchTimeout,
			MaxUploadBytes:  cfg.MaxRequestBodySize,
			MaxDecodePixels: cfg.MaxDecodePixels,
		},
	)
	feedbackService := service.NewFeedbackService(feedbackStore, events)
	handler := transport.NewHandler(imageAnalysisService, feedbackService, metrics, cfg)

	return &Container{
		config:               cfg,
		imageAnalyzer:        imageAnalyzer,
		imageRepository:      imageRepository,
		feedbackStore:        feedbackStore,
		events:               events,
		metrics:              metrics,
		imageAnalysisService: imageAnalysisService,
		feedbackService:      feedbackService,
		handler:              handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Metrics returns the running analysis counters
func (c *Container) Metrics() observer.Metrics {
	return c.metrics.GetMetrics()
}

// Close drains pending events and stops the analyzer workers
func (c *Container) Close() error {
	c.events.Wait()
	return c.imageAnalyzer.Close()
}
