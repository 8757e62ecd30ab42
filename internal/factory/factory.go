package factory

import (
	"fmt"
	"sync"

	"github.com/anime-shed/synthscan/internal/analyzer"
	"github.com/anime-shed/synthscan/internal/config"
	"github.com/anime-shed/synthscan/internal/feedback"
	"github.com/anime-shed/synthscan/internal/metadata"
	"github.com/anime-shed/synthscan/internal/storage"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AnalyzerType represents different types of image analyzers
type AnalyzerType string

const (
	// StandardAnalyzer scores pixels and looks for generator markers in metadata
	StandardAnalyzer AnalyzerType = "standard"
	// PixelOnlyAnalyzer ignores metadata entirely
	PixelOnlyAnalyzer AnalyzerType = "pixels"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// RoutingStorage sends blob URLs to Azure when configured and the rest over HTTP
	RoutingStorage StorageType = "routing"
)

// AnalyzerFactory creates image analyzers
type AnalyzerFactory interface {
	CreateAnalyzer(analyzerType AnalyzerType) (analyzer.ImageAnalyzer, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
	// CreateFeedbackSink returns nil when no remote storage is configured.
	CreateFeedbackSink() (feedback.BlobSink, error)
}

// analyzerFactory implements AnalyzerFactory
type analyzerFactory struct {
	workers int
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config) AnalyzerFactory {
	return &analyzerFactory{workers: cfg.AnalysisWorkers}
}

// CreateAnalyzer creates an analyzer based on the specified type
func (f *analyzerFactory) CreateAnalyzer(analyzerType AnalyzerType) (analyzer.ImageAnalyzer, error) {
	switch analyzerType {
	case StandardAnalyzer:
		return analyzer.NewImageAnalyzer(metadata.NewExtractor(), f.workers)
	case PixelOnlyAnalyzer:
		return analyzer.NewImageAnalyzer(nil, f.workers)
	default:
		return nil, fmt.Errorf("unsupported analyzer type: %s", analyzerType)
	}
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config

	azureOnce   sync.Once
	azureClient *azblob.Client
	azureErr    error
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return f.httpFetcher(), nil
	case AzureStorage:
		client, err := f.azure()
		if err != nil {
			return nil, err
		}
		return storage.NewAzureBlobFetcher(client, f.cfg.MaxRequestBodySize), nil
	case RoutingStorage:
		if !f.cfg.AzureEnabled() {
			return f.httpFetcher(), nil
		}
		blob, err := f.CreateStorage(AzureStorage)
		if err != nil {
			return nil, err
		}
		return &storage.RoutingFetcher{HTTP: f.httpFetcher(), Blob: blob}, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// CreateFeedbackSink mirrors feedback backgrounds into the configured container.
func (f *storageFactory) CreateFeedbackSink() (feedback.BlobSink, error) {
	if !f.cfg.AzureEnabled() {
		return nil, nil
	}
	client, err := f.azure()
	if err != nil {
		return nil, err
	}
	return feedback.NewAzureBlobSink(client, f.cfg.AzureFeedbackContainer), nil
}

func (f *storageFactory) httpFetcher() *storage.HTTPImageFetcher {
	return storage.NewHTTPImageFetcher(
		storage.WithTimeout(f.cfg.ImageFetchTimeout),
		storage.WithMaxBytes(f.cfg.MaxRequestBodySize),
	)
}

// azure builds the shared blob client once.
func (f *storageFactory) azure() (*azblob.Client, error) {
	if !f.cfg.AzureEnabled() {
		return nil, fmt.Errorf("azure storage is not configured")
	}
	f.azureOnce.Do(func() {
		f.azureClient, f.azureErr = storage.NewAzureClient(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey)
	})
	return f.azureClient, f.azureErr
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: NewAnalyzerFactory(cfg),
		StorageFactory:  NewStorageFactory(cfg),
	}
}
