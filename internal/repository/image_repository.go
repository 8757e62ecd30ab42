package repository

import (
	"context"
	"fmt"

	"github.com/anime-shed/synthscan/internal/storage"
	"github.com/anime-shed/synthscan/pkg/validation"
)

// HTTPImageRepository validates URLs before handing them to a fetcher
type HTTPImageRepository struct {
	fetcher   storage.ImageFetcher
	validator *validation.URLValidator
}

// NewHTTPImageRepository creates a new image repository. A nil validator
// accepts any http(s) URL.
func NewHTTPImageRepository(fetcher storage.ImageFetcher, validator *validation.URLValidator) *HTTPImageRepository {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	return &HTTPImageRepository{
		fetcher:   fetcher,
		validator: validator,
	}
}

// FetchImage retrieves an image from a URL
func (r *HTTPImageRepository) FetchImage(ctx context.Context, imageURL string) (*storage.FetchedImage, error) {
	if err := r.ValidateImageURL(imageURL); err != nil {
		return nil, err
	}
	if r.fetcher == nil {
		return nil, ErrRepositoryUnavailable
	}
	return r.fetcher.Fetch(ctx, imageURL)
}

// ValidateImageURL validates if the provided URL is acceptable
func (r *HTTPImageRepository) ValidateImageURL(imageURL string) error {
	if err := r.validator.ValidateImageURL(imageURL); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImageURL, err)
	}
	return nil
}
