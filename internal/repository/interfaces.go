package repository

import (
	"context"

	"github.com/anime-shed/synthscan/internal/feedback"
	"github.com/anime-shed/synthscan/internal/storage"
)

// ImageRepository defines the interface for remote image access
type ImageRepository interface {
	// FetchImage validates imageURL and downloads the encoded image
	FetchImage(ctx context.Context, imageURL string) (*storage.FetchedImage, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(imageURL string) error
}

// FeedbackRepository stores user feedback submissions
type FeedbackRepository interface {
	Submit(ctx context.Context, sub feedback.Submission) (*feedback.Result, error)
	// ReadBackground returns a stored background by its path relative to the store root
	ReadBackground(bgPath string) (*feedback.Background, error)
}
