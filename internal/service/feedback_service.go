package service

import (
	"context"
	"errors"
	"path"

	apperrors "github.com/anime-shed/synthscan/internal/errors"
	"github.com/anime-shed/synthscan/internal/feedback"
	"github.com/anime-shed/synthscan/internal/observer"
	"github.com/anime-shed/synthscan/internal/repository"
	"github.com/anime-shed/synthscan/pkg/models"
)

// FeedbackService accepts user reports about analysis results.
type FeedbackService interface {
	SubmitFeedback(ctx context.Context, req models.FeedbackRequest) (*models.FeedbackResponse, error)

	// Background serves a saved background by file name, e.g. "bg_1700000000123.png.zst".
	Background(ctx context.Context, name string) (*feedback.Background, error)
}

// backgroundsPrefix is the store directory that BgPath values start with.
const backgroundsPrefix = "backgrounds"

type feedbackService struct {
	repo   repository.FeedbackRepository
	events observer.Subject
}

// NewFeedbackService creates a feedback service over repo.
func NewFeedbackService(repo repository.FeedbackRepository, events observer.Subject) FeedbackService {
	return &feedbackService{repo: repo, events: events}
}

// SubmitFeedback stores a submission and its optional background image.
func (s *feedbackService) SubmitFeedback(ctx context.Context, req models.FeedbackRequest) (*models.FeedbackResponse, error) {
	res, err := s.repo.Submit(ctx, feedback.Submission{
		Email:  req.Email,
		Msg:    req.Msg,
		BgData: req.BgData,
	})
	switch {
	case errors.Is(err, feedback.ErrMissingMessage):
		return nil, apperrors.NewValidationError("Missing msg", err)
	case errors.Is(err, feedback.ErrInvalidBackground):
		return nil, apperrors.NewValidationError("invalid background image", err)
	case err != nil:
		return nil, apperrors.NewStorageError("failed to store feedback", err)
	}

	if s.events != nil {
		s.events.NotifyObservers(ctx, observer.AnalysisEvent{
			EventType: observer.FeedbackReceived,
			Source:    req.Email,
			Success:   true,
			Metadata:  map[string]interface{}{"saved_bg": res.SavedBg, "bg_path": res.BgPath},
		})
	}

	return &models.FeedbackResponse{
		Success: true,
		SavedBg: res.SavedBg,
		BgPath:  res.BgPath,
	}, nil
}

// Background reads a saved background back from the store.
func (s *feedbackService) Background(_ context.Context, name string) (*feedback.Background, error) {
	bg, err := s.repo.ReadBackground(path.Join(backgroundsPrefix, name))
	switch {
	case errors.Is(err, feedback.ErrInvalidBackgroundPath):
		return nil, apperrors.NewValidationError("invalid background name", err)
	case errors.Is(err, feedback.ErrBackgroundNotFound):
		return nil, apperrors.NewNotFoundError("background not found", err)
	case err != nil:
		return nil, apperrors.NewStorageError("failed to read background", err)
	}
	return bg, nil
}
