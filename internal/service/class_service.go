package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/elimuhub/elimu-api/internal/models"
	appErrors "github.com/elimuhub/elimu-api/pkg/errors"
)

type classRepository interface {
	ListClasses(ctx context.Context) ([]models.Class, error)
	GetClass(ctx context.Context, id string) (*models.Class, error)
	ListStreams(ctx context.Context) ([]models.Stream, error)
	ListClassStreams(ctx context.Context, classID string) ([]models.ClassStream, error)
}

// ClassService reads class and stream structure.
type ClassService struct {
	repo   classRepository
	logger *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, logger: logger}
}

// ListClasses returns all classes.
func (s *ClassService) ListClasses(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.ListClasses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// GetClass returns one class.
func (s *ClassService) GetClass(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.GetClass(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// ListStreams returns all streams.
func (s *ClassService) ListStreams(ctx context.Context) ([]models.Stream, error) {
	streams, err := s.repo.ListStreams(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list streams")
	}
	return streams, nil
}

// ListClassStreams returns the stream sections of one class.
func (s *ClassService) ListClassStreams(ctx context.Context, classID string) ([]models.ClassStream, error) {
	sections, err := s.repo.ListClassStreams(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class streams")
	}
	return sections, nil
}
