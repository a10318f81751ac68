package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/elimuhub/elimu-api/internal/models"
	appErrors "github.com/elimuhub/elimu-api/pkg/errors"
)

type examRepository interface {
	GetByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	SetPublished(ctx context.Context, id string, published bool) error
	Delete(ctx context.Context, id string) error
}

type examTermRepository interface {
	GetByID(ctx context.Context, id string) (*models.Term, error)
}

// ExamRequest carries the mutable exam fields.
type ExamRequest struct {
	TermID    string    `json:"term_id" validate:"required"`
	Name      string    `json:"name" validate:"required,min=2,max=120"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

// ExamService manages exam lifecycle including publication.
type ExamService struct {
	repo      examRepository
	terms     examTermRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs an ExamService.
func NewExamService(repo examRepository, terms examTermRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExamService{repo: repo, terms: terms, cache: cache, validator: validate, logger: logger}
}

// List returns exams; non-staff only see published exams.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter, role models.UserRole) ([]models.Exam, error) {
	if !role.Staff() {
		filter.PublishedOnly = true
	}
	exams, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// Get returns one exam; non-staff cannot see unpublished exams.
func (s *ExamService) Get(ctx context.Context, id string, role models.UserRole) (*models.Exam, error) {
	exam, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if !role.Staff() && !exam.IsPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
	}
	return exam, nil
}

// Create registers a new exam in a term.
func (s *ExamService) Create(ctx context.Context, req ExamRequest) (*models.Exam, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.terms.GetByID(ctx, req.TermID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	exam := &models.Exam{
		TermID:    req.TermID,
		Name:      strings.TrimSpace(req.Name),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// Update changes name and dates of an exam.
func (s *ExamService) Update(ctx context.Context, id string, req ExamRequest) (*models.Exam, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	exam, err := s.Get(ctx, id, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	exam.Name = strings.TrimSpace(req.Name)
	exam.StartDate = req.StartDate
	exam.EndDate = req.EndDate
	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	return exam, nil
}

// SetPublished flips exam visibility and drops derived analytics.
func (s *ExamService) SetPublished(ctx context.Context, id string, published bool) error {
	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish exam")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, fmt.Sprintf("analytics:exam:%s*", id)); err != nil {
			s.logger.Warn("failed to invalidate analysis cache", zap.Error(err))
		}
	}
	s.logger.Info("exam publication changed", zap.String("exam_id", id), zap.Bool("published", published))
	return nil
}

// Delete removes an exam without results.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "exam has recorded results or does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	return nil
}

func (s *ExamService) validateRequest(req ExamRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}
	return nil
}
