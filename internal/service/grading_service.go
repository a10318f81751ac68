package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/elimuhub/elimu-api/internal/models"
	appErrors "github.com/elimuhub/elimu-api/pkg/errors"
)

type gradingRepository interface {
	ListSystems(ctx context.Context) ([]models.GradingSystem, error)
	GetSystem(ctx context.Context, id string) (*models.GradingSystem, error)
	DefaultSystem(ctx context.Context) (*models.GradingSystem, error)
	CreateSystem(ctx context.Context, system *models.GradingSystem) error
	UpdateSystem(ctx context.Context, system *models.GradingSystem) error
	SetDefaultSystem(ctx context.Context, id string) error
	ScalesBySystem(ctx context.Context, systemID string) ([]models.GradeScale, error)
	ReplaceScales(ctx context.Context, systemID string, scales []models.GradeScale) error
}

// GradingSystemRequest carries the mutable fields of a grading system.
type GradingSystemRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// GradeScaleRequest is one band in a scale replacement payload.
type GradeScaleRequest struct {
	Grade        string  `json:"grade" validate:"required,max=8"`
	MinScore     float64 `json:"min_score" validate:"min=0"`
	MaxScore     float64 `json:"max_score" validate:"min=0,max=100"`
	GradePoint   float64 `json:"grade_point" validate:"min=0"`
	Remark       string  `json:"remark" validate:"required,max=120"`
	Color        string  `json:"color" validate:"omitempty,hexcolor"`
	DisplayOrder int     `json:"display_order"`
}

// GradingService manages grading systems and resolves the scale set that
// applies to a subject.
type GradingService struct {
	repo      gradingRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradingService constructs a GradingService.
func NewGradingService(repo gradingRepository, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradingService{repo: repo, validator: validate, logger: logger}
}

// ListSystems returns all configured grading systems.
func (s *GradingService) ListSystems(ctx context.Context) ([]models.GradingSystem, error) {
	systems, err := s.repo.ListSystems(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grading systems")
	}
	return systems, nil
}

// GetSystem returns one grading system with its bands.
func (s *GradingService) GetSystem(ctx context.Context, id string) (*models.GradingSystem, error) {
	system, err := s.repo.GetSystem(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grading system not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading system")
	}
	return system, nil
}

// CreateSystem registers a new grading system without bands.
func (s *GradingService) CreateSystem(ctx context.Context, req GradingSystemRequest) (*models.GradingSystem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading system payload")
	}
	system := &models.GradingSystem{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := s.repo.CreateSystem(ctx, system); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grading system")
	}
	return system, nil
}

// UpdateSystem renames or re-describes a grading system.
func (s *GradingService) UpdateSystem(ctx context.Context, id string, req GradingSystemRequest) (*models.GradingSystem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading system payload")
	}
	system, err := s.GetSystem(ctx, id)
	if err != nil {
		return nil, err
	}
	system.Name = strings.TrimSpace(req.Name)
	system.Description = req.Description
	if err := s.repo.UpdateSystem(ctx, system); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grading system")
	}
	return system, nil
}

// SetDefault makes the given system the school-wide default. Existing
// results keep the grades they were saved with.
func (s *GradingService) SetDefault(ctx context.Context, id string) error {
	if err := s.repo.SetDefaultSystem(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grading system not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set default grading system")
	}
	s.logger.Info("default grading system changed", zap.String("grading_system_id", id))
	return nil
}

// ReplaceScales swaps the band set of one system. Overlapping or
// inverted bands are rejected; coverage gaps are accepted but logged.
func (s *GradingService) ReplaceScales(ctx context.Context, systemID string, reqs []GradeScaleRequest) ([]models.GradeScale, error) {
	if len(reqs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one grade band is required")
	}
	scales := make([]models.GradeScale, 0, len(reqs))
	for i, req := range reqs {
		if err := s.validator.Struct(req); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade band payload")
		}
		order := req.DisplayOrder
		if order == 0 {
			order = i + 1
		}
		scales = append(scales, models.GradeScale{
			GradingSystemID: systemID,
			Grade:           strings.TrimSpace(req.Grade),
			MinScore:        req.MinScore,
			MaxScore:        req.MaxScore,
			GradePoint:      req.GradePoint,
			Remark:          strings.TrimSpace(req.Remark),
			Color:           req.Color,
			DisplayOrder:    order,
		})
	}

	if err := models.ValidateBands(scales); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrScaleOverlap.Code, appErrors.ErrScaleOverlap.Status, err.Error())
	}
	if gaps := models.CoverageGaps(scales, 0, 100); len(gaps) > 0 {
		s.logger.Warn("grade scale leaves score ranges uncovered",
			zap.String("grading_system_id", systemID),
			zap.Strings("gaps", gaps))
	}

	if _, err := s.GetSystem(ctx, systemID); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceScales(ctx, systemID, scales); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace grade scales")
	}
	return scales, nil
}

// ScaleSetForSubject resolves the scale set governing one subject: the
// subject's own system when assigned, otherwise the school default.
// ErrGradingNotConfigured is returned when neither exists.
func (s *GradingService) ScaleSetForSubject(ctx context.Context, subject *models.Subject) (models.ScaleSet, error) {
	systemID := ""
	if subject != nil && subject.GradingSystemID != nil && *subject.GradingSystemID != "" {
		systemID = *subject.GradingSystemID
	} else {
		system, err := s.repo.DefaultSystem(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ScaleSet{}, appErrors.Clone(appErrors.ErrGradingNotConfigured, "no default grading system configured")
			}
			return models.ScaleSet{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load default grading system")
		}
		systemID = system.ID
	}

	scales, err := s.repo.ScalesBySystem(ctx, systemID)
	if err != nil {
		return models.ScaleSet{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade scales")
	}
	set := models.NewScaleSet(systemID, scales)
	if set.Empty() {
		s.logger.Warn("grading system has no bands", zap.String("grading_system_id", systemID))
	}
	return set, nil
}

// DefaultScaleSet resolves the school default scale set, tolerating a
// missing configuration by returning an empty set.
func (s *GradingService) DefaultScaleSet(ctx context.Context) models.ScaleSet {
	set, err := s.ScaleSetForSubject(ctx, nil)
	if err != nil {
		return models.ScaleSet{}
	}
	return set
}
