package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/elimuhub/elimu-api/internal/models"
	appErrors "github.com/elimuhub/elimu-api/pkg/errors"
)

type resultRepository interface {
	BatchUpsert(ctx context.Context, results []models.Result) error
	List(ctx context.Context, filter models.ResultFilter) ([]models.Result, error)
	SoftDelete(ctx context.Context, id, deletedBy string) error
}

type resultExamRepository interface {
	GetByID(ctx context.Context, id string) (*models.Exam, error)
}

type resultSubjectRepository interface {
	GetByID(ctx context.Context, id string) (*models.Subject, error)
}

type resultStudentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type gradingResolver interface {
	ScaleSetForSubject(ctx context.Context, subject *models.Subject) (models.ScaleSet, error)
}

// BatchSaveRequest is one submission of marks for a class, subject and
// exam. Scores are keyed by student ID. The paper configuration is part
// of the payload and applies to every row of the batch. An empty
// StreamID means the batch spans the whole class; otherwise the roster
// is restricted to that class stream.
type BatchSaveRequest struct {
	ExamID     string                        `json:"exam_id" validate:"required"`
	ClassID    string                        `json:"class_id" validate:"required"`
	StreamID   string                        `json:"stream_id"`
	SubjectID  string                        `json:"subject_id" validate:"required"`
	Config     models.PaperConfig            `json:"-"`
	Scores     map[string]models.PaperScores `json:"scores" validate:"required,min=1"`
	RecordedBy string                        `json:"-"`
}

// BatchSaveSummary reports what one submission produced.
type BatchSaveSummary struct {
	Saved    int `json:"saved"`
	Skipped  int `json:"skipped"`
	Ungraded int `json:"ungraded"`
}

// ResultService computes and persists exam results as atomic batches.
type ResultService struct {
	results   resultRepository
	exams     resultExamRepository
	subjects  resultSubjectRepository
	students  resultStudentRepository
	grading   gradingResolver
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs a ResultService.
func NewResultService(results resultRepository, exams resultExamRepository, subjects resultSubjectRepository, students resultStudentRepository, grading gradingResolver, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ResultService{
		results:   results,
		exams:     exams,
		subjects:  subjects,
		students:  students,
		grading:   grading,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// SaveBatch validates, computes and persists one submission. All rows
// land in a single transaction; a bad row fails the whole batch before
// anything is written. Re-submitting the same scope overwrites earlier
// rows.
func (s *ResultService) SaveBatch(ctx context.Context, req BatchSaveRequest) (*BatchSaveSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result batch payload")
	}

	exam, err := s.exams.GetByID(ctx, req.ExamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}

	subject, err := s.subjects.GetByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	roster, err := s.students.List(ctx, models.StudentFilter{ClassID: req.ClassID, ClassStreamID: req.StreamID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class students")
	}
	byID := make(map[string]models.Student, len(roster))
	for _, st := range roster {
		byID[st.ID] = st
	}

	// A missing grading configuration degrades to ungraded rows rather
	// than blocking mark entry.
	scaleSet, err := s.grading.ScaleSetForSubject(ctx, subject)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrGradingNotConfigured.Code {
			s.logger.Warn("saving results without grading configuration",
				zap.String("exam_id", req.ExamID),
				zap.String("subject_id", req.SubjectID))
			scaleSet = models.ScaleSet{}
		} else {
			return nil, err
		}
	}

	studentIDs := make([]string, 0, len(req.Scores))
	for id := range req.Scores {
		studentIDs = append(studentIDs, id)
	}
	sort.Strings(studentIDs)

	summary := &BatchSaveSummary{}
	rows := make([]models.Result, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		student, ok := byID[studentID]
		if !ok {
			scope := fmt.Sprintf("class %s", req.ClassID)
			if req.StreamID != "" {
				scope = fmt.Sprintf("class %s stream %s", req.ClassID, req.StreamID)
			}
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s is not in %s", studentID, scope))
		}

		scores := req.Scores[studentID]
		composite, hasMarks := computeComposite(scores, req.Config)
		if !hasMarks {
			summary.Skipped++
			continue
		}

		resolved := scaleSet.Resolve(composite.Percent)
		if !resolved.Resolved() {
			summary.Ungraded++
			s.logger.Warn("score outside configured grade bands",
				zap.String("student_id", studentID),
				zap.String("subject_id", req.SubjectID),
				zap.Float64("percent", composite.Percent))
		}

		streamID := student.ClassStreamID
		row := models.Result{
			ExamID:      req.ExamID,
			StudentID:   studentID,
			SubjectID:   req.SubjectID,
			ClassID:     req.ClassID,
			StreamID:    &streamID,
			Score:       composite.Score,
			ScoreOutOf:  composite.ScoreOutOf,
			Grade:       resolved.Grade,
			Points:      resolved.Points,
			Remarks:     resolved.Remark,
			IsPublished: exam.IsPublished,
			RecordedBy:  req.RecordedBy,
		}
		if req.Config.HasP1 {
			row.PP1 = scores.P1
			outOf := req.Config.OutOfP1
			row.PP1OutOf = &outOf
		}
		if req.Config.HasP2 {
			row.PP2 = scores.P2
			outOf := req.Config.OutOfP2
			row.PP2OutOf = &outOf
		}
		if req.Config.HasP3 {
			row.PP3 = scores.P3
			outOf := req.Config.OutOfP3
			row.PP3OutOf = &outOf
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no usable marks in batch")
	}

	start := time.Now()
	if err := s.results.BatchUpsert(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist result batch")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("result_batch_upsert", time.Since(start))
		s.metrics.ObserveBatchSize(len(rows))
	}
	summary.Saved = len(rows)

	if s.cache != nil {
		pattern := fmt.Sprintf("analytics:exam:%s*", req.ExamID)
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("failed to invalidate analysis cache", zap.String("pattern", pattern), zap.Error(err))
		}
	}

	s.logger.Info("result batch saved",
		zap.String("exam_id", req.ExamID),
		zap.String("class_id", req.ClassID),
		zap.String("subject_id", req.SubjectID),
		zap.Int("saved", summary.Saved),
		zap.Int("skipped", summary.Skipped),
		zap.Int("ungraded", summary.Ungraded))
	return summary, nil
}

// List returns stored results for the filter. Non-staff readers only
// see published results.
func (s *ResultService) List(ctx context.Context, filter models.ResultFilter, role models.UserRole) ([]models.Result, error) {
	if !role.Staff() {
		filter.PublishedOnly = true
	}
	results, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	return results, nil
}

// Delete soft-removes one result and invalidates derived analytics.
func (s *ResultService) Delete(ctx context.Context, id, examID, deletedBy string) error {
	if err := s.results.SoftDelete(ctx, id, deletedBy); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete result")
	}
	if s.cache != nil && examID != "" {
		if err := s.cache.Invalidate(ctx, fmt.Sprintf("analytics:exam:%s*", examID)); err != nil {
			s.logger.Warn("failed to invalidate analysis cache", zap.Error(err))
		}
	}
	return nil
}
