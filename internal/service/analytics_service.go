package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elimuhub/elimu-api/internal/models"
	appErrors "github.com/elimuhub/elimu-api/pkg/errors"
)

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	ResultRows(ctx context.Context, examID, classID, streamID string, publishedOnly bool) ([]models.ResultRow, error)
	ClassRoster(ctx context.Context, classID, streamID string) ([]models.ResultRow, error)
	SubjectsWithResults(ctx context.Context, examID, classID, streamID string) ([]models.Subject, error)
}

type analyticsClassRepository interface {
	GetClass(ctx context.Context, id string) (*models.Class, error)
}

type analyticsExamRepository interface {
	GetByID(ctx context.Context, id string) (*models.Exam, error)
}

type defaultScaleResolver interface {
	DefaultScaleSet(ctx context.Context) models.ScaleSet
}

// AnalyticsService computes the exam analysis projection with cache
// integration.
type AnalyticsService struct {
	repo    AnalyticsRepository
	classes analyticsClassRepository
	exams   analyticsExamRepository
	grading defaultScaleResolver
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, classes analyticsClassRepository, exams analyticsExamRepository, grading defaultScaleResolver, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, classes: classes, exams: exams, grading: grading, cache: cache, metrics: metrics, logger: logger}
}

// Analyze builds the full analysis for one exam and class. A non-empty
// streamID narrows the scope, and the merit list ranks within that
// stream only. The boolean indicates whether the payload came from
// cache. Non-staff readers only see published data and cannot analyse
// an unpublished exam.
func (s *AnalyticsService) Analyze(ctx context.Context, examID, classID, streamID string, role models.UserRole) (*models.ExamAnalysis, bool, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if !role.Staff() && !exam.IsPublished {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "exam results are not published")
	}
	publishedOnly := !role.Staff()

	cacheKey := makeAnalyticsCacheKey("exam", examID, classID, streamID, boolKey(publishedOnly))
	var cached models.ExamAnalysis
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get analysis cache: %w", err)
		} else if hit {
			return &cached, true, nil
		}
	}

	class, err := s.classes.GetClass(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	start := time.Now()
	rows, err := s.repo.ResultRows(ctx, examID, classID, streamID, publishedOnly)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	roster, err := s.repo.ClassRoster(ctx, classID, streamID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	subjects, err := s.repo.SubjectsWithResults(ctx, examID, classID, streamID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("exam_analysis", time.Since(start))
	}

	set := models.ScaleSet{}
	if s.grading != nil {
		set = s.grading.DefaultScaleSet(ctx)
	}

	analysis := s.assemble(exam, class, rows, roster, subjects, set)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, analysis, 0); err != nil {
			s.logger.Warn("cache exam analysis", zap.Error(err))
		}
	}
	return analysis, false, nil
}

// SystemMetrics returns the instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.SystemMetrics {
	if s.metrics == nil {
		return models.SystemMetrics{}
	}
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) assemble(exam *models.Exam, class *models.Class, rows []models.ResultRow, roster []models.ResultRow, subjects []models.Subject, set models.ScaleSet) *models.ExamAnalysis {
	analysis := &models.ExamAnalysis{
		ExamID:  exam.ID,
		ClassID: class.ID,
		GradeDistribution: models.GradeDistribution{
			General: models.GradeDistributionGeneral{Grades: map[string]models.GradeTally{}},
			Streams: map[string]models.StreamSlice{},
		},
		SubjectPerformance: map[string]models.SubjectPerformance{},
		MeritList:          []models.MeritRow{},
	}
	if len(rows) == 0 {
		return analysis
	}

	merit := buildMeritList(rows, roster, class.Name, set)
	analysis.MeritList = merit

	colorByGrade := make(map[string]string, len(set.Bands()))
	for _, band := range set.Bands() {
		colorByGrade[band.Grade] = band.Color
	}

	// Overview and the general grade histogram come from the ranked
	// students only.
	var ranked int
	var sumMarks, sumPoints float64
	for _, row := range merit {
		if row.GradedSubjects == 0 {
			continue
		}
		ranked++
		sumMarks += row.AvgMarks
		sumPoints += row.AvgPoints
		if row.AvgGrade != nil {
			tally := analysis.GradeDistribution.General.Grades[*row.AvgGrade]
			tally.Count++
			tally.Color = colorByGrade[*row.AvgGrade]
			analysis.GradeDistribution.General.Grades[*row.AvgGrade] = tally
		}
	}
	if ranked > 0 {
		analysis.OverviewStats = models.OverviewStats{
			Students:  ranked,
			AvgMarks:  roundingMode(sumMarks / float64(ranked)),
			AvgPoints: roundingMode(sumPoints / float64(ranked)),
		}
		if band := set.NearestBand(analysis.OverviewStats.AvgPoints); band != nil {
			grade := band.Grade
			analysis.OverviewStats.AvgGrade = &grade
		}
	}

	// Stream comparison: mean of the student averages per stream.
	streamSums := map[string]float64{}
	streamCounts := map[string]int{}
	for _, row := range merit {
		if row.GradedSubjects == 0 {
			continue
		}
		streamSums[row.Stream] += row.AvgMarks
		streamCounts[row.Stream]++
	}
	for stream, count := range streamCounts {
		mean := roundingMode(streamSums[stream] / float64(count))
		slice := models.StreamSlice{Mean: mean}
		if resolved := set.Resolve(mean); resolved.Resolved() {
			slice.Grade = *resolved.Grade
			slice.Color = colorByGrade[*resolved.Grade]
		}
		analysis.GradeDistribution.Streams[stream] = slice
	}

	// Per-subject breakdown.
	subjectByID := make(map[string]models.Subject, len(subjects))
	for _, sub := range subjects {
		subjectByID[sub.ID] = sub
	}
	subjectSums := map[string]float64{}
	subjectCounts := map[string]int{}
	subjectGrades := map[string]map[string]int{}
	for _, r := range rows {
		subjectSums[r.SubjectID] += r.Score
		subjectCounts[r.SubjectID]++
		if r.Grade != nil {
			if subjectGrades[r.SubjectID] == nil {
				subjectGrades[r.SubjectID] = map[string]int{}
			}
			subjectGrades[r.SubjectID][*r.Grade]++
		}
	}
	for id, count := range subjectCounts {
		sub, ok := subjectByID[id]
		if !ok {
			continue
		}
		grades := make([]models.SubjectGradeCount, 0, len(subjectGrades[id]))
		for grade, n := range subjectGrades[id] {
			grades = append(grades, models.SubjectGradeCount{Grade: grade, Color: colorByGrade[grade], Count: n})
		}
		sort.Slice(grades, func(i, j int) bool { return grades[i].Grade < grades[j].Grade })
		analysis.SubjectPerformance[sub.Name] = models.SubjectPerformance{
			General: models.SubjectGeneral{
				SubjectInfo: sub,
				Avg:         roundingMode(subjectSums[id] / float64(count)),
				Grades:      grades,
			},
		}
	}

	return analysis
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

func boolKey(v bool) string {
	if v {
		return "published"
	}
	return "all"
}
