package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elimuhub/elimu-api/internal/models"
	appErrors "github.com/elimuhub/elimu-api/pkg/errors"
)

type mockAnalyticsRepo struct {
	rows     []models.ResultRow
	roster   []models.ResultRow
	subjects []models.Subject

	lastPublishedOnly bool
	lastStreamID      string
}

func (m *mockAnalyticsRepo) filtered(streamID string) []models.ResultRow {
	if streamID == "" {
		return m.rows
	}
	var scoped []models.ResultRow
	for _, r := range m.rows {
		if r.StreamName == streamID {
			scoped = append(scoped, r)
		}
	}
	return scoped
}

func (m *mockAnalyticsRepo) ResultRows(ctx context.Context, examID, classID, streamID string, publishedOnly bool) ([]models.ResultRow, error) {
	m.lastPublishedOnly = publishedOnly
	m.lastStreamID = streamID
	return m.filtered(streamID), nil
}

func (m *mockAnalyticsRepo) ClassRoster(ctx context.Context, classID, streamID string) ([]models.ResultRow, error) {
	if streamID == "" {
		return m.roster, nil
	}
	var scoped []models.ResultRow
	for _, r := range m.roster {
		if r.StreamName == streamID {
			scoped = append(scoped, r)
		}
	}
	return scoped, nil
}

func (m *mockAnalyticsRepo) SubjectsWithResults(ctx context.Context, examID, classID, streamID string) ([]models.Subject, error) {
	return m.subjects, nil
}

type mockClassReader struct {
	classes map[string]*models.Class
}

func (m *mockClassReader) GetClass(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockDefaultScale struct {
	set models.ScaleSet
}

func (m *mockDefaultScale) DefaultScaleSet(ctx context.Context) models.ScaleSet {
	return m.set
}

func newAnalyticsFixture(published bool) (*AnalyticsService, *mockAnalyticsRepo) {
	repo := &mockAnalyticsRepo{
		rows: []models.ResultRow{
			row("s1", "1001", "Amina Yusuf", "East", "math", 90, "A", 12),
			row("s1", "1001", "Amina Yusuf", "East", "eng", 82, "A", 12),
			row("s2", "1002", "Brian Otieno", "West", "math", 40, "C", 6),
		},
		subjects: []models.Subject{
			{ID: "math", Name: "Mathematics", Code: "MAT"},
			{ID: "eng", Name: "English", Code: "ENG"},
		},
	}
	classes := &mockClassReader{classes: map[string]*models.Class{
		"class-1": {ID: "class-1", Name: "Form 2", Level: 2},
	}}
	exams := &mockExamReader{exams: map[string]*models.Exam{
		"exam-1": {ID: "exam-1", Name: "Midterm", IsPublished: published},
	}}
	svc := NewAnalyticsService(repo, classes, exams, &mockDefaultScale{set: meritBands()}, nil, nil, zap.NewNop())
	return svc, repo
}

func TestAnalyzeAssemblesProjection(t *testing.T) {
	svc, _ := newAnalyticsFixture(true)

	analysis, fromCache, err := svc.Analyze(context.Background(), "exam-1", "class-1", "", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, fromCache)
	require.True(t, analysis.HasData())

	assert.Equal(t, 2, analysis.OverviewStats.Students)
	assert.Equal(t, 63.0, analysis.OverviewStats.AvgMarks)

	grades := analysis.GradeDistribution.General.Grades
	require.Contains(t, grades, "A")
	require.Contains(t, grades, "C")
	assert.Equal(t, 1, grades["A"].Count)
	assert.Equal(t, 1, grades["C"].Count)

	streams := analysis.GradeDistribution.Streams
	require.Contains(t, streams, "East")
	require.Contains(t, streams, "West")
	assert.Equal(t, 86.0, streams["East"].Mean)
	assert.Equal(t, "A", streams["East"].Grade)

	require.Contains(t, analysis.SubjectPerformance, "Mathematics")
	math := analysis.SubjectPerformance["Mathematics"].General
	assert.Equal(t, 65.0, math.Avg)
	assert.Equal(t, "MAT", math.SubjectInfo.Code)

	require.Len(t, analysis.MeritList, 2)
	assert.Equal(t, "1001", analysis.MeritList[0].AdmissionNumber)
}

func TestAnalyzeStreamScopedRanking(t *testing.T) {
	svc, repo := newAnalyticsFixture(true)

	analysis, _, err := svc.Analyze(context.Background(), "exam-1", "class-1", "East", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "East", repo.lastStreamID)

	// Only the East rows are ranked; the West student never appears.
	require.Len(t, analysis.MeritList, 1)
	top := analysis.MeritList[0]
	assert.Equal(t, "1001", top.AdmissionNumber)
	require.NotNil(t, top.ClassRank)
	assert.Equal(t, 1, *top.ClassRank)
	assert.Equal(t, 1, analysis.OverviewStats.Students)
	assert.NotContains(t, analysis.GradeDistribution.Streams, "West")
}

func TestAnalyzeUnpublishedExamForbiddenForStudents(t *testing.T) {
	svc, _ := newAnalyticsFixture(false)

	_, _, err := svc.Analyze(context.Background(), "exam-1", "class-1", "", models.RoleStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAnalyzeStaffSeeUnpublishedData(t *testing.T) {
	svc, repo := newAnalyticsFixture(false)

	_, _, err := svc.Analyze(context.Background(), "exam-1", "class-1", "", models.RoleTeacher)
	require.NoError(t, err)
	assert.False(t, repo.lastPublishedOnly)
}

func TestAnalyzeStudentsOnlySeePublishedRows(t *testing.T) {
	svc, repo := newAnalyticsFixture(true)

	_, _, err := svc.Analyze(context.Background(), "exam-1", "class-1", "", models.RoleStudent)
	require.NoError(t, err)
	assert.True(t, repo.lastPublishedOnly)
}

func TestAnalyzeEmptyScope(t *testing.T) {
	svc, repo := newAnalyticsFixture(true)
	repo.rows = nil

	analysis, _, err := svc.Analyze(context.Background(), "exam-1", "class-1", "", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, analysis.HasData())
	assert.Empty(t, analysis.MeritList)
	assert.Empty(t, analysis.GradeDistribution.General.Grades)
}

func TestAnalyzeUnknownExam(t *testing.T) {
	svc, _ := newAnalyticsFixture(true)

	_, _, err := svc.Analyze(context.Background(), "missing", "class-1", "", models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
