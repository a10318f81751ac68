package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elimuhub/elimu-api/internal/middleware"
	"github.com/elimuhub/elimu-api/internal/models"
	"github.com/elimuhub/elimu-api/internal/service"
)

type fakeAnalyticsRepo struct {
	lastStreamID string
}

func (f *fakeAnalyticsRepo) ResultRows(ctx context.Context, examID, classID, streamID string, publishedOnly bool) ([]models.ResultRow, error) {
	f.lastStreamID = streamID
	grade := "A"
	points := 12.0
	return []models.ResultRow{{
		StudentID:   "s1",
		AdmissionNo: "1001",
		StudentName: "Amina Yusuf",
		StreamName:  "East",
		SubjectID:   "math",
		SubjectName: "Mathematics",
		Score:       90,
		ScoreOutOf:  100,
		Grade:       &grade,
		Points:      &points,
	}}, nil
}

func (f *fakeAnalyticsRepo) ClassRoster(ctx context.Context, classID, streamID string) ([]models.ResultRow, error) {
	return nil, nil
}

func (f *fakeAnalyticsRepo) SubjectsWithResults(ctx context.Context, examID, classID, streamID string) ([]models.Subject, error) {
	return []models.Subject{{ID: "math", Name: "Mathematics", Code: "MAT"}}, nil
}

type fakeClassReader struct{}

func (f *fakeClassReader) GetClass(ctx context.Context, id string) (*models.Class, error) {
	if id != "class-1" {
		return nil, sql.ErrNoRows
	}
	return &models.Class{ID: "class-1", Name: "Form 2", Level: 2}, nil
}

type fakeAnalyticsExamReader struct {
	published bool
}

func (f *fakeAnalyticsExamReader) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	if id != "exam-1" {
		return nil, sql.ErrNoRows
	}
	return &models.Exam{ID: "exam-1", Name: "Midterm", IsPublished: f.published}, nil
}

type fakeDefaultScale struct{}

func (f *fakeDefaultScale) DefaultScaleSet(ctx context.Context) models.ScaleSet {
	return models.NewScaleSet("sys-1", []models.GradeScale{
		{Grade: "A", MinScore: 80, MaxScore: 100, GradePoint: 12, Remark: "Excellent"},
		{Grade: "B", MinScore: 0, MaxScore: 79.99, GradePoint: 9, Remark: "Good"},
	})
}

func newAnalyticsHandlerFixture(published bool) (*AnalyticsHandler, *fakeAnalyticsRepo) {
	repo := &fakeAnalyticsRepo{}
	svc := service.NewAnalyticsService(repo, &fakeClassReader{}, &fakeAnalyticsExamReader{published: published}, &fakeDefaultScale{}, nil, nil, zap.NewNop())
	return NewAnalyticsHandler(svc), repo
}

func TestExamAnalysisRequiresScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAnalyticsHandlerFixture(true)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/analytics/exams?exam_id=exam-1", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})

	handler.ExamAnalysis(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExamAnalysisSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAnalyticsHandlerFixture(true)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/analytics/exams?exam_id=exam-1&class_id=class-1", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})

	handler.ExamAnalysis(c)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data map[string]interface{} `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["cache_hit"])
	assert.NotNil(t, envelope.Meta["processing_time_ms"])
	assert.NotEmpty(t, envelope.Data)
}

func TestExamAnalysisForwardsStreamScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newAnalyticsHandlerFixture(true)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/analytics/exams?exam_id=exam-1&class_id=class-1&stream_id=cs-east", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})

	handler.ExamAnalysis(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cs-east", repo.lastStreamID)
}

func TestExamAnalysisUnpublishedForbiddenForStudents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newAnalyticsHandlerFixture(false)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/analytics/exams?exam_id=exam-1&class_id=class-1", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.ExamAnalysis(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
