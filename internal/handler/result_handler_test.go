package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elimuhub/elimu-api/internal/middleware"
	"github.com/elimuhub/elimu-api/internal/models"
	"github.com/elimuhub/elimu-api/internal/service"
)

type fakeResultRepo struct {
	batches [][]models.Result
	deleted []string
}

func (f *fakeResultRepo) BatchUpsert(ctx context.Context, results []models.Result) error {
	saved := make([]models.Result, len(results))
	copy(saved, results)
	f.batches = append(f.batches, saved)
	return nil
}

func (f *fakeResultRepo) List(ctx context.Context, filter models.ResultFilter) ([]models.Result, error) {
	return nil, nil
}

func (f *fakeResultRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeExamReader struct{}

func (f *fakeExamReader) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	if id != "exam-1" {
		return nil, sql.ErrNoRows
	}
	return &models.Exam{ID: "exam-1", TermID: "term-1", Name: "Midterm"}, nil
}

type fakeSubjectReader struct{}

func (f *fakeSubjectReader) GetByID(ctx context.Context, id string) (*models.Subject, error) {
	if id != "math" {
		return nil, sql.ErrNoRows
	}
	return &models.Subject{ID: "math", Name: "Mathematics", Code: "MAT"}, nil
}

type fakeStudentLister struct {
	lastFilter models.StudentFilter
}

func (f *fakeStudentLister) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	f.lastFilter = filter
	return []models.Student{
		{ID: "s1", AdmissionNo: "1001", FirstName: "Amina", LastName: "Yusuf", ClassID: "class-1", ClassStreamID: "cs-1"},
	}, nil
}

type fakeScaleResolver struct{}

func (f *fakeScaleResolver) ScaleSetForSubject(ctx context.Context, subject *models.Subject) (models.ScaleSet, error) {
	return models.NewScaleSet("sys-1", []models.GradeScale{
		{Grade: "A", MinScore: 80, MaxScore: 100, GradePoint: 12, Remark: "Excellent"},
		{Grade: "B", MinScore: 0, MaxScore: 79.99, GradePoint: 9, Remark: "Good"},
	}), nil
}

func newResultFixture() (*ResultHandler, *fakeResultRepo) {
	repo := &fakeResultRepo{}
	svc := service.NewResultService(repo, &fakeExamReader{}, &fakeSubjectReader{}, &fakeStudentLister{}, &fakeScaleResolver{}, nil, nil, nil, zap.NewNop())
	return NewResultHandler(svc), repo
}

func TestSaveBatchInactivePaperViaNullOutOf(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newResultFixture()

	body := `{
		"exam_id": "exam-1",
		"class_id": "class-1",
		"subject_id": "math",
		"scores": {"s1": {"P1": 40, "P2": 45}},
		"out_of": {"score": 100, "P1": 50, "P2": 50, "P3": null}
	}`

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/results", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleTeacher})

	handler.SaveBatch(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.batches, 1)
	require.Len(t, repo.batches[0], 1)

	saved := repo.batches[0][0]
	assert.Equal(t, 85.0, saved.Score)
	assert.Nil(t, saved.PP3)
	require.NotNil(t, saved.Grade)
	assert.Equal(t, "A", *saved.Grade)

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(1), envelope.Data["saved"])
}

func TestSaveBatchForwardsStreamScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeResultRepo{}
	students := &fakeStudentLister{}
	svc := service.NewResultService(repo, &fakeExamReader{}, &fakeSubjectReader{}, students, &fakeScaleResolver{}, nil, nil, nil, zap.NewNop())
	handler := NewResultHandler(svc)

	body := `{
		"exam_id": "exam-1",
		"class_id": "class-1",
		"stream_id": "cs-1",
		"subject_id": "math",
		"scores": {"s1": {"score": 70}},
		"out_of": {"score": 100}
	}`

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/results", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleTeacher})

	handler.SaveBatch(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "class-1", students.lastFilter.ClassID)
	assert.Equal(t, "cs-1", students.lastFilter.ClassStreamID)
}

func TestSaveBatchRejectsMalformedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newResultFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/results", strings.NewReader(`{"exam_id": 5}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleTeacher})

	handler.SaveBatch(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.batches)
}

func TestSaveBatchRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newResultFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/results", strings.NewReader(`{}`))

	handler.SaveBatch(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteResultRequiresExamID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newResultFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/results/r1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})

	handler.Delete(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.deleted)
}
