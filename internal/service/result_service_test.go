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

type mockResultRepo struct {
	batches [][]models.Result
	deleted []string
}

func (m *mockResultRepo) BatchUpsert(ctx context.Context, results []models.Result) error {
	saved := make([]models.Result, len(results))
	copy(saved, results)
	m.batches = append(m.batches, saved)
	return nil
}

func (m *mockResultRepo) List(ctx context.Context, filter models.ResultFilter) ([]models.Result, error) {
	var all []models.Result
	for _, batch := range m.batches {
		for _, r := range batch {
			if filter.PublishedOnly && !r.IsPublished {
				continue
			}
			all = append(all, r)
		}
	}
	return all, nil
}

func (m *mockResultRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockExamReader struct {
	exams map[string]*models.Exam
}

func (m *mockExamReader) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	if e, ok := m.exams[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

type mockSubjectReader struct {
	subjects map[string]*models.Subject
}

func (m *mockSubjectReader) GetByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockStudentLister struct {
	students []models.Student
}

func (m *mockStudentLister) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	var matched []models.Student
	for _, st := range m.students {
		if filter.ClassID != "" && st.ClassID != filter.ClassID {
			continue
		}
		if filter.ClassStreamID != "" && st.ClassStreamID != filter.ClassStreamID {
			continue
		}
		matched = append(matched, st)
	}
	return matched, nil
}

type mockGradingResolver struct {
	set models.ScaleSet
	err error
}

func (m *mockGradingResolver) ScaleSetForSubject(ctx context.Context, subject *models.Subject) (models.ScaleSet, error) {
	if m.err != nil {
		return models.ScaleSet{}, m.err
	}
	return m.set, nil
}

func newBatchFixture() (*ResultService, *mockResultRepo) {
	repo := &mockResultRepo{}
	exams := &mockExamReader{exams: map[string]*models.Exam{
		"exam-1": {ID: "exam-1", TermID: "term-1", Name: "Midterm", IsPublished: false},
	}}
	subjects := &mockSubjectReader{subjects: map[string]*models.Subject{
		"math": {ID: "math", Name: "Mathematics", Code: "MAT"},
	}}
	students := &mockStudentLister{students: []models.Student{
		{ID: "s1", AdmissionNo: "1001", FirstName: "Amina", LastName: "Yusuf", ClassID: "class-1", ClassStreamID: "cs-1"},
		{ID: "s2", AdmissionNo: "1002", FirstName: "Brian", LastName: "Otieno", ClassID: "class-1", ClassStreamID: "cs-2"},
	}}
	grading := &mockGradingResolver{set: meritBands()}
	svc := NewResultService(repo, exams, subjects, students, grading, nil, nil, nil, zap.NewNop())
	return svc, repo
}

func TestSaveBatchComputesAndPersists(t *testing.T) {
	svc, repo := newBatchFixture()

	summary, err := svc.SaveBatch(context.Background(), BatchSaveRequest{
		ExamID:    "exam-1",
		ClassID:   "class-1",
		SubjectID: "math",
		Config:    models.PaperConfig{HasP1: true, HasP2: true, OutOfP1: 50, OutOfP2: 50, OutOfScore: 100},
		Scores: map[string]models.PaperScores{
			"s1": {P1: f(40), P2: f(45)},
			"s2": {P1: f(20), P2: f(25)},
		},
		RecordedBy: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Saved)
	assert.Zero(t, summary.Skipped)
	assert.Zero(t, summary.Ungraded)

	require.Len(t, repo.batches, 1)
	batch := repo.batches[0]
	require.Len(t, batch, 2)

	// Rows come out sorted by student ID.
	first := batch[0]
	assert.Equal(t, "s1", first.StudentID)
	assert.Equal(t, 85.0, first.Score)
	require.NotNil(t, first.Grade)
	assert.Equal(t, "A", *first.Grade)
	assert.False(t, first.IsPublished)
	require.NotNil(t, first.StreamID)
	assert.Equal(t, "cs-1", *first.StreamID)

	second := batch[1]
	assert.Equal(t, "s2", second.StudentID)
	assert.Equal(t, 45.0, second.Score)
	require.NotNil(t, second.Grade)
	assert.Equal(t, "C", *second.Grade)
}

func TestSaveBatchStreamScopeRestrictsRoster(t *testing.T) {
	svc, repo := newBatchFixture()

	// s2 belongs to cs-2, so a cs-1 batch must reject it outright.
	_, err := svc.SaveBatch(context.Background(), BatchSaveRequest{
		ExamID:    "exam-1",
		ClassID:   "class-1",
		StreamID:  "cs-1",
		SubjectID: "math",
		Config:    models.PaperConfig{OutOfScore: 100},
		Scores: map[string]models.PaperScores{
			"s1": {Score: f(70)},
			"s2": {Score: f(60)},
		},
		RecordedBy: "user-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.batches)

	summary, err := svc.SaveBatch(context.Background(), BatchSaveRequest{
		ExamID:     "exam-1",
		ClassID:    "class-1",
		StreamID:   "cs-1",
		SubjectID:  "math",
		Config:     models.PaperConfig{OutOfScore: 100},
		Scores:     map[string]models.PaperScores{"s1": {Score: f(70)}},
		RecordedBy: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Saved)
}

func TestSaveBatchRejectsStudentOutsideClass(t *testing.T) {
	svc, repo := newBatchFixture()

	_, err := svc.SaveBatch(context.Background(), BatchSaveRequest{
		ExamID:    "exam-1",
		ClassID:   "class-1",
		SubjectID: "math",
		Config:    models.PaperConfig{OutOfScore: 100},
		Scores: map[string]models.PaperScores{
			"s1":       {Score: f(70)},
			"intruder": {Score: f(50)},
		},
		RecordedBy: "user-1",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	// Nothing was written.
	assert.Empty(t, repo.batches)
}

func TestSaveBatchUnknownExam(t *testing.T) {
	svc, _ := newBatchFixture()

	_, err := svc.SaveBatch(context.Background(), BatchSaveRequest{
		ExamID:     "missing",
		ClassID:    "class-1",
		SubjectID:  "math",
		Config:     models.PaperConfig{OutOfScore: 100},
		Scores:     map[string]models.PaperScores{"s1": {Score: f(70)}},
		RecordedBy: "user-1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSaveBatchWithoutGradingConfigurationSavesUngraded(t *testing.T) {
	svc, repo := newBatchFixture()
	svc.grading = &mockGradingResolver{err: appErrors.Clone(appErrors.ErrGradingNotConfigured, "no default grading system configured")}

	summary, err := svc.SaveBatch(context.Background(), BatchSaveRequest{
		ExamID:     "exam-1",
		ClassID:    "class-1",
		SubjectID:  "math",
		Config:     models.PaperConfig{OutOfScore: 100},
		Scores:     map[string]models.PaperScores{"s1": {Score: f(70)}},
		RecordedBy: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Saved)
	assert.Equal(t, 1, summary.Ungraded)

	require.Len(t, repo.batches, 1)
	saved := repo.batches[0][0]
	assert.Nil(t, saved.Grade)
	assert.Nil(t, saved.Points)
	assert.Equal(t, models.RemarkNotGraded, saved.Remarks)
	assert.Equal(t, 70.0, saved.Score)
}

func TestSaveBatchSkipsStudentsWithoutMarks(t *testing.T) {
	svc, repo := newBatchFixture()

	summary, err := svc.SaveBatch(context.Background(), BatchSaveRequest{
		ExamID:    "exam-1",
		ClassID:   "class-1",
		SubjectID: "math",
		Config:    models.PaperConfig{HasP1: true, OutOfP1: 100, OutOfScore: 100},
		Scores: map[string]models.PaperScores{
			"s1": {P1: f(80)},
			"s2": {},
		},
		RecordedBy: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Saved)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, repo.batches, 1)
	require.Len(t, repo.batches[0], 1)
}

func TestListHidesUnpublishedFromNonStaff(t *testing.T) {
	svc, repo := newBatchFixture()
	repo.batches = [][]models.Result{{
		{ID: "r1", ExamID: "exam-1", IsPublished: false},
		{ID: "r2", ExamID: "exam-1", IsPublished: true},
	}}

	staff, err := svc.List(context.Background(), models.ResultFilter{ExamID: "exam-1"}, models.RoleTeacher)
	require.NoError(t, err)
	assert.Len(t, staff, 2)

	student, err := svc.List(context.Background(), models.ResultFilter{ExamID: "exam-1"}, models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, student, 1)
	assert.Equal(t, "r2", student[0].ID)
}
