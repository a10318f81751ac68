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

type mockGradingRepo struct {
	systems   map[string]*models.GradingSystem
	scales    map[string][]models.GradeScale
	defaultID string
	replaced  map[string][]models.GradeScale
}

func newMockGradingRepo() *mockGradingRepo {
	return &mockGradingRepo{
		systems:  map[string]*models.GradingSystem{},
		scales:   map[string][]models.GradeScale{},
		replaced: map[string][]models.GradeScale{},
	}
}

func (m *mockGradingRepo) ListSystems(ctx context.Context) ([]models.GradingSystem, error) {
	var out []models.GradingSystem
	for _, s := range m.systems {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockGradingRepo) GetSystem(ctx context.Context, id string) (*models.GradingSystem, error) {
	if s, ok := m.systems[id]; ok {
		copied := *s
		copied.Scales = m.scales[id]
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradingRepo) DefaultSystem(ctx context.Context) (*models.GradingSystem, error) {
	if m.defaultID == "" {
		return nil, sql.ErrNoRows
	}
	return m.GetSystem(ctx, m.defaultID)
}

func (m *mockGradingRepo) CreateSystem(ctx context.Context, system *models.GradingSystem) error {
	if system.ID == "" {
		system.ID = "sys-new"
	}
	m.systems[system.ID] = system
	return nil
}

func (m *mockGradingRepo) UpdateSystem(ctx context.Context, system *models.GradingSystem) error {
	m.systems[system.ID] = system
	return nil
}

func (m *mockGradingRepo) SetDefaultSystem(ctx context.Context, id string) error {
	if _, ok := m.systems[id]; !ok {
		return sql.ErrNoRows
	}
	m.defaultID = id
	return nil
}

func (m *mockGradingRepo) ScalesBySystem(ctx context.Context, systemID string) ([]models.GradeScale, error) {
	return m.scales[systemID], nil
}

func (m *mockGradingRepo) ReplaceScales(ctx context.Context, systemID string, scales []models.GradeScale) error {
	m.scales[systemID] = scales
	m.replaced[systemID] = scales
	return nil
}

func seedGradingRepo() *mockGradingRepo {
	repo := newMockGradingRepo()
	repo.systems["sys-844"] = &models.GradingSystem{ID: "sys-844", Name: "8-4-4", IsDefault: true}
	repo.systems["sys-cbc"] = &models.GradingSystem{ID: "sys-cbc", Name: "CBC"}
	repo.defaultID = "sys-844"
	repo.scales["sys-844"] = []models.GradeScale{
		{Grade: "A", MinScore: 80, MaxScore: 100, GradePoint: 12},
		{Grade: "B", MinScore: 0, MaxScore: 79.99, GradePoint: 9},
	}
	repo.scales["sys-cbc"] = []models.GradeScale{
		{Grade: "EE", MinScore: 76, MaxScore: 100, GradePoint: 4},
	}
	return repo
}

func TestScaleSetForSubjectUsesSubjectOverride(t *testing.T) {
	svc := NewGradingService(seedGradingRepo(), nil, zap.NewNop())
	override := "sys-cbc"
	subject := &models.Subject{ID: "math", GradingSystemID: &override}

	set, err := svc.ScaleSetForSubject(context.Background(), subject)
	require.NoError(t, err)
	assert.Equal(t, "sys-cbc", set.SystemID)
	require.Len(t, set.Bands(), 1)
	assert.Equal(t, "EE", set.Bands()[0].Grade)
}

func TestScaleSetForSubjectFallsBackToDefault(t *testing.T) {
	svc := NewGradingService(seedGradingRepo(), nil, zap.NewNop())
	subject := &models.Subject{ID: "math"}

	set, err := svc.ScaleSetForSubject(context.Background(), subject)
	require.NoError(t, err)
	assert.Equal(t, "sys-844", set.SystemID)
	assert.Len(t, set.Bands(), 2)
}

func TestScaleSetForSubjectNoDefaultConfigured(t *testing.T) {
	repo := seedGradingRepo()
	repo.defaultID = ""
	svc := NewGradingService(repo, nil, zap.NewNop())

	_, err := svc.ScaleSetForSubject(context.Background(), &models.Subject{ID: "math"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGradingNotConfigured.Code, appErrors.FromError(err).Code)
}

func TestReplaceScalesRejectsOverlap(t *testing.T) {
	repo := seedGradingRepo()
	svc := NewGradingService(repo, nil, zap.NewNop())

	_, err := svc.ReplaceScales(context.Background(), "sys-844", []GradeScaleRequest{
		{Grade: "A", MinScore: 70, MaxScore: 100, GradePoint: 12, Remark: "Excellent"},
		{Grade: "B", MinScore: 60, MaxScore: 75, GradePoint: 9, Remark: "Good"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScaleOverlap.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.replaced["sys-844"])
}

func TestReplaceScalesAcceptsGappedBands(t *testing.T) {
	repo := seedGradingRepo()
	svc := NewGradingService(repo, nil, zap.NewNop())

	scales, err := svc.ReplaceScales(context.Background(), "sys-844", []GradeScaleRequest{
		{Grade: "A", MinScore: 80, MaxScore: 100, GradePoint: 12, Remark: "Excellent"},
		{Grade: "B", MinScore: 50, MaxScore: 70, GradePoint: 9, Remark: "Good"},
	})
	require.NoError(t, err)
	assert.Len(t, scales, 2)
	assert.Len(t, repo.replaced["sys-844"], 2)
}

func TestSetDefaultUnknownSystem(t *testing.T) {
	svc := NewGradingService(seedGradingRepo(), nil, zap.NewNop())

	err := svc.SetDefault(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSetDefaultSwapsSystem(t *testing.T) {
	repo := seedGradingRepo()
	svc := NewGradingService(repo, nil, zap.NewNop())

	require.NoError(t, svc.SetDefault(context.Background(), "sys-cbc"))
	assert.Equal(t, "sys-cbc", repo.defaultID)
}
