package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimuhub/elimu-api/internal/models"
)

func f(v float64) *float64 { return &v }

func TestComputeCompositeAveragesActivePapers(t *testing.T) {
	cfg := models.PaperConfig{HasP1: true, HasP2: true, OutOfP1: 60, OutOfP2: 40, OutOfScore: 100}
	scores := models.PaperScores{P1: f(45), P2: f(30)}

	composite, ok := computeComposite(scores, cfg)
	require.True(t, ok)
	// 45/60 = 75%, 30/40 = 75%, mean 75% of 100.
	assert.Equal(t, 75.0, composite.Score)
	assert.Equal(t, 100.0, composite.ScoreOutOf)
	assert.Equal(t, 75.0, composite.Percent)
}

func TestComputeCompositeBlankActivePaperCountsAsZero(t *testing.T) {
	cfg := models.PaperConfig{HasP1: true, HasP2: true, OutOfP1: 100, OutOfP2: 100, OutOfScore: 100}
	scores := models.PaperScores{P1: f(80)}

	composite, ok := computeComposite(scores, cfg)
	require.True(t, ok)
	// P2 was active but blank, so it contributes 0 and still divides.
	assert.Equal(t, 40.0, composite.Score)
	assert.Equal(t, 40.0, composite.Percent)
}

func TestComputeCompositeDividesByActivePapers(t *testing.T) {
	cfg := models.PaperConfig{HasP1: true, HasP2: true, HasP3: true, OutOfP1: 100, OutOfP2: 100, OutOfP3: 100, OutOfScore: 100}
	scores := models.PaperScores{P1: f(80)}

	composite, ok := computeComposite(scores, cfg)
	require.True(t, ok)
	assert.Equal(t, 26.67, composite.Score)
}

func TestComputeCompositeProjectsOntoSubjectScale(t *testing.T) {
	cfg := models.PaperConfig{HasP1: true, OutOfP1: 50, OutOfScore: 60}
	scores := models.PaperScores{P1: f(25)}

	composite, ok := computeComposite(scores, cfg)
	require.True(t, ok)
	assert.Equal(t, 30.0, composite.Score)
	assert.Equal(t, 60.0, composite.ScoreOutOf)
	assert.Equal(t, 50.0, composite.Percent)
}

func TestComputeCompositeDirectEntryWithoutPapers(t *testing.T) {
	cfg := models.PaperConfig{OutOfScore: 100}
	scores := models.PaperScores{Score: f(67.456)}

	composite, ok := computeComposite(scores, cfg)
	require.True(t, ok)
	assert.Equal(t, 67.46, composite.Score)
}

func TestComputeCompositeClampsOutOfRangeMarks(t *testing.T) {
	cfg := models.PaperConfig{HasP1: true, OutOfP1: 50, OutOfScore: 100}
	scores := models.PaperScores{P1: f(70)}

	composite, ok := computeComposite(scores, cfg)
	require.True(t, ok)
	assert.Equal(t, 100.0, composite.Score)
}

func TestComputeCompositeDefaultsZeroOutOf(t *testing.T) {
	cfg := models.PaperConfig{HasP1: true, OutOfP1: 0, OutOfScore: 0}
	scores := models.PaperScores{P1: f(55)}

	composite, ok := computeComposite(scores, cfg)
	require.True(t, ok)
	assert.Equal(t, 55.0, composite.Score)
	assert.Equal(t, 100.0, composite.ScoreOutOf)
}

func TestComputeCompositeNoUsableMarks(t *testing.T) {
	cfg := models.PaperConfig{HasP1: true, OutOfP1: 100, OutOfScore: 100}

	_, ok := computeComposite(models.PaperScores{}, cfg)
	assert.False(t, ok)

	_, ok = computeComposite(models.PaperScores{}, models.PaperConfig{OutOfScore: 100})
	assert.False(t, ok)
}
