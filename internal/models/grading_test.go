package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBands() []GradeScale {
	return []GradeScale{
		{Grade: "A", MinScore: 80, MaxScore: 100, GradePoint: 12, Remark: "Excellent", DisplayOrder: 1},
		{Grade: "B", MinScore: 60, MaxScore: 79.99, GradePoint: 9, Remark: "Good", DisplayOrder: 2},
		{Grade: "C", MinScore: 40, MaxScore: 59.99, GradePoint: 6, Remark: "Fair", DisplayOrder: 3},
		{Grade: "E", MinScore: 0, MaxScore: 39.99, GradePoint: 1, Remark: "Weak", DisplayOrder: 4},
	}
}

func TestScaleSetResolve(t *testing.T) {
	set := NewScaleSet("sys-1", sampleBands())

	resolved := set.Resolve(85)
	require.True(t, resolved.Resolved())
	assert.Equal(t, "A", *resolved.Grade)
	assert.Equal(t, 12.0, *resolved.Points)
	assert.Equal(t, "Excellent", resolved.Remark)

	boundary := set.Resolve(80)
	require.True(t, boundary.Resolved())
	assert.Equal(t, "A", *boundary.Grade)

	low := set.Resolve(0)
	require.True(t, low.Resolved())
	assert.Equal(t, "E", *low.Grade)
}

func TestScaleSetResolveUncoveredScore(t *testing.T) {
	bands := []GradeScale{
		{Grade: "A", MinScore: 80, MaxScore: 100, GradePoint: 12, Remark: "Excellent"},
	}
	set := NewScaleSet("sys-1", bands)

	resolved := set.Resolve(50)
	assert.False(t, resolved.Resolved())
	assert.Nil(t, resolved.Grade)
	assert.Nil(t, resolved.Points)
	assert.Equal(t, RemarkNotGraded, resolved.Remark)
}

func TestScaleSetResolveEmptySet(t *testing.T) {
	set := NewScaleSet("sys-1", nil)
	require.True(t, set.Empty())
	resolved := set.Resolve(50)
	assert.False(t, resolved.Resolved())
	assert.Equal(t, RemarkNotGraded, resolved.Remark)
}

func TestScaleSetNearestBand(t *testing.T) {
	set := NewScaleSet("sys-1", sampleBands())

	band := set.NearestBand(8.4)
	require.NotNil(t, band)
	assert.Equal(t, "B", band.Grade)

	// Equidistant points pick the higher band.
	mid := set.NearestBand(10.5)
	require.NotNil(t, mid)
	assert.Equal(t, "A", mid.Grade)

	none := NewScaleSet("sys-2", nil).NearestBand(5)
	assert.Nil(t, none)
}

func TestValidateBandsRejectsOverlap(t *testing.T) {
	bands := []GradeScale{
		{Grade: "A", MinScore: 70, MaxScore: 100},
		{Grade: "B", MinScore: 60, MaxScore: 75},
	}
	err := ValidateBands(bands)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps")
}

func TestValidateBandsRejectsInvertedRange(t *testing.T) {
	bands := []GradeScale{
		{Grade: "A", MinScore: 90, MaxScore: 80},
	}
	require.Error(t, ValidateBands(bands))
}

func TestValidateBandsAcceptsGappedScale(t *testing.T) {
	bands := []GradeScale{
		{Grade: "A", MinScore: 80, MaxScore: 100},
		{Grade: "B", MinScore: 50, MaxScore: 70},
	}
	require.NoError(t, ValidateBands(bands))

	gaps := CoverageGaps(bands, 0, 100)
	require.Len(t, gaps, 2)
}

func TestCoverageGapsFullCoverage(t *testing.T) {
	gaps := CoverageGaps(sampleBands(), 0, 100)
	assert.Empty(t, gaps)
}
