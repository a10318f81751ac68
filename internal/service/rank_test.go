package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimuhub/elimu-api/internal/models"
)

func meritBands() models.ScaleSet {
	return models.NewScaleSet("sys-1", []models.GradeScale{
		{Grade: "A", MinScore: 80, MaxScore: 100, GradePoint: 12, Remark: "Excellent", DisplayOrder: 1},
		{Grade: "B", MinScore: 60, MaxScore: 79.99, GradePoint: 9, Remark: "Good", DisplayOrder: 2},
		{Grade: "C", MinScore: 0, MaxScore: 59.99, GradePoint: 6, Remark: "Fair", DisplayOrder: 3},
	})
}

func row(studentID, admission, name, stream, subjectID string, score float64, grade string, points float64) models.ResultRow {
	return models.ResultRow{
		StudentID:   studentID,
		AdmissionNo: admission,
		StudentName: name,
		StreamName:  stream,
		SubjectID:   subjectID,
		SubjectName: subjectID,
		Score:       score,
		ScoreOutOf:  100,
		Grade:       &grade,
		Points:      &points,
	}
}

func TestBuildMeritListOrdersByMeanMarks(t *testing.T) {
	rows := []models.ResultRow{
		row("s1", "1001", "Amina Yusuf", "East", "math", 90, "A", 12),
		row("s1", "1001", "Amina Yusuf", "East", "eng", 70, "B", 9),
		row("s2", "1002", "Brian Otieno", "West", "math", 60, "B", 9),
		row("s2", "1002", "Brian Otieno", "West", "eng", 50, "C", 6),
	}

	list := buildMeritList(rows, nil, "Form 2", meritBands())
	require.Len(t, list, 2)

	assert.Equal(t, "1001", list[0].AdmissionNumber)
	require.NotNil(t, list[0].ClassRank)
	assert.Equal(t, 1, *list[0].ClassRank)
	assert.Equal(t, 80.0, list[0].AvgMarks)
	assert.Equal(t, 10.5, list[0].AvgPoints)
	require.NotNil(t, list[0].AvgGrade)
	assert.Equal(t, "A", *list[0].AvgGrade)

	require.NotNil(t, list[1].ClassRank)
	assert.Equal(t, 2, *list[1].ClassRank)
}

func TestBuildMeritListTieBrokenByPointsThenAdmission(t *testing.T) {
	// Same mean marks; s2 has higher mean points.
	rows := []models.ResultRow{
		row("s1", "1001", "Amina Yusuf", "East", "math", 70, "B", 9),
		row("s2", "1002", "Brian Otieno", "West", "math", 70, "B", 10),
		row("s3", "1000", "Cynthia Wanjiru", "East", "math", 70, "B", 9),
	}

	list := buildMeritList(rows, nil, "Form 2", meritBands())
	require.Len(t, list, 3)

	assert.Equal(t, "1002", list[0].AdmissionNumber)
	// Remaining tie falls back to admission number order.
	assert.Equal(t, "1000", list[1].AdmissionNumber)
	assert.Equal(t, "1001", list[2].AdmissionNumber)
	assert.Equal(t, 1, *list[0].ClassRank)
	assert.Equal(t, 2, *list[1].ClassRank)
	assert.Equal(t, 3, *list[2].ClassRank)
}

func TestBuildMeritListStudentsWithoutResultsAreUnranked(t *testing.T) {
	rows := []models.ResultRow{
		row("s1", "1001", "Amina Yusuf", "East", "math", 70, "B", 9),
	}
	roster := []models.ResultRow{
		{StudentID: "s1", AdmissionNo: "1001", StudentName: "Amina Yusuf", StreamName: "East"},
		{StudentID: "s2", AdmissionNo: "1002", StudentName: "Brian Otieno", StreamName: "West"},
	}

	list := buildMeritList(rows, roster, "Form 2", meritBands())
	require.Len(t, list, 2)

	assert.Equal(t, "1001", list[0].AdmissionNumber)
	require.NotNil(t, list[0].ClassRank)

	assert.Equal(t, "1002", list[1].AdmissionNumber)
	assert.Nil(t, list[1].ClassRank)
	assert.Nil(t, list[1].AvgGrade)
	assert.Zero(t, list[1].TotalMarks)
}

func TestBuildMeritListEmptyScaleSetLeavesGradeNil(t *testing.T) {
	rows := []models.ResultRow{
		{StudentID: "s1", AdmissionNo: "1001", StudentName: "Amina Yusuf", StreamName: "East", SubjectID: "math", Score: 70, ScoreOutOf: 100},
	}

	list := buildMeritList(rows, nil, "Form 2", models.ScaleSet{})
	require.Len(t, list, 1)
	assert.Nil(t, list[0].AvgGrade)
	assert.Equal(t, 70.0, list[0].AvgMarks)
	assert.Zero(t, list[0].AvgPoints)
}
