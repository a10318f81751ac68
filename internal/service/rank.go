package service

import (
	"sort"

	"github.com/elimuhub/elimu-api/internal/models"
)

// buildMeritList aggregates result rows per student and orders them into
// a ranked merit list. Ties on mean marks are broken by mean points,
// then by admission number so the ordering is total and reproducible.
// Students with no graded subjects are listed last with a nil rank.
func buildMeritList(rows []models.ResultRow, roster []models.ResultRow, className string, set models.ScaleSet) []models.MeritRow {
	byStudent := make(map[string]*models.MeritRow)
	order := make([]string, 0, len(roster))

	add := func(studentID, admissionNo, name, stream string) *models.MeritRow {
		if row, ok := byStudent[studentID]; ok {
			return row
		}
		row := &models.MeritRow{
			StudentID:       studentID,
			AdmissionNumber: admissionNo,
			Name:            name,
			Class:           className,
			Stream:          stream,
			Subjects:        make([]models.SubjectScore, 0, 8),
		}
		byStudent[studentID] = row
		order = append(order, studentID)
		return row
	}

	for _, r := range roster {
		add(r.StudentID, r.AdmissionNo, r.StudentName, r.StreamName)
	}

	pointsSum := make(map[string]float64)
	for _, r := range rows {
		row := add(r.StudentID, r.AdmissionNo, r.StudentName, r.StreamName)
		marks := r.Score
		row.Subjects = append(row.Subjects, models.SubjectScore{SubjectID: r.SubjectID, FullMarks: &marks})
		row.TotalMarks += marks
		row.GradedSubjects++
		if r.Points != nil {
			pointsSum[r.StudentID] += *r.Points
		}
	}

	list := make([]models.MeritRow, 0, len(order))
	for _, id := range order {
		row := byStudent[id]
		if row.GradedSubjects > 0 {
			n := float64(row.GradedSubjects)
			row.TotalMarks = roundingMode(row.TotalMarks)
			row.AvgMarks = roundingMode(row.TotalMarks / n)
			row.AvgPoints = roundingMode(pointsSum[id] / n)
			if band := set.NearestBand(row.AvgPoints); band != nil {
				grade := band.Grade
				row.AvgGrade = &grade
			}
		}
		list = append(list, *row)
	}

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if (a.GradedSubjects > 0) != (b.GradedSubjects > 0) {
			return a.GradedSubjects > 0
		}
		if a.AvgMarks != b.AvgMarks {
			return a.AvgMarks > b.AvgMarks
		}
		if a.AvgPoints != b.AvgPoints {
			return a.AvgPoints > b.AvgPoints
		}
		return a.AdmissionNumber < b.AdmissionNumber
	})

	rank := 0
	for i := range list {
		if list[i].GradedSubjects == 0 {
			continue
		}
		rank++
		r := rank
		list[i].ClassRank = &r
	}
	return list
}
