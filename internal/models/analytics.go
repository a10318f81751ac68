package models

import "time"

// ResultRow is the denormalised row the analytics queries return: one
// graded result joined with its student, stream and subject names.
type ResultRow struct {
	StudentID   string   `db:"student_id" json:"student_id"`
	AdmissionNo string   `db:"admission_no" json:"admission_no"`
	StudentName string   `db:"student_name" json:"student_name"`
	StreamName  string   `db:"stream_name" json:"stream_name"`
	SubjectID   string   `db:"subject_id" json:"subject_id"`
	SubjectName string   `db:"subject_name" json:"subject_name"`
	Score       float64  `db:"score" json:"score"`
	ScoreOutOf  float64  `db:"score_outof" json:"score_outof"`
	Grade       *string  `db:"grade" json:"grade,omitempty"`
	Points      *float64 `db:"points" json:"points,omitempty"`
}

// SubjectScore is a per-subject cell in the merit table.
type SubjectScore struct {
	SubjectID string   `json:"subject_id"`
	FullMarks *float64 `json:"full_marks"`
}

// MeritRow is one ranked student in the merit list. Rank is nil for a
// student with zero graded subjects; they are listed with placeholder
// marks but excluded from ranking.
type MeritRow struct {
	StudentID       string         `json:"student_id"`
	AdmissionNumber string         `json:"admission_number"`
	Name            string         `json:"name"`
	Class           string         `json:"class"`
	Stream          string         `json:"stream"`
	Subjects        []SubjectScore `json:"subjects"`
	TotalMarks      float64        `json:"total_marks"`
	AvgMarks        float64        `json:"avg_marks"`
	AvgPoints       float64        `json:"avg_points"`
	AvgGrade        *string        `json:"avg_grade"`
	ClassRank       *int           `json:"class_rank"`

	GradedSubjects int `json:"-"`
}

// OverviewStats summarises a whole class for one exam.
type OverviewStats struct {
	Students  int     `json:"students"`
	AvgMarks  float64 `json:"avgMarks"`
	AvgPoints float64 `json:"avgPoints"`
	AvgGrade  *string `json:"avgGrade"`
}

// GradeTally counts students holding one final grade.
type GradeTally struct {
	Count int    `json:"count"`
	Color string `json:"color"`
}

// GradeDistributionGeneral is the class-wide grade histogram.
type GradeDistributionGeneral struct {
	Grades map[string]GradeTally `json:"grades"`
}

// StreamSlice is one stream's slice of the comparison chart.
type StreamSlice struct {
	Grade string  `json:"grade"`
	Mean  float64 `json:"mean"`
	Color string  `json:"color"`
}

// GradeDistribution groups the general histogram with per-stream slices.
type GradeDistribution struct {
	General GradeDistributionGeneral `json:"general"`
	Streams map[string]StreamSlice   `json:"streams"`
}

// SubjectGradeCount is one grade's share within a single subject.
type SubjectGradeCount struct {
	Grade string `json:"grade"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// SubjectGeneral holds a subject's class-wide performance.
type SubjectGeneral struct {
	SubjectInfo Subject             `json:"subjectInfo"`
	Avg         float64             `json:"avg"`
	Grades      []SubjectGradeCount `json:"grades"`
}

// SubjectPerformance wraps SubjectGeneral keyed by subject name in the
// analysis payload.
type SubjectPerformance struct {
	General SubjectGeneral `json:"general"`
}

// ExamAnalysis is the full read-side projection for one exam and class.
type ExamAnalysis struct {
	ExamID             string                        `json:"exam_id"`
	ClassID            string                        `json:"class_id"`
	OverviewStats      OverviewStats                 `json:"overviewStats"`
	GradeDistribution  GradeDistribution             `json:"gradeDistribution"`
	SubjectPerformance map[string]SubjectPerformance `json:"subjectPerformance"`
	MeritList          []MeritRow                    `json:"meritList"`
}

// HasData reports whether any results exist for the scope.
func (a ExamAnalysis) HasData() bool {
	return a.OverviewStats.Students > 0
}

// SystemMetrics is a lightweight instrumentation snapshot exposed on the
// admin surface.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
