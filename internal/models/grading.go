package models

import (
	"fmt"
	"sort"
	"time"
)

// GradingSystem identifies a named grading scheme (e.g. 8-4-4 vs CBC).
// Exactly one system is flagged default at any time; swapping the default
// clears the previous flag in the same transaction.
type GradingSystem struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsDefault   bool      `db:"is_default" json:"is_default"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	Scales []GradeScale `json:"scales,omitempty"`
}

// GradeScale is one band of a grading system: an inclusive score range
// mapping to a grade, point value, remark and chart color.
type GradeScale struct {
	ID              string    `db:"id" json:"id"`
	GradingSystemID string    `db:"grading_system_id" json:"grading_system_id"`
	Grade           string    `db:"grade" json:"grade"`
	MinScore        float64   `db:"min_score" json:"min_score"`
	MaxScore        float64   `db:"max_score" json:"max_score"`
	GradePoint      float64   `db:"grade_point" json:"grade_point"`
	Remark          string    `db:"remark" json:"remark"`
	Color           string    `db:"color" json:"color"`
	DisplayOrder    int       `db:"display_order" json:"display_order"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Contains reports whether the score falls inside the band (inclusive).
func (b GradeScale) Contains(score float64) bool {
	return score >= b.MinScore && score <= b.MaxScore
}

// RemarkNotGraded is the sentinel remark for scores no band covers.
const RemarkNotGraded = "Not graded"

// ResolvedGrade is the outcome of resolving a score against a scale set.
// Grade and Points are nil when no band matched.
type ResolvedGrade struct {
	Grade  *string  `json:"grade"`
	Points *float64 `json:"points"`
	Remark string   `json:"remark"`
}

// Resolved reports whether a band matched.
func (r ResolvedGrade) Resolved() bool {
	return r.Grade != nil
}

// ScaleSet is the loaded, ordered band configuration of one grading
// system. It is read-only for the duration of a batch computation.
type ScaleSet struct {
	SystemID string
	bands    []GradeScale
}

// NewScaleSet orders the bands by display order then min score and wraps
// them for resolution.
func NewScaleSet(systemID string, bands []GradeScale) ScaleSet {
	ordered := make([]GradeScale, len(bands))
	copy(ordered, bands)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].DisplayOrder != ordered[j].DisplayOrder {
			return ordered[i].DisplayOrder < ordered[j].DisplayOrder
		}
		return ordered[i].MinScore < ordered[j].MinScore
	})
	return ScaleSet{SystemID: systemID, bands: ordered}
}

// Empty reports whether the set holds no bands.
func (s ScaleSet) Empty() bool {
	return len(s.bands) == 0
}

// Bands returns the ordered bands.
func (s ScaleSet) Bands() []GradeScale {
	return s.bands
}

// Resolve returns the first band containing the score, or the ungraded
// sentinel when no band matches.
func (s ScaleSet) Resolve(score float64) ResolvedGrade {
	for i := range s.bands {
		if s.bands[i].Contains(score) {
			grade := s.bands[i].Grade
			points := s.bands[i].GradePoint
			return ResolvedGrade{Grade: &grade, Points: &points, Remark: s.bands[i].Remark}
		}
	}
	return ResolvedGrade{Remark: RemarkNotGraded}
}

// NearestBand returns the band whose grade point is closest to the given
// mean points, ties broken toward the higher band. Nil for an empty set.
func (s ScaleSet) NearestBand(points float64) *GradeScale {
	var best *GradeScale
	for i := range s.bands {
		band := &s.bands[i]
		if best == nil {
			best = band
			continue
		}
		dBand := abs(band.GradePoint - points)
		dBest := abs(best.GradePoint - points)
		if dBand < dBest || (dBand == dBest && band.GradePoint > best.GradePoint) {
			best = band
		}
	}
	if best == nil {
		return nil
	}
	found := *best
	return &found
}

// ValidateBands rejects overlapping or inverted bands within one system.
func ValidateBands(bands []GradeScale) error {
	ordered := make([]GradeScale, len(bands))
	copy(ordered, bands)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].MinScore < ordered[j].MinScore })
	for i := range ordered {
		if ordered[i].MinScore > ordered[i].MaxScore {
			return fmt.Errorf("band %s: min %.2f above max %.2f", ordered[i].Grade, ordered[i].MinScore, ordered[i].MaxScore)
		}
		if i == 0 {
			continue
		}
		if ordered[i].MinScore <= ordered[i-1].MaxScore {
			return fmt.Errorf("band %s overlaps band %s", ordered[i].Grade, ordered[i-1].Grade)
		}
	}
	return nil
}

// CoverageGaps returns uncovered sub-ranges of [min, max]. A gapped scale
// is accepted but logged so staff can fix the configuration.
func CoverageGaps(bands []GradeScale, min, max float64) []string {
	ordered := make([]GradeScale, len(bands))
	copy(ordered, bands)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].MinScore < ordered[j].MinScore })

	gaps := make([]string, 0)
	cursor := min
	for i := range ordered {
		if ordered[i].MinScore > cursor {
			gaps = append(gaps, fmt.Sprintf("[%.2f, %.2f)", cursor, ordered[i].MinScore))
		}
		if ordered[i].MaxScore >= cursor {
			cursor = ordered[i].MaxScore
		}
	}
	if cursor < max {
		gaps = append(gaps, fmt.Sprintf("(%.2f, %.2f]", cursor, max))
	}
	return gaps
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
