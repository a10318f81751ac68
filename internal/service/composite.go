package service

import (
	"math"

	"github.com/elimuhub/elimu-api/internal/models"
)

// roundingMode keeps stored marks at two decimal places.
var roundingMode = func(v float64) float64 { return math.RoundToEven(v*100) / 100 }

const defaultPaperOutOf = 100.0

// compositeScore is the outcome of folding one student's paper marks
// into a single subject score on the configured scale.
type compositeScore struct {
	Score      float64
	ScoreOutOf float64
	Percent    float64
}

// computeComposite folds the submitted paper marks into one score.
//
// Each active paper is first rescaled to a 0-100 range using its own
// maximum. A blank mark on an active paper counts as zero, so the mean
// always divides by the number of active papers, and the mean is then
// projected onto the configured subject maximum. With no active papers
// the teacher-entered score is taken verbatim. Every mark is clamped to
// its scale.
//
// The second return is false when the student submitted nothing usable
// (every active paper blank), in which case no result row is written.
func computeComposite(scores models.PaperScores, cfg models.PaperConfig) (compositeScore, bool) {
	outOfScore := cfg.OutOfScore
	if outOfScore <= 0 {
		outOfScore = defaultPaperOutOf
	}

	if cfg.ActivePapers() == 0 {
		if scores.Score == nil {
			return compositeScore{}, false
		}
		score := clamp(roundingMode(*scores.Score), 0, outOfScore)
		return compositeScore{
			Score:      score,
			ScoreOutOf: outOfScore,
			Percent:    roundingMode(score / outOfScore * 100),
		}, true
	}

	type paper struct {
		active bool
		value  *float64
		outOf  float64
	}
	papers := []paper{
		{cfg.HasP1, scores.P1, cfg.OutOfP1},
		{cfg.HasP2, scores.P2, cfg.OutOfP2},
		{cfg.HasP3, scores.P3, cfg.OutOfP3},
	}

	var sum float64
	var entered int
	for _, p := range papers {
		if !p.active || p.value == nil {
			continue
		}
		outOf := p.outOf
		if outOf <= 0 {
			outOf = defaultPaperOutOf
		}
		raw := clamp(*p.value, 0, outOf)
		sum += raw / outOf * 100
		entered++
	}
	if entered == 0 {
		return compositeScore{}, false
	}

	percent := sum / float64(cfg.ActivePapers())
	score := clamp(roundingMode(percent/100*outOfScore), 0, outOfScore)
	return compositeScore{
		Score:      score,
		ScoreOutOf: outOfScore,
		Percent:    roundingMode(percent),
	}, true
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
