// Package scheduler implements the SM-2-family spaced-repetition rules for
// surah reviews. Every function is pure: no I/O, no wall clock, same inputs
// always produce the same outputs.
package scheduler

import (
	"math"
	"time"

	"github.com/eslsoft/hifznet/internal/entity"
)

// minEaseFactor is the SM-2 floor; ease never drops below it.
const minEaseFactor = 1.3

// Growth multipliers applied from the third successful review onwards.
var easeByGrade = map[entity.Grade]float64{
	entity.GradeMedium:  1.5,
	entity.GradeEasy:    2.0,
	entity.GradePerfect: 2.5,
}

// NextInterval computes the next review interval in days.
//
// Forgetting resets to 1 day unconditionally. A difficult recall halves the
// interval. Successful recalls walk a fixed ramp for the first two reviews
// (1 day, then 2 or 3), after which the interval grows by a grade-dependent
// multiplier with no upper bound.
func NextInterval(currentInterval int32, grade entity.Grade, repetitions int32) int32 {
	if grade == entity.GradeForgot {
		return 1
	}
	if grade == entity.GradeDifficult {
		halved := int32(math.Floor(float64(currentInterval) * 0.5))
		if halved < 1 {
			return 1
		}
		return halved
	}

	switch {
	case repetitions == 0:
		// First successful review always lands at 1 day, whatever the grade.
		return 1
	case repetitions == 1:
		if grade == entity.GradePerfect {
			return 3
		}
		return 2
	default:
		ease, ok := easeByGrade[grade]
		if !ok {
			ease = 1.5
		}
		return int32(math.Round(float64(currentInterval) * ease))
	}
}

// NextReviewAt returns from + intervalDays with the time component pinned to
// 09:00 local in from's location.
func NextReviewAt(intervalDays int32, from time.Time) time.Time {
	next := from.AddDate(0, 0, int(intervalDays))
	return time.Date(next.Year(), next.Month(), next.Day(), 9, 0, 0, 0, next.Location())
}

// NextEaseFactor applies the standard SM-2 ease update, floored at 1.3.
// Grades below medium penalise the ease by a flat 0.2.
func NextEaseFactor(currentEase float64, grade entity.Grade) float64 {
	var next float64
	if grade >= entity.GradeMedium {
		q := float64(grade)
		next = currentEase + (0.1 - (3-q)*(0.08+(3-q)*0.02))
	} else {
		next = currentEase - 0.2
	}
	if next < minEaseFactor {
		return minEaseFactor
	}
	return next
}

// StatusFor derives the memorization stage from the repetition streak and
// current interval. The checks run in order: an item with ten repetitions
// but a short interval is still reviewing, not mastered.
func StatusFor(repetitions, intervalDays int32) entity.ReviewStatus {
	switch {
	case repetitions == 0:
		return entity.StatusNew
	case repetitions < 3:
		return entity.StatusLearning
	case repetitions >= 10 && intervalDays >= 30:
		return entity.StatusMastered
	default:
		return entity.StatusReviewing
	}
}

// RetentionScore estimates recall strength as a 0..100 percentage.
// Repetitions contribute up to 70 points, average grade up to 30. This is a
// presentation metric only and never feeds back into scheduling.
func RetentionScore(repetitions int32, averageDifficulty float64) int32 {
	if repetitions == 0 {
		return 0
	}
	repScore := float64(repetitions * 10)
	if repScore > 70 {
		repScore = 70
	}
	score := int32(math.Round(repScore + (averageDifficulty/4)*30))
	if score > 100 {
		return 100
	}
	return score
}

// DueOn reports whether an item with the given next review timestamp is due
// on asOf's calendar date. Comparison ignores time-of-day, so an item due at
// 09:00 is already due at 00:01 the same day.
func DueOn(nextReviewAt, asOf time.Time) bool {
	if nextReviewAt.IsZero() {
		return false
	}
	next := nextReviewAt.In(asOf.Location())
	ny, nm, nd := next.Date()
	ay, am, ad := asOf.Date()
	nextDay := time.Date(ny, nm, nd, 0, 0, 0, 0, asOf.Location())
	asOfDay := time.Date(ay, am, ad, 0, 0, 0, 0, asOf.Location())
	return !nextDay.After(asOfDay)
}
