package scheduler

import (
	"testing"
	"time"

	"github.com/eslsoft/hifznet/internal/entity"
)

func TestNextInterval(t *testing.T) {
	tests := []struct {
		name        string
		interval    int32
		grade       entity.Grade
		repetitions int32
		want        int32
	}{
		{"forgot resets long interval", 45, entity.GradeForgot, 12, 1},
		{"forgot resets short interval", 1, entity.GradeForgot, 0, 1},
		{"difficult halves interval", 4, entity.GradeDifficult, 3, 2},
		{"difficult never drops below one day", 1, entity.GradeDifficult, 5, 1},
		{"first success is one day even when perfect", 1, entity.GradePerfect, 0, 1},
		{"first success is one day when medium", 1, entity.GradeMedium, 0, 1},
		{"second success perfect jumps to three days", 1, entity.GradePerfect, 1, 3},
		{"second success easy lands at two days", 1, entity.GradeEasy, 1, 2},
		{"second success medium lands at two days", 1, entity.GradeMedium, 1, 2},
		{"medium multiplies by 1.5 rounded", 7, entity.GradeMedium, 5, 11},
		{"easy doubles", 7, entity.GradeEasy, 5, 14},
		{"perfect multiplies by 2.5", 7, entity.GradePerfect, 5, 18},
		{"no upper bound on growth", 120, entity.GradePerfect, 20, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextInterval(tt.interval, tt.grade, tt.repetitions)
			if got != tt.want {
				t.Errorf("NextInterval(%d, %d, %d) = %d, want %d",
					tt.interval, tt.grade, tt.repetitions, got, tt.want)
			}
		})
	}
}

func TestNextIntervalAlwaysPositive(t *testing.T) {
	for interval := int32(1); interval <= 64; interval *= 2 {
		for grade := entity.GradeForgot; grade <= entity.GradePerfect; grade++ {
			for reps := int32(0); reps <= 12; reps++ {
				if got := NextInterval(interval, grade, reps); got < 1 {
					t.Fatalf("NextInterval(%d, %d, %d) = %d, want >= 1", interval, grade, reps, got)
				}
			}
		}
	}
}

func TestNextReviewAt(t *testing.T) {
	loc := time.FixedZone("UTC+1", 3600)
	from := time.Date(2024, 3, 10, 22, 45, 17, 0, loc)

	got := NextReviewAt(3, from)
	want := time.Date(2024, 3, 13, 9, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("NextReviewAt(3, %v) = %v, want %v", from, got, want)
	}
	if got.Hour() != 9 || got.Minute() != 0 || got.Second() != 0 {
		t.Errorf("expected time pinned to 09:00:00, got %v", got)
	}
}

func TestNextEaseFactor(t *testing.T) {
	tests := []struct {
		name  string
		ease  float64
		grade entity.Grade
		want  float64
	}{
		{"perfect grows ease", 2.5, entity.GradePerfect, 2.66},
		{"easy grows ease slightly", 2.5, entity.GradeEasy, 2.6},
		{"medium keeps ease", 2.5, entity.GradeMedium, 2.5},
		{"difficult flat penalty", 2.5, entity.GradeDifficult, 2.3},
		{"forgot flat penalty", 2.5, entity.GradeForgot, 2.3},
		{"floor on failure", 1.35, entity.GradeForgot, 1.3},
		{"floor on weak medium", 1.3, entity.GradeMedium, 1.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextEaseFactor(tt.ease, tt.grade)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("NextEaseFactor(%v, %d) = %v, want %v", tt.ease, tt.grade, got, tt.want)
			}
		})
	}
}

func TestEaseFactorNeverDropsBelowFloor(t *testing.T) {
	ease := 2.5
	grades := []entity.Grade{0, 0, 1, 0, 1, 1, 0, 0, 0, 2, 0, 0, 0, 0}
	for _, g := range grades {
		ease = NextEaseFactor(ease, g)
		if ease < 1.3 {
			t.Fatalf("ease dropped below floor: %v after grade %d", ease, g)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name        string
		repetitions int32
		interval    int32
		want        entity.ReviewStatus
	}{
		{"zero repetitions is new", 0, 1, entity.StatusNew},
		{"zero repetitions with long interval is still new", 0, 45, entity.StatusNew},
		{"one repetition is learning", 1, 1, entity.StatusLearning},
		{"two repetitions is learning", 2, 3, entity.StatusLearning},
		{"three repetitions is reviewing", 3, 4, entity.StatusReviewing},
		{"many repetitions short interval is reviewing", 12, 20, entity.StatusReviewing},
		{"long interval few repetitions is reviewing", 5, 90, entity.StatusReviewing},
		{"mastery needs both thresholds", 10, 30, entity.StatusMastered},
		{"well past mastery", 15, 120, entity.StatusMastered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.repetitions, tt.interval); got != tt.want {
				t.Errorf("StatusFor(%d, %d) = %q, want %q", tt.repetitions, tt.interval, got, tt.want)
			}
		})
	}
}

func TestRetentionScore(t *testing.T) {
	tests := []struct {
		name        string
		repetitions int32
		avg         float64
		want        int32
	}{
		{"no repetitions means zero", 0, 4, 0},
		{"single repetition", 1, 2, 25},
		{"repetition score caps at seventy", 20, 0, 70},
		{"perfect average adds thirty", 20, 4, 100},
		{"capped at one hundred", 50, 4, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RetentionScore(tt.repetitions, tt.avg); got != tt.want {
				t.Errorf("RetentionScore(%d, %v) = %d, want %d", tt.repetitions, tt.avg, got, tt.want)
			}
		})
	}
}

func TestDueOn(t *testing.T) {
	loc := time.UTC
	today9 := time.Date(2024, 5, 20, 9, 0, 0, 0, loc)

	tests := []struct {
		name string
		next time.Time
		asOf time.Time
		want bool
	}{
		{"due at 09:00 counts from midnight", today9, time.Date(2024, 5, 20, 0, 1, 0, 0, loc), true},
		{"due same day later hour", today9, time.Date(2024, 5, 20, 8, 0, 0, 0, loc), true},
		{"overdue yesterday", today9, time.Date(2024, 5, 21, 0, 0, 0, 0, loc), true},
		{"tomorrow is not due", time.Date(2024, 5, 21, 9, 0, 0, 0, loc), time.Date(2024, 5, 20, 23, 59, 0, 0, loc), false},
		{"zero timestamp never due", time.Time{}, today9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DueOn(tt.next, tt.asOf); got != tt.want {
				t.Errorf("DueOn(%v, %v) = %v, want %v", tt.next, tt.asOf, got, tt.want)
			}
		})
	}
}
