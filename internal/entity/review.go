package entity

import "time"

// SurahCount is the number of chapters in the Quran; surah ids run 1..114.
const SurahCount = 114

// ValidSurahID reports whether id identifies a surah.
func ValidSurahID(id int32) bool {
	return id >= 1 && id <= SurahCount
}

// Grade is the learner's self-reported recall quality for one review.
type Grade int32

const (
	GradeForgot    Grade = 0
	GradeDifficult Grade = 1
	GradeMedium    Grade = 2
	GradeEasy      Grade = 3
	GradePerfect   Grade = 4
)

// Valid reports whether g is inside the closed 0..4 enum.
func (g Grade) Valid() bool {
	return g >= GradeForgot && g <= GradePerfect
}

// Success reports whether the grade counts as a successful recall.
// Forgot and difficult both reset the repetition streak.
func (g Grade) Success() bool {
	return g >= GradeMedium
}

func (g Grade) String() string {
	switch g {
	case GradeForgot:
		return "forgot"
	case GradeDifficult:
		return "difficult"
	case GradeMedium:
		return "medium"
	case GradeEasy:
		return "easy"
	case GradePerfect:
		return "perfect"
	default:
		return "unknown"
	}
}

// ReviewStatus is the memorization stage of a review item. It is derived
// from (repetitions, intervalDays) and never set independently.
type ReviewStatus string

const (
	StatusNew       ReviewStatus = "new"
	StatusLearning  ReviewStatus = "learning"
	StatusReviewing ReviewStatus = "reviewing"
	StatusMastered  ReviewStatus = "mastered"
)

// Seed values for a freshly created or reset review item.
const (
	InitialIntervalDays      int32   = 1
	InitialEaseFactor        float64 = 2.5
	InitialAverageDifficulty float64 = 2.0
)

// ReviewItem tracks the spaced-repetition state of one memorized surah for
// one user.
type ReviewItem struct {
	ID                int64
	UserID            int64
	SurahID           int32
	Repetitions       int32
	IntervalDays      int32
	EaseFactor        float64
	LastReviewAt      time.Time
	NextReviewAt      time.Time
	AverageDifficulty float64
	TotalReviews      int32
	PerfectCount      int32
	ForgotCount       int32
	Status            ReviewStatus
	// Version guards concurrent submissions for the same item: updates are
	// conditional on the version read, and the loser gets ErrReviewConflict.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Normalize ensures defaults & constraints before persistence.
func (ri *ReviewItem) Normalize(now time.Time) {
	if ri.CreatedAt.IsZero() {
		ri.CreatedAt = now
	}
	ri.UpdatedAt = now
	if ri.IntervalDays < 1 {
		ri.IntervalDays = InitialIntervalDays
	}
	if ri.EaseFactor < 1.3 {
		ri.EaseFactor = InitialEaseFactor
	}
	if ri.Status == "" {
		ri.Status = StatusNew
	}
}

// ReviewHistoryEntry is one completed review. Entries are append-only and
// used for analytics, never mutated or deleted.
type ReviewHistoryEntry struct {
	ID             int64
	UserID         int64
	SurahID        int32
	Grade          Grade
	IntervalBefore int32
	IntervalAfter  int32
	ReviewedAt     time.Time
}

// ReviewStats aggregates a user's review items, with statuses re-derived
// from the current scheduler rules rather than read from storage.
type ReviewStats struct {
	Total             int32
	DueToday          int32
	New               int32
	Learning          int32
	Reviewing         int32
	Mastered          int32
	AverageDifficulty float64
	TotalReviewsDone  int32
}

// HistorySummary condenses a review history slice for presentation.
type HistorySummary struct {
	Total         int32
	AvgDifficulty float64
	AvgInterval   float64
	LastReview    time.Time
}

// SummarizeHistory aggregates entries into a HistorySummary. An empty slice
// yields the zero summary.
func SummarizeHistory(entries []ReviewHistoryEntry) HistorySummary {
	var summary HistorySummary
	if len(entries) == 0 {
		return summary
	}
	summary.Total = int32(len(entries))
	var gradeSum, intervalSum float64
	for _, entry := range entries {
		gradeSum += float64(entry.Grade)
		intervalSum += float64(entry.IntervalAfter)
		if entry.ReviewedAt.After(summary.LastReview) {
			summary.LastReview = entry.ReviewedAt
		}
	}
	summary.AvgDifficulty = gradeSum / float64(len(entries))
	summary.AvgInterval = intervalSum / float64(len(entries))
	return summary
}

// DailyStat accumulates per-day review activity for one user.
type DailyStat struct {
	UserID           int64
	Date             time.Time
	ReviewsCompleted int32
	PointsEarned     int32
}
