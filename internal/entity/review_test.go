package entity

import (
	"testing"
	"time"
)

func TestGradeValidAndSuccess(t *testing.T) {
	for g := GradeForgot; g <= GradePerfect; g++ {
		if !g.Valid() {
			t.Errorf("grade %d should be valid", g)
		}
	}
	if Grade(-1).Valid() || Grade(5).Valid() {
		t.Error("out-of-range grades must be invalid")
	}
	if GradeForgot.Success() || GradeDifficult.Success() {
		t.Error("forgot/difficult must not count as success")
	}
	if !GradeMedium.Success() || !GradePerfect.Success() {
		t.Error("medium and above must count as success")
	}
}

func TestValidSurahID(t *testing.T) {
	cases := map[int32]bool{0: false, 1: true, 114: true, 115: false, -3: false}
	for id, want := range cases {
		if got := ValidSurahID(id); got != want {
			t.Errorf("ValidSurahID(%d) = %v, want %v", id, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	item := &ReviewItem{IntervalDays: 0, EaseFactor: 0.5}
	item.Normalize(now)

	if item.IntervalDays != InitialIntervalDays {
		t.Errorf("interval = %d", item.IntervalDays)
	}
	if item.EaseFactor != InitialEaseFactor {
		t.Errorf("ease = %v", item.EaseFactor)
	}
	if item.Status != StatusNew {
		t.Errorf("status = %s", item.Status)
	}
	if !item.CreatedAt.Equal(now) || !item.UpdatedAt.Equal(now) {
		t.Errorf("timestamps not seeded: %v / %v", item.CreatedAt, item.UpdatedAt)
	}

	later := now.Add(time.Hour)
	item.Normalize(later)
	if !item.CreatedAt.Equal(now) {
		t.Error("CreatedAt must not change on later normalizations")
	}
	if !item.UpdatedAt.Equal(later) {
		t.Error("UpdatedAt must follow the latest normalization")
	}
}

func TestSummarizeHistory(t *testing.T) {
	if s := SummarizeHistory(nil); s.Total != 0 {
		t.Errorf("empty summary total = %d", s.Total)
	}

	t1 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 6, 5, 9, 0, 0, 0, time.UTC)
	entries := []ReviewHistoryEntry{
		{Grade: GradePerfect, IntervalAfter: 3, ReviewedAt: t2},
		{Grade: GradeMedium, IntervalAfter: 1, ReviewedAt: t1},
	}
	s := SummarizeHistory(entries)
	if s.Total != 2 {
		t.Errorf("total = %d", s.Total)
	}
	if s.AvgDifficulty != 3.0 {
		t.Errorf("avg difficulty = %v, want 3.0", s.AvgDifficulty)
	}
	if s.AvgInterval != 2.0 {
		t.Errorf("avg interval = %v, want 2.0", s.AvgInterval)
	}
	if !s.LastReview.Equal(t2) {
		t.Errorf("last review = %v, want %v", s.LastReview, t2)
	}
}
