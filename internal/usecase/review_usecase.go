package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/hifznet/internal/entity"
	"github.com/eslsoft/hifznet/internal/repository"
	"github.com/eslsoft/hifznet/internal/scheduler"
)

// SubmitResult carries everything a caller needs to present feedback after
// one review ("next review in N days", points gained, retention estimate).
type SubmitResult struct {
	Item         *entity.ReviewItem
	Entry        *entity.ReviewHistoryEntry
	NextReviewAt time.Time
	IntervalDays int32
	Points       int32
	Retention    int32
}

// ReviewUsecase encapsulates business logic for surah review scheduling.
type ReviewUsecase interface {
	CreateReviewItem(ctx context.Context, userID int64, surahID int32) (*entity.ReviewItem, error)
	SubmitReview(ctx context.Context, userID int64, surahID int32, grade entity.Grade) (*SubmitResult, error)
	ListDue(ctx context.Context, userID int64, asOf time.Time) ([]entity.ReviewItem, error)
	ListReviews(ctx context.Context, query *repository.ListReviewQuery) ([]entity.ReviewItem, int64, error)
	GetHistory(ctx context.Context, userID int64, surahID int32, limit int32) ([]entity.ReviewHistoryEntry, error)
	Stats(ctx context.Context, userID int64) (*entity.ReviewStats, error)
	DailyStats(ctx context.Context, userID int64, from, to time.Time) ([]entity.DailyStat, error)
	ResetReviewItem(ctx context.Context, userID int64, surahID int32) (*entity.ReviewItem, error)
	ResetAccount(ctx context.Context, userID int64) error
}

// NewReviewUsecase wires the repositories with default behaviour.
func NewReviewUsecase(
	items repository.ReviewItemRepository,
	history repository.ReviewHistoryRepository,
	daily repository.DailyStatRepository,
	logger *logrus.Logger,
) ReviewUsecase {
	return &reviewUsecase{
		items:   items,
		history: history,
		daily:   daily,
		logger:  logger,
		clock:   time.Now,
	}
}

type reviewUsecase struct {
	items   repository.ReviewItemRepository
	history repository.ReviewHistoryRepository
	daily   repository.DailyStatRepository
	logger  *logrus.Logger
	clock   func() time.Time
}

func (u *reviewUsecase) CreateReviewItem(ctx context.Context, userID int64, surahID int32) (*entity.ReviewItem, error) {
	if err := validateIdentity(userID, surahID); err != nil {
		return nil, err
	}

	existing, err := u.items.FindBySurah(ctx, userID, surahID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := u.clock()
	item := &entity.ReviewItem{
		UserID:            userID,
		SurahID:           surahID,
		Repetitions:       0,
		IntervalDays:      entity.InitialIntervalDays,
		EaseFactor:        entity.InitialEaseFactor,
		LastReviewAt:      now,
		NextReviewAt:      scheduler.NextReviewAt(entity.InitialIntervalDays, now),
		AverageDifficulty: entity.InitialAverageDifficulty,
		Status:            entity.StatusNew,
	}
	item.Normalize(now)

	created, err := u.items.Create(ctx, item)
	if errors.Is(err, entity.ErrDuplicateReview) {
		// Lost a creation race; the winner's item is the canonical one.
		return u.items.FindBySurah(ctx, userID, surahID)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (u *reviewUsecase) SubmitReview(ctx context.Context, userID int64, surahID int32, grade entity.Grade) (*SubmitResult, error) {
	if err := validateIdentity(userID, surahID); err != nil {
		return nil, err
	}
	if !grade.Valid() {
		return nil, entity.ErrInvalidGrade
	}

	item, err := u.items.FindBySurah(ctx, userID, surahID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, entity.ErrReviewNotFound
	}

	now := u.clock()
	newInterval := scheduler.NextInterval(item.IntervalDays, grade, item.Repetitions)
	nextReviewAt := scheduler.NextReviewAt(newInterval, now)
	newEase := round2(scheduler.NextEaseFactor(item.EaseFactor, grade))

	newRepetitions := int32(0)
	if grade.Success() {
		newRepetitions = item.Repetitions + 1
	}
	newTotal := item.TotalReviews + 1
	newAverage := round2((item.AverageDifficulty*float64(item.TotalReviews) + float64(grade)) / float64(newTotal))

	updated := *item
	updated.Repetitions = newRepetitions
	updated.IntervalDays = newInterval
	updated.EaseFactor = newEase
	updated.LastReviewAt = now
	updated.NextReviewAt = nextReviewAt
	updated.AverageDifficulty = newAverage
	updated.TotalReviews = newTotal
	if grade == entity.GradePerfect {
		updated.PerfectCount++
	}
	if grade == entity.GradeForgot {
		updated.ForgotCount++
	}
	updated.Status = scheduler.StatusFor(newRepetitions, newInterval)
	updated.Normalize(now)

	entry := &entity.ReviewHistoryEntry{
		UserID:         userID,
		SurahID:        surahID,
		Grade:          grade,
		IntervalBefore: item.IntervalDays,
		IntervalAfter:  newInterval,
		ReviewedAt:     now,
	}

	persisted, err := u.items.Submit(ctx, &updated, entry)
	if err != nil {
		return nil, err
	}

	points := PointsFor(grade)
	if err := u.daily.AddReviewResult(ctx, userID, now, points); err != nil {
		// Daily stats are best-effort analytics; the review itself stands.
		u.logger.WithError(err).WithField("user_id", userID).Warn("record daily review stat failed")
	}

	return &SubmitResult{
		Item:         persisted,
		Entry:        entry,
		NextReviewAt: persisted.NextReviewAt,
		IntervalDays: persisted.IntervalDays,
		Points:       points,
		Retention:    scheduler.RetentionScore(persisted.Repetitions, persisted.AverageDifficulty),
	}, nil
}

func (u *reviewUsecase) ListDue(ctx context.Context, userID int64, asOf time.Time) ([]entity.ReviewItem, error) {
	if userID <= 0 {
		return nil, entity.ErrInvalidUserID
	}
	if asOf.IsZero() {
		asOf = u.clock()
	}
	items, err := u.items.ListDue(ctx, userID, asOf)
	if err != nil {
		return nil, err
	}
	return lo.Filter(items, func(item entity.ReviewItem, _ int) bool {
		return scheduler.DueOn(item.NextReviewAt, asOf)
	}), nil
}

func (u *reviewUsecase) ListReviews(ctx context.Context, query *repository.ListReviewQuery) ([]entity.ReviewItem, int64, error) {
	if query == nil || query.UserID <= 0 {
		return nil, 0, entity.ErrInvalidUserID
	}
	return u.items.List(ctx, query)
}

func (u *reviewUsecase) GetHistory(ctx context.Context, userID int64, surahID int32, limit int32) ([]entity.ReviewHistoryEntry, error) {
	if err := validateIdentity(userID, surahID); err != nil {
		return nil, err
	}
	return u.history.ListBySurah(ctx, userID, surahID, limit)
}

func (u *reviewUsecase) Stats(ctx context.Context, userID int64) (*entity.ReviewStats, error) {
	if userID <= 0 {
		return nil, entity.ErrInvalidUserID
	}
	items, err := u.items.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := u.clock()
	stats := &entity.ReviewStats{Total: int32(len(items))}
	if len(items) == 0 {
		return stats, nil
	}

	// Statuses are re-derived from the scheduler rules so stale stored
	// statuses can never skew the aggregates.
	byStatus := lo.CountValuesBy(items, func(item entity.ReviewItem) entity.ReviewStatus {
		return scheduler.StatusFor(item.Repetitions, item.IntervalDays)
	})
	for _, item := range items {
		if scheduler.DueOn(item.NextReviewAt, now) {
			stats.DueToday++
		}
	}
	stats.New = int32(byStatus[entity.StatusNew])
	stats.Learning = int32(byStatus[entity.StatusLearning])
	stats.Reviewing = int32(byStatus[entity.StatusReviewing])
	stats.Mastered = int32(byStatus[entity.StatusMastered])
	stats.AverageDifficulty = lo.SumBy(items, func(item entity.ReviewItem) float64 {
		return item.AverageDifficulty
	}) / float64(len(items))
	stats.TotalReviewsDone = lo.SumBy(items, func(item entity.ReviewItem) int32 {
		return item.TotalReviews
	})
	return stats, nil
}

func (u *reviewUsecase) DailyStats(ctx context.Context, userID int64, from, to time.Time) ([]entity.DailyStat, error) {
	if userID <= 0 {
		return nil, entity.ErrInvalidUserID
	}
	if to.Before(from) {
		from, to = to, from
	}
	return u.daily.ListRange(ctx, userID, from, to)
}

func (u *reviewUsecase) ResetReviewItem(ctx context.Context, userID int64, surahID int32) (*entity.ReviewItem, error) {
	if err := validateIdentity(userID, surahID); err != nil {
		return nil, err
	}
	item, err := u.items.FindBySurah(ctx, userID, surahID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, entity.ErrReviewNotFound
	}

	now := u.clock()
	reset := *item
	reset.Repetitions = 0
	reset.IntervalDays = entity.InitialIntervalDays
	reset.EaseFactor = entity.InitialEaseFactor
	reset.NextReviewAt = scheduler.NextReviewAt(entity.InitialIntervalDays, now)
	reset.Status = entity.StatusNew
	reset.Normalize(now)

	return u.items.Update(ctx, &reset)
}

func (u *reviewUsecase) ResetAccount(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return entity.ErrInvalidUserID
	}
	deleted, err := u.items.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	u.logger.WithFields(logrus.Fields{"user_id": userID, "deleted": deleted}).Info("account review state reset")
	return nil
}

func validateIdentity(userID int64, surahID int32) error {
	if userID <= 0 {
		return entity.ErrInvalidUserID
	}
	if !entity.ValidSurahID(surahID) {
		return entity.ErrInvalidSurahID
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
