package repository

import (
	"context"
	"time"

	"github.com/eslsoft/hifznet/internal/entity"
)

// ListReviewQuery holds parameters for listing review items.
type ListReviewQuery struct {
	Pagination
	FilterOrder

	UserID int64
}

// ReviewItemRepository abstracts persistence for review items to keep
// usecases storage agnostic.
//
// Update and Submit are conditional on the Version the caller read; when the
// stored version no longer matches, implementations return
// entity.ErrReviewConflict and leave the item untouched.
type ReviewItemRepository interface {
	Create(ctx context.Context, item *entity.ReviewItem) (*entity.ReviewItem, error)
	FindBySurah(ctx context.Context, userID int64, surahID int32) (*entity.ReviewItem, error)
	Update(ctx context.Context, item *entity.ReviewItem) (*entity.ReviewItem, error)
	// Submit persists the updated item and appends the matching history
	// entry in one transaction, so the pair can never diverge.
	Submit(ctx context.Context, item *entity.ReviewItem, entry *entity.ReviewHistoryEntry) (*entity.ReviewItem, error)
	List(ctx context.Context, query *ListReviewQuery) ([]entity.ReviewItem, int64, error)
	ListByUser(ctx context.Context, userID int64) ([]entity.ReviewItem, error)
	ListDue(ctx context.Context, userID int64, asOf time.Time) ([]entity.ReviewItem, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

// ReviewHistoryRepository stores the append-only review log.
type ReviewHistoryRepository interface {
	Append(ctx context.Context, entry *entity.ReviewHistoryEntry) (*entity.ReviewHistoryEntry, error)
	ListBySurah(ctx context.Context, userID int64, surahID int32, limit int32) ([]entity.ReviewHistoryEntry, error)
	ListByUser(ctx context.Context, userID int64) ([]entity.ReviewHistoryEntry, error)
}

// DailyStatRepository accumulates per-day review counters.
type DailyStatRepository interface {
	AddReviewResult(ctx context.Context, userID int64, day time.Time, points int32) error
	ListRange(ctx context.Context, userID int64, from, to time.Time) ([]entity.DailyStat, error)
}
