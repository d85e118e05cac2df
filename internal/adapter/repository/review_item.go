package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eslsoft/hifznet/internal/entity"
	"github.com/eslsoft/hifznet/internal/repository"
)

const reviewItemColumns = `id, user_id, surah_id, repetitions, interval_days, ease_factor,
	last_review_at, next_review_at, average_difficulty, total_reviews, perfect_count,
	forgot_count, status, version, created_at, updated_at`

type reviewItemRepository struct {
	pool *pgxpool.Pool
}

// NewReviewItemRepository constructs a pgx-backed repository.
func NewReviewItemRepository(pool *pgxpool.Pool) repository.ReviewItemRepository {
	return &reviewItemRepository{pool: pool}
}

func (r *reviewItemRepository) Create(ctx context.Context, item *entity.ReviewItem) (*entity.ReviewItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO review_items (user_id, surah_id, repetitions, interval_days, ease_factor,
			last_review_at, next_review_at, average_difficulty, total_reviews, perfect_count,
			forgot_count, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $14)
		RETURNING `+reviewItemColumns,
		item.UserID, item.SurahID, item.Repetitions, item.IntervalDays, item.EaseFactor,
		item.LastReviewAt, item.NextReviewAt, item.AverageDifficulty, item.TotalReviews,
		item.PerfectCount, item.ForgotCount, item.Status, item.CreatedAt, item.UpdatedAt)

	created, err := scanReviewItem(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return created, nil
}

func (r *reviewItemRepository) FindBySurah(ctx context.Context, userID int64, surahID int32) (*entity.ReviewItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+reviewItemColumns+`
		FROM review_items
		WHERE user_id = $1 AND surah_id = $2`, userID, surahID)

	item, err := scanReviewItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find review item: %w", err)
	}
	return item, nil
}

func (r *reviewItemRepository) Update(ctx context.Context, item *entity.ReviewItem) (*entity.ReviewItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, updateReviewItemSQL,
		item.ID, item.UserID, item.Version,
		item.Repetitions, item.IntervalDays, item.EaseFactor,
		item.LastReviewAt, item.NextReviewAt, item.AverageDifficulty,
		item.TotalReviews, item.PerfectCount, item.ForgotCount,
		item.Status, item.UpdatedAt)

	updated, err := scanReviewItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.conflictOrMissing(ctx, item.UserID, item.ID)
		}
		return nil, fmt.Errorf("update review item: %w", err)
	}
	return updated, nil
}

// updateReviewItemSQL is conditional on the version the caller read; the
// version bump makes concurrent submitters lose deterministically.
const updateReviewItemSQL = `
	UPDATE review_items
	SET repetitions = $4, interval_days = $5, ease_factor = $6,
		last_review_at = $7, next_review_at = $8, average_difficulty = $9,
		total_reviews = $10, perfect_count = $11, forgot_count = $12,
		status = $13, version = version + 1, updated_at = $14
	WHERE id = $1 AND user_id = $2 AND version = $3
	RETURNING ` + reviewItemColumns

func (r *reviewItemRepository) Submit(ctx context.Context, item *entity.ReviewItem, entry *entity.ReviewHistoryEntry) (*entity.ReviewItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin submit: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, updateReviewItemSQL,
		item.ID, item.UserID, item.Version,
		item.Repetitions, item.IntervalDays, item.EaseFactor,
		item.LastReviewAt, item.NextReviewAt, item.AverageDifficulty,
		item.TotalReviews, item.PerfectCount, item.ForgotCount,
		item.Status, item.UpdatedAt)

	updated, err := scanReviewItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.conflictOrMissing(ctx, item.UserID, item.ID)
		}
		return nil, fmt.Errorf("update review item: %w", err)
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO review_history (user_id, surah_id, grade, interval_before, interval_after, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		entry.UserID, entry.SurahID, entry.Grade, entry.IntervalBefore, entry.IntervalAfter,
		entry.ReviewedAt).Scan(&entry.ID); err != nil {
		return nil, fmt.Errorf("%w: append history: %v", entity.ErrPartialWrite, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit submit: %v", entity.ErrPartialWrite, err)
	}
	return updated, nil
}

// conflictOrMissing disambiguates a zero-row conditional update: the item
// either vanished or was updated concurrently.
func (r *reviewItemRepository) conflictOrMissing(ctx context.Context, userID, id int64) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM review_items WHERE id = $1 AND user_id = $2)`,
		id, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("inspect review item: %w", err)
	}
	if exists {
		return entity.ErrReviewConflict
	}
	return entity.ErrReviewNotFound
}

func (r *reviewItemRepository) List(ctx context.Context, query *repository.ListReviewQuery) ([]entity.ReviewItem, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	where, args, err := buildReviewWhere(query)
	if err != nil {
		return nil, 0, err
	}
	orderBy, err := buildReviewOrder(query.GetOrderBy())
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM review_items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count review items: %w", err)
	}

	limit := query.PageSize
	if limit <= 0 {
		limit = 50
	}
	offset := query.Offset()
	if offset < 0 {
		offset = 0
	}
	sql := fmt.Sprintf(`SELECT %s FROM review_items%s%s LIMIT %d OFFSET %d`,
		reviewItemColumns, where, orderBy, limit, offset)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list review items: %w", err)
	}
	defer rows.Close()

	items, err := collectReviewItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *reviewItemRepository) ListByUser(ctx context.Context, userID int64) ([]entity.ReviewItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+reviewItemColumns+`
		FROM review_items
		WHERE user_id = $1
		ORDER BY surah_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	defer rows.Close()
	return collectReviewItems(rows)
}

func (r *reviewItemRepository) ListDue(ctx context.Context, userID int64, asOf time.Time) ([]entity.ReviewItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Due-ness is a calendar-day comparison: anything scheduled before the
	// end of asOf's day is due, whatever its time component.
	endOfDay := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 23, 59, 59, 0, asOf.Location())
	rows, err := r.pool.Query(ctx, `
		SELECT `+reviewItemColumns+`
		FROM review_items
		WHERE user_id = $1 AND next_review_at <= $2
		ORDER BY next_review_at, surah_id`, userID, endOfDay)
	if err != nil {
		return nil, fmt.Errorf("list due review items: %w", err)
	}
	defer rows.Close()
	return collectReviewItems(rows)
}

func (r *reviewItemRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM review_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete review items: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanReviewItem(row pgx.Row) (*entity.ReviewItem, error) {
	var item entity.ReviewItem
	err := row.Scan(
		&item.ID, &item.UserID, &item.SurahID, &item.Repetitions, &item.IntervalDays,
		&item.EaseFactor, &item.LastReviewAt, &item.NextReviewAt, &item.AverageDifficulty,
		&item.TotalReviews, &item.PerfectCount, &item.ForgotCount, &item.Status,
		&item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func collectReviewItems(rows pgx.Rows) ([]entity.ReviewItem, error) {
	items := make([]entity.ReviewItem, 0, 16)
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review items: %w", err)
	}
	return items, nil
}

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return entity.ErrDuplicateReview
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.ErrReviewNotFound
	}
	return err
}
