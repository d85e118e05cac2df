package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eslsoft/hifznet/internal/entity"
	"github.com/eslsoft/hifznet/internal/repository"
)

const historyColumns = `id, user_id, surah_id, grade, interval_before, interval_after, reviewed_at`

type reviewHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewReviewHistoryRepository constructs a pgx-backed history repository.
func NewReviewHistoryRepository(pool *pgxpool.Pool) repository.ReviewHistoryRepository {
	return &reviewHistoryRepository{pool: pool}
}

func (r *reviewHistoryRepository) Append(ctx context.Context, entry *entity.ReviewHistoryEntry) (*entity.ReviewHistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO review_history (user_id, surah_id, grade, interval_before, interval_after, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+historyColumns,
		entry.UserID, entry.SurahID, entry.Grade, entry.IntervalBefore, entry.IntervalAfter, entry.ReviewedAt)

	appended, err := scanHistoryEntry(row)
	if err != nil {
		return nil, fmt.Errorf("append review history: %w", err)
	}
	return appended, nil
}

func (r *reviewHistoryRepository) ListBySurah(ctx context.Context, userID int64, surahID int32, limit int32) ([]entity.ReviewHistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+historyColumns+`
		FROM review_history
		WHERE user_id = $1 AND surah_id = $2
		ORDER BY reviewed_at DESC, id DESC
		LIMIT $3`, userID, surahID, limit)
	if err != nil {
		return nil, fmt.Errorf("list review history: %w", err)
	}
	defer rows.Close()
	return collectHistoryEntries(rows)
}

func (r *reviewHistoryRepository) ListByUser(ctx context.Context, userID int64) ([]entity.ReviewHistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+historyColumns+`
		FROM review_history
		WHERE user_id = $1
		ORDER BY reviewed_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list review history: %w", err)
	}
	defer rows.Close()
	return collectHistoryEntries(rows)
}

func scanHistoryEntry(row pgx.Row) (*entity.ReviewHistoryEntry, error) {
	var entry entity.ReviewHistoryEntry
	err := row.Scan(&entry.ID, &entry.UserID, &entry.SurahID, &entry.Grade,
		&entry.IntervalBefore, &entry.IntervalAfter, &entry.ReviewedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func collectHistoryEntries(rows pgx.Rows) ([]entity.ReviewHistoryEntry, error) {
	entries := make([]entity.ReviewHistoryEntry, 0, 16)
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review history: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review history: %w", err)
	}
	return entries, nil
}
