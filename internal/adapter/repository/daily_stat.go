package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eslsoft/hifznet/internal/entity"
	"github.com/eslsoft/hifznet/internal/repository"
)

type dailyStatRepository struct {
	pool *pgxpool.Pool
}

// NewDailyStatRepository constructs a pgx-backed daily stats repository.
func NewDailyStatRepository(pool *pgxpool.Pool) repository.DailyStatRepository {
	return &dailyStatRepository{pool: pool}
}

func (r *dailyStatRepository) AddReviewResult(ctx context.Context, userID int64, day time.Time, points int32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_stats (user_id, date, reviews_completed, points_earned)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, date) DO UPDATE
		SET reviews_completed = daily_stats.reviews_completed + 1,
			points_earned = daily_stats.points_earned + EXCLUDED.points_earned`,
		userID, day.Format("2006-01-02"), points)
	if err != nil {
		return fmt.Errorf("add review result: %w", err)
	}
	return nil
}

func (r *dailyStatRepository) ListRange(ctx context.Context, userID int64, from, to time.Time) ([]entity.DailyStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, date, reviews_completed, points_earned
		FROM daily_stats
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`,
		userID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("list daily stats: %w", err)
	}
	defer rows.Close()

	stats := make([]entity.DailyStat, 0, 31)
	for rows.Next() {
		var stat entity.DailyStat
		if err := rows.Scan(&stat.UserID, &stat.Date, &stat.ReviewsCompleted, &stat.PointsEarned); err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily stats: %w", err)
	}
	return stats, nil
}
