package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order and must stay idempotent, there is no
// version table.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS review_items (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		user_id BIGINT NOT NULL,
		surah_id INT NOT NULL CHECK (surah_id BETWEEN 1 AND 114),
		repetitions INT NOT NULL DEFAULT 0,
		interval_days INT NOT NULL DEFAULT 1,
		ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
		last_review_at TIMESTAMPTZ NOT NULL,
		next_review_at TIMESTAMPTZ NOT NULL,
		average_difficulty DOUBLE PRECISION NOT NULL DEFAULT 2.0,
		total_reviews INT NOT NULL DEFAULT 0,
		perfect_count INT NOT NULL DEFAULT 0,
		forgot_count INT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'new',
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_review_items_user_surah UNIQUE (user_id, surah_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_review_items_user_next
		ON review_items (user_id, next_review_at)`,
	`CREATE TABLE IF NOT EXISTS review_history (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		user_id BIGINT NOT NULL,
		surah_id INT NOT NULL,
		grade INT NOT NULL CHECK (grade BETWEEN 0 AND 4),
		interval_before INT NOT NULL,
		interval_after INT NOT NULL,
		reviewed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_review_history_user_surah
		ON review_history (user_id, surah_id, reviewed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS daily_stats (
		user_id BIGINT NOT NULL,
		date DATE NOT NULL,
		reviews_completed INT NOT NULL DEFAULT 0,
		points_earned INT NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, date)
	)`,
}

// Migrate creates or updates the schema on the target database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
