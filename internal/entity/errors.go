package entity

import "errors"

// Domain errors for review items and related aggregates.
var (
	ErrReviewNotFound  = errors.New("review item not found")
	ErrDuplicateReview = errors.New("review item already exists")
	ErrInvalidUserID   = errors.New("invalid user ID")
	ErrInvalidSurahID  = errors.New("invalid surah ID")
	ErrInvalidGrade    = errors.New("grade must be between 0 and 4")
	ErrInvalidFilter   = errors.New("invalid filter or order expression")

	// ErrReviewConflict marks the losing side of two concurrent submissions
	// for the same item. The caller should reload and resubmit; retrying
	// blindly would apply the grade twice.
	ErrReviewConflict = errors.New("review item was modified concurrently")

	// ErrPartialWrite marks a submission whose item update and history
	// append could not both be applied. The transaction is rolled back, so
	// no half-applied state is visible.
	ErrPartialWrite = errors.New("review update and history append did not both succeed")
)
