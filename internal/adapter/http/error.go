package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eslsoft/hifznet/internal/entity"
)

// toHTTPError maps domain sentinels onto HTTP statuses. Anything unmapped is
// a 500 with the original message hidden from the client.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, entity.ErrInvalidUserID),
		errors.Is(err, entity.ErrInvalidSurahID),
		errors.Is(err, entity.ErrInvalidGrade),
		errors.Is(err, entity.ErrInvalidFilter):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrReviewNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entity.ErrDuplicateReview):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, entity.ErrReviewConflict):
		return echo.NewHTTPError(http.StatusConflict, "review was updated concurrently, retry")
	case errors.Is(err, entity.ErrPartialWrite):
		return echo.NewHTTPError(http.StatusInternalServerError, "review could not be recorded atomically")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}
