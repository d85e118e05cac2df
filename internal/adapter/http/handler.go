package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/eslsoft/hifznet/internal/entity"
	"github.com/eslsoft/hifznet/internal/repository"
	"github.com/eslsoft/hifznet/internal/usecase"
)

const userIDHeader = "X-User-ID"

// ReviewHandler exposes the review usecase over JSON endpoints.
type ReviewHandler struct {
	uc usecase.ReviewUsecase
}

func NewReviewHandler(uc usecase.ReviewUsecase) *ReviewHandler {
	return &ReviewHandler{uc: uc}
}

// Register mounts all review routes under the given group.
func (h *ReviewHandler) Register(g *echo.Group) {
	g.POST("/reviews", h.createReview)
	g.GET("/reviews", h.listReviews)
	g.DELETE("/reviews", h.resetAccount)
	g.GET("/reviews/due", h.listDue)
	g.POST("/reviews/:surah/submit", h.submitReview)
	g.POST("/reviews/:surah/reset", h.resetReview)
	g.GET("/reviews/:surah/history", h.getHistory)
	g.GET("/stats", h.getStats)
	g.GET("/stats/daily", h.getDailyStats)
}

type createReviewRequest struct {
	SurahID int32 `json:"surah_id"`
}

type submitReviewRequest struct {
	Grade int32 `json:"grade"`
}

type reviewItemPayload struct {
	ID                int64   `json:"id"`
	SurahID           int32   `json:"surah_id"`
	Repetitions       int32   `json:"repetitions"`
	IntervalDays      int32   `json:"interval_days"`
	EaseFactor        float64 `json:"ease_factor"`
	LastReviewAt      string  `json:"last_review_at"`
	NextReviewAt      string  `json:"next_review_at"`
	AverageDifficulty float64 `json:"average_difficulty"`
	TotalReviews      int32   `json:"total_reviews"`
	PerfectCount      int32   `json:"perfect_count"`
	ForgotCount       int32   `json:"forgot_count"`
	Status            string  `json:"status"`
}

type submitReviewResponse struct {
	Item         reviewItemPayload `json:"item"`
	NextReviewAt string            `json:"next_review_at"`
	IntervalDays int32             `json:"interval_days"`
	Points       int32             `json:"points"`
	Retention    int32             `json:"retention"`
}

type historyEntryPayload struct {
	ID             int64  `json:"id"`
	SurahID        int32  `json:"surah_id"`
	Grade          int32  `json:"grade"`
	IntervalBefore int32  `json:"interval_before"`
	IntervalAfter  int32  `json:"interval_after"`
	ReviewedAt     string `json:"reviewed_at"`
}

type listReviewsResponse struct {
	Items []reviewItemPayload `json:"items"`
	Total int64               `json:"total"`
}

type historySummaryPayload struct {
	Total         int32   `json:"total"`
	AvgDifficulty float64 `json:"avg_difficulty"`
	AvgInterval   float64 `json:"avg_interval"`
	LastReview    string  `json:"last_review,omitempty"`
}

type historyResponse struct {
	Entries []historyEntryPayload `json:"entries"`
	Summary historySummaryPayload `json:"summary"`
}

type statsPayload struct {
	Total             int32   `json:"total"`
	DueToday          int32   `json:"due_today"`
	New               int32   `json:"new"`
	Learning          int32   `json:"learning"`
	Reviewing         int32   `json:"reviewing"`
	Mastered          int32   `json:"mastered"`
	AverageDifficulty float64 `json:"average_difficulty"`
	TotalReviewsDone  int32   `json:"total_reviews_done"`
}

type dailyStatPayload struct {
	Date             string `json:"date"`
	ReviewsCompleted int32  `json:"reviews_completed"`
	PointsEarned     int32  `json:"points_earned"`
}

func (h *ReviewHandler) createReview(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req createReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	item, err := h.uc.CreateReviewItem(c.Request().Context(), userID, req.SurahID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, renderItem(item))
}

func (h *ReviewHandler) submitReview(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	surahID, err := surahParam(c)
	if err != nil {
		return err
	}
	var req submitReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.uc.SubmitReview(c.Request().Context(), userID, surahID, entity.Grade(req.Grade))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, submitReviewResponse{
		Item:         renderItem(result.Item),
		NextReviewAt: result.NextReviewAt.Format(time.RFC3339),
		IntervalDays: result.IntervalDays,
		Points:       result.Points,
		Retention:    result.Retention,
	})
}

func (h *ReviewHandler) listDue(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var asOf time.Time
	if raw := c.QueryParam("as_of"); raw != "" {
		asOf, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "as_of must be RFC3339")
		}
	}
	items, err := h.uc.ListDue(c.Request().Context(), userID, asOf)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, listReviewsResponse{
		Items: renderItems(items),
		Total: int64(len(items)),
	})
}

func (h *ReviewHandler) listReviews(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	query := &repository.ListReviewQuery{UserID: userID}
	query.Filter = c.QueryParam("filter")
	query.OrderBy = c.QueryParam("order_by")
	query.PageNo = int32(intQueryParam(c, "page_no", 1))
	query.PageSize = int32(intQueryParam(c, "page_size", 50))

	items, total, err := h.uc.ListReviews(c.Request().Context(), query)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, listReviewsResponse{Items: renderItems(items), Total: total})
}

func (h *ReviewHandler) getHistory(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	surahID, err := surahParam(c)
	if err != nil {
		return err
	}
	limit := int32(intQueryParam(c, "limit", 10))
	entries, err := h.uc.GetHistory(c.Request().Context(), userID, surahID, limit)
	if err != nil {
		return toHTTPError(err)
	}
	payload := lo.Map(entries, func(entry entity.ReviewHistoryEntry, _ int) historyEntryPayload {
		return historyEntryPayload{
			ID:             entry.ID,
			SurahID:        entry.SurahID,
			Grade:          int32(entry.Grade),
			IntervalBefore: entry.IntervalBefore,
			IntervalAfter:  entry.IntervalAfter,
			ReviewedAt:     entry.ReviewedAt.Format(time.RFC3339),
		}
	})
	summary := entity.SummarizeHistory(entries)
	resp := historyResponse{
		Entries: payload,
		Summary: historySummaryPayload{
			Total:         summary.Total,
			AvgDifficulty: summary.AvgDifficulty,
			AvgInterval:   summary.AvgInterval,
		},
	}
	if !summary.LastReview.IsZero() {
		resp.Summary.LastReview = summary.LastReview.Format(time.RFC3339)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ReviewHandler) getStats(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	stats, err := h.uc.Stats(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, statsPayload{
		Total:             stats.Total,
		DueToday:          stats.DueToday,
		New:               stats.New,
		Learning:          stats.Learning,
		Reviewing:         stats.Reviewing,
		Mastered:          stats.Mastered,
		AverageDifficulty: stats.AverageDifficulty,
		TotalReviewsDone:  stats.TotalReviewsDone,
	})
}

func (h *ReviewHandler) getDailyStats(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now
	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := c.QueryParam("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		to = parsed
	}
	stats, err := h.uc.DailyStats(c.Request().Context(), userID, from, to)
	if err != nil {
		return toHTTPError(err)
	}
	payload := lo.Map(stats, func(stat entity.DailyStat, _ int) dailyStatPayload {
		return dailyStatPayload{
			Date:             stat.Date.Format("2006-01-02"),
			ReviewsCompleted: stat.ReviewsCompleted,
			PointsEarned:     stat.PointsEarned,
		}
	})
	return c.JSON(http.StatusOK, payload)
}

func (h *ReviewHandler) resetReview(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	surahID, err := surahParam(c)
	if err != nil {
		return err
	}
	item, err := h.uc.ResetReviewItem(c.Request().Context(), userID, surahID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, renderItem(item))
}

func (h *ReviewHandler) resetAccount(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	if err := h.uc.ResetAccount(c.Request().Context(), userID); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func currentUserID(c echo.Context) (int64, error) {
	raw := c.Request().Header.Get(userIDHeader)
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing "+userIDHeader+" header")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "invalid "+userIDHeader+" header")
	}
	return userID, nil
}

func surahParam(c echo.Context) (int32, error) {
	raw := c.Param("surah")
	surahID, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "surah must be an integer")
	}
	return int32(surahID), nil
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func renderItem(item *entity.ReviewItem) reviewItemPayload {
	return reviewItemPayload{
		ID:                item.ID,
		SurahID:           item.SurahID,
		Repetitions:       item.Repetitions,
		IntervalDays:      item.IntervalDays,
		EaseFactor:        item.EaseFactor,
		LastReviewAt:      item.LastReviewAt.Format(time.RFC3339),
		NextReviewAt:      item.NextReviewAt.Format(time.RFC3339),
		AverageDifficulty: item.AverageDifficulty,
		TotalReviews:      item.TotalReviews,
		PerfectCount:      item.PerfectCount,
		ForgotCount:       item.ForgotCount,
		Status:            string(item.Status),
	}
}

func renderItems(items []entity.ReviewItem) []reviewItemPayload {
	return lo.Map(items, func(item entity.ReviewItem, _ int) reviewItemPayload {
		return renderItem(&item)
	})
}
