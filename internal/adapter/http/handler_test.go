package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eslsoft/hifznet/internal/entity"
	"github.com/eslsoft/hifznet/internal/repository"
	"github.com/eslsoft/hifznet/internal/usecase"
)

type fakeUsecase struct {
	item      *entity.ReviewItem
	submitRes *usecase.SubmitResult
	submitErr error
	createErr error
	resetErr  error
	lastGrade entity.Grade
}

func (f *fakeUsecase) CreateReviewItem(_ context.Context, userID int64, surahID int32) (*entity.ReviewItem, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	item := *f.item
	item.UserID = userID
	item.SurahID = surahID
	return &item, nil
}

func (f *fakeUsecase) SubmitReview(_ context.Context, _ int64, _ int32, grade entity.Grade) (*usecase.SubmitResult, error) {
	f.lastGrade = grade
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submitRes, nil
}

func (f *fakeUsecase) ListDue(_ context.Context, _ int64, _ time.Time) ([]entity.ReviewItem, error) {
	return []entity.ReviewItem{*f.item}, nil
}

func (f *fakeUsecase) ListReviews(_ context.Context, _ *repository.ListReviewQuery) ([]entity.ReviewItem, int64, error) {
	return []entity.ReviewItem{*f.item}, 1, nil
}

func (f *fakeUsecase) GetHistory(_ context.Context, _ int64, _ int32, _ int32) ([]entity.ReviewHistoryEntry, error) {
	return nil, nil
}

func (f *fakeUsecase) Stats(_ context.Context, _ int64) (*entity.ReviewStats, error) {
	return &entity.ReviewStats{Total: 3, DueToday: 1}, nil
}

func (f *fakeUsecase) DailyStats(_ context.Context, _ int64, _, _ time.Time) ([]entity.DailyStat, error) {
	return nil, nil
}

func (f *fakeUsecase) ResetReviewItem(_ context.Context, _ int64, _ int32) (*entity.ReviewItem, error) {
	if f.resetErr != nil {
		return nil, f.resetErr
	}
	return f.item, nil
}

func (f *fakeUsecase) ResetAccount(_ context.Context, _ int64) error {
	return nil
}

func testItem() *entity.ReviewItem {
	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	return &entity.ReviewItem{
		ID: 1, UserID: 7, SurahID: 36, Repetitions: 2, IntervalDays: 3,
		EaseFactor: 2.5, LastReviewAt: at, NextReviewAt: at.AddDate(0, 0, 3),
		AverageDifficulty: 3.2, TotalReviews: 5, Status: entity.StatusLearning,
	}
}

func setup(fake *fakeUsecase) *echo.Echo {
	e := echo.New()
	NewReviewHandler(fake).Register(e.Group("/api/v1"))
	return e
}

func doRequest(e *echo.Echo, method, target, body string, withUser bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if withUser {
		req.Header.Set(userIDHeader, "7")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateReviewEndpoint(t *testing.T) {
	fake := &fakeUsecase{item: testItem()}
	e := setup(fake)

	rec := doRequest(e, http.MethodPost, "/api/v1/reviews", `{"surah_id":36}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var payload reviewItemPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.SurahID != 36 || payload.Status != "learning" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestCreateReviewRequiresUser(t *testing.T) {
	e := setup(&fakeUsecase{item: testItem()})

	rec := doRequest(e, http.MethodPost, "/api/v1/reviews", `{"surah_id":36}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSubmitReviewEndpoint(t *testing.T) {
	item := testItem()
	fake := &fakeUsecase{
		item: item,
		submitRes: &usecase.SubmitResult{
			Item:         item,
			NextReviewAt: item.NextReviewAt,
			IntervalDays: 3,
			Points:       40,
			Retention:    55,
		},
	}
	e := setup(fake)

	rec := doRequest(e, http.MethodPost, "/api/v1/reviews/36/submit", `{"grade":4}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if fake.lastGrade != entity.GradePerfect {
		t.Errorf("grade passed through = %d", fake.lastGrade)
	}
	var payload submitReviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Points != 40 || payload.Retention != 55 {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestSubmitReviewErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{entity.ErrInvalidGrade, http.StatusBadRequest},
		{entity.ErrInvalidSurahID, http.StatusBadRequest},
		{entity.ErrReviewNotFound, http.StatusNotFound},
		{entity.ErrReviewConflict, http.StatusConflict},
		{entity.ErrPartialWrite, http.StatusInternalServerError},
		// Wrapped sentinels must map the same way the bare ones do.
		{fmt.Errorf("commit submit: %w", entity.ErrPartialWrite), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := setup(&fakeUsecase{item: testItem(), submitErr: tc.err})
		rec := doRequest(e, http.MethodPost, "/api/v1/reviews/36/submit", `{"grade":4}`, true)
		if rec.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestSubmitReviewBadSurahParam(t *testing.T) {
	e := setup(&fakeUsecase{item: testItem()})

	rec := doRequest(e, http.MethodPost, "/api/v1/reviews/not-a-number/submit", `{"grade":4}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListDueEndpoint(t *testing.T) {
	e := setup(&fakeUsecase{item: testItem()})

	rec := doRequest(e, http.MethodGet, "/api/v1/reviews/due", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload listReviewsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Total != 1 || len(payload.Items) != 1 {
		t.Errorf("unexpected payload: %+v", payload)
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/reviews/due?as_of=garbage", "", true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad as_of: status = %d, want 400", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	e := setup(&fakeUsecase{item: testItem()})

	rec := doRequest(e, http.MethodGet, "/api/v1/stats", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats statsPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.DueToday != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestResetAccountEndpoint(t *testing.T) {
	e := setup(&fakeUsecase{item: testItem()})

	rec := doRequest(e, http.MethodDelete, "/api/v1/reviews", "", true)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}
