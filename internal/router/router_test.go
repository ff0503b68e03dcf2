package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"healthbridge-backend/internal/handlers"
	"healthbridge-backend/internal/models"
)

type nopSyncer struct{}

func (nopSyncer) Sync(ctx context.Context, body []byte) (int64, error) { return 1, nil }

type nopQuerier struct{}

func (nopQuerier) Summaries(ctx context.Context, days int) ([]*models.DailySummary, error) {
	return []*models.DailySummary{}, nil
}
func (nopQuerier) Latest(ctx context.Context) (*models.DailySummary, error) { return nil, nil }
func (nopQuerier) Workouts(ctx context.Context, days int) ([]*models.WorkoutRecord, error) {
	return []*models.WorkoutRecord{}, nil
}
func (nopQuerier) Mood(ctx context.Context, days int) ([]*models.MoodRecord, error) {
	return []*models.MoodRecord{}, nil
}
func (nopQuerier) Sleep(ctx context.Context, days int) ([]*models.SleepRecord, error) {
	return []*models.SleepRecord{}, nil
}

func newTestRouter() http.Handler {
	return New(
		Options{APIKey: "secret", AllowedOrigins: []string{"*"}, AnalyzeRatePerMinute: 10},
		handlers.NewSyncHandler(nopSyncer{}, 1<<20),
		handlers.NewHealthHandler(nopQuerier{}),
		handlers.NewNutritionHandler(nil, 1<<20),
	)
}

func TestRouter_PingIsPublic(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health/ping", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID on response")
	}
}

func TestRouter_ProtectedRoutesRequireKey(t *testing.T) {
	router := newTestRouter()
	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/health/sync"},
		{http.MethodGet, "/api/health/summary"},
		{http.MethodGet, "/api/health/latest"},
		{http.MethodGet, "/api/health/workouts"},
		{http.MethodGet, "/api/health/mood"},
		{http.MethodGet, "/api/health/sleep"},
		{http.MethodPost, "/api/nutrition/analyze"},
		{http.MethodGet, "/api/nutrition/history"},
		{http.MethodGet, "/api/nutrition/summary"},
		{http.MethodGet, "/api/nutrition/meals/1"},
		{http.MethodPut, "/api/nutrition/meals/1"},
		{http.MethodDelete, "/api/nutrition/meals/1"},
	}

	for _, rt := range routes {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(rt.method, rt.path, strings.NewReader(`{}`)))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected status %d, got %d", rt.method, rt.path, http.StatusUnauthorized, rr.Code)
		}
	}
}

func TestRouter_SyncWithKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/health/sync", strings.NewReader(`{}`))
	req.Header.Set("X-API-Key", "secret")
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"sync_id":1`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestRouter_Metrics(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}
