package handlers

import (
	"context"
	"net/http"

	"healthbridge-backend/internal/models"
	"healthbridge-backend/internal/services"
)

type healthQuerier interface {
	Summaries(ctx context.Context, days int) ([]*models.DailySummary, error)
	Latest(ctx context.Context) (*models.DailySummary, error)
	Workouts(ctx context.Context, days int) ([]*models.WorkoutRecord, error)
	Mood(ctx context.Context, days int) ([]*models.MoodRecord, error)
	Sleep(ctx context.Context, days int) ([]*models.SleepRecord, error)
}

type HealthHandler struct {
	query healthQuerier
}

func NewHealthHandler(query healthQuerier) *HealthHandler {
	return &HealthHandler{query: query}
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
}

func (h *HealthHandler) Summary(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	summaries, err := h.query.Summaries(r.Context(), days)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SummariesResponse{Days: days, Summaries: summaries})
}

func (h *HealthHandler) Latest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.query.Latest(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if latest == nil {
		writeJSON(w, http.StatusOK, models.StatusResponse{Status: "no_data"})
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (h *HealthHandler) Workouts(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	workouts, err := h.query.Workouts(r.Context(), days)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.WorkoutsResponse{Days: days, Workouts: workouts})
}

func (h *HealthHandler) Mood(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	mood, err := h.query.Mood(r.Context(), days)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MoodResponse{Days: days, Mood: mood})
}

func (h *HealthHandler) Sleep(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r)
	if !ok {
		return
	}
	sleep, err := h.query.Sleep(r.Context(), days)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SleepResponse{Days: days, Sleep: sleep})
}

// daysParam writes a 400 and returns false when ?days= is out of range.
func daysParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	days, err := services.ParseDays(r.URL.Query().Get("days"))
	if err != nil {
		handleServiceError(w, r, err)
		return 0, false
	}
	return days, true
}
