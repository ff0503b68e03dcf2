package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthbridge-backend/internal/models"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func day(date string, steps int, sleepMin, rhr float64) *models.DailySummary {
	s := &models.DailySummary{Date: date}
	s.Steps = intp(steps)
	s.SleepDurationMin = floatp(sleepMin)
	s.RestingHR = floatp(rhr)
	s.WorkoutCount = intp(1)
	return s
}

func TestRender_NoData(t *testing.T) {
	out := String(&Data{}, time.Now())
	assert.Contains(t, out, "No health data available yet")
}

func TestRender_FullReport(t *testing.T) {
	today := day("2025-03-02", 2500, 280, 85)
	today.BodyBattery = intp(25)
	today.HRVSDNN = floatp(15)
	today.DeepSleepMin = floatp(60)
	today.MoodAvgValence = floatp(0.5)
	today.WeightKg = floatp(72.4)
	today.BloodOxygenPct = floatp(97)

	data := &Data{
		Summaries: []*models.DailySummary{today, day("2025-03-01", 9000, 420, 60), day("2025-02-28", 6500, 450, 58)},
		Workouts: []*models.WorkoutRecord{
			{Date: "2025-03-01", WorkoutType: "running", DurationMin: floatp(40), DistanceKm: floatp(7.2), ActiveCalories: floatp(380)},
		},
		Mood: []*models.MoodRecord{{Date: "2025-03-02", Valence: 0.5}},
	}

	out := String(data, time.Now())

	assert.Contains(t, out, "# Health Report: 2025-03-02")
	assert.Contains(t, out, "🔴 Body Battery: 25/100")
	assert.Contains(t, out, "- Steps: **2500** ↓")
	assert.Contains(t, out, "- Resting HR: **85 bpm** ↑")
	assert.Contains(t, out, "- Duration: **4.7h** (🔴 Low)")
	assert.Contains(t, out, "- Deep: 60 min")
	assert.Contains(t, out, "- REM: n/a")
	assert.Contains(t, out, "  - running: 40 min, 7.2 km (2025-03-01)")
	assert.Contains(t, out, "- Weight: 72.4 kg")
	assert.Contains(t, out, "😊 (valence: 0.50)")
	assert.Contains(t, out, "- SpO₂: 97.0%")
	assert.Contains(t, out, "Resting HR elevated")
	assert.Contains(t, out, "Sleep under 5 hours")
	assert.Contains(t, out, "Body battery critically low")
	assert.Contains(t, out, "Low step count")
	assert.Contains(t, out, "- Avg steps: 6000")
	assert.Contains(t, out, "- Total workouts: 3")
}

func TestAlerts_HealthyDay(t *testing.T) {
	s := day("2025-03-02", 9000, 450, 58)
	s.BodyBattery = intp(80)
	assert.Empty(t, Alerts(s))
}

func TestTrend(t *testing.T) {
	assert.Equal(t, "", trend(nil, floatp(1)))
	assert.Equal(t, " ↑", trend(floatp(110), floatp(100)))
	assert.Equal(t, " ↓", trend(floatp(90), floatp(100)))
	assert.Equal(t, " →", trend(floatp(103), floatp(100)))
}

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/health/summary":
			w.Write([]byte(`{"days":7,"summaries":[{"date":"2025-03-02","steps":1234}]}`))
		case "/api/health/workouts":
			w.Write([]byte(`{"days":7,"workouts":[]}`))
		case "/api/health/sleep":
			w.Write([]byte(`{"days":7,"sleep":[]}`))
		case "/api/health/mood":
			w.Write([]byte(`{"days":7,"mood":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	data, err := NewClient(srv.URL+"/", "k").Fetch(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, data.Summaries, 1)
	assert.Equal(t, 1234, *data.Summaries[0].Steps)

	_, err = NewClient(srv.URL, "wrong").Fetch(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
