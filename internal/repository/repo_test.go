package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthbridge-backend/internal/database"
	"healthbridge-backend/internal/models"
)

func newTestDB(t *testing.T) database.DB {
	t.Helper()
	sqlDB, err := database.OpenSQLite(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	db := database.NewSQLDB(sqlDB)
	t.Cleanup(db.Close)
	require.NoError(t, database.RunMigrations(context.Background(), db))
	return db
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func logEntry(date string) *models.SyncLogEntry {
	return &models.SyncLogEntry{
		DeviceID:    "iphone",
		SyncedAt:    date + "T21:00:00Z",
		PeriodFrom:  date + "T00:00:00Z",
		PeriodTo:    date + "T21:00:00Z",
		PayloadJSON: `{}`,
	}
}

func sleepRecord(date, start, end string, total float64, stages string) *models.SleepRecord {
	return &models.SleepRecord{
		Date:             date,
		StartTime:        start,
		EndTime:          end,
		TotalDurationMin: floatp(total),
		Stages:           []byte(stages),
	}
}

func TestApplySync_FieldWiseMerge(t *testing.T) {
	ctx := context.Background()
	repo := NewHealthRepo(newTestDB(t))

	_, err := repo.ApplySync(ctx, logEntry("2024-01-02"), &models.SyncPlan{
		TargetDate: "2024-01-02",
		Summary:    models.SummaryFields{Steps: intp(8000), DistanceKm: floatp(6.1)},
	})
	require.NoError(t, err)

	_, err = repo.ApplySync(ctx, logEntry("2024-01-02"), &models.SyncPlan{
		TargetDate: "2024-01-02",
		Summary:    models.SummaryFields{RestingHR: floatp(55)},
	})
	require.NoError(t, err)

	s, err := repo.GetDailySummary(ctx, "2024-01-02")
	require.NoError(t, err)
	require.NotNil(t, s.Steps)
	assert.Equal(t, 8000, *s.Steps)
	assert.Equal(t, 6.1, *s.DistanceKm)
	require.NotNil(t, s.RestingHR)
	assert.Equal(t, 55.0, *s.RestingHR)
	assert.Nil(t, s.WeightKg)

	// A later non-null value overwrites.
	_, err = repo.ApplySync(ctx, logEntry("2024-01-02"), &models.SyncPlan{
		TargetDate: "2024-01-02",
		Summary:    models.SummaryFields{Steps: intp(9500)},
	})
	require.NoError(t, err)
	s, err = repo.GetDailySummary(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 9500, *s.Steps)
	assert.Equal(t, 55.0, *s.RestingHR)
}

func TestApplySync_ReturnsIncreasingSyncIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewHealthRepo(newTestDB(t))

	first, err := repo.ApplySync(ctx, logEntry("2024-01-02"), &models.SyncPlan{TargetDate: "2024-01-02"})
	require.NoError(t, err)
	second, err := repo.ApplySync(ctx, logEntry("2024-01-02"), &models.SyncPlan{TargetDate: "2024-01-02"})
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestApplySync_SleepUpsertDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewHealthRepo(newTestDB(t))

	for _, total := range []float64{400, 415} {
		plan := &models.SyncPlan{
			TargetDate: "2024-01-02",
			Sleep: []*models.SleepRecord{
				sleepRecord("2024-01-02", "2024-01-01T23:10:00+01:00", "2024-01-02T06:45:00+01:00", total, `[]`),
			},
		}
		plan.Summary.ApplySleep(total, nil)
		_, err := repo.ApplySync(ctx, logEntry("2024-01-02"), plan)
		require.NoError(t, err)
	}

	sessions, err := repo.GetSleepSessions(ctx, "2024-01-01", "2024-01-03")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 415.0, *sessions[0].TotalDurationMin)
	assert.NotEmpty(t, sessions[0].UpdatedAt)
}

func TestApplySync_SleepSummaryKeepsLongestAcrossSyncs(t *testing.T) {
	ctx := context.Background()
	repo := NewHealthRepo(newTestDB(t))

	watch := &models.SyncPlan{
		TargetDate: "2024-01-02",
		Sleep: []*models.SleepRecord{
			sleepRecord("2024-01-02", "2024-01-01T23:00:00Z", "2024-01-02T06:00:00Z", 420,
				`[{"stage":"deep","duration_min":80},{"stage":"rem","duration_min":100},{"stage":"deep","duration_min":10}]`),
		},
	}
	watch.Summary.ApplySleep(420, nil)
	_, err := repo.ApplySync(ctx, logEntry("2024-01-02"), watch)
	require.NoError(t, err)

	// The phone syncs a shorter nap later the same day.
	phone := &models.SyncPlan{
		TargetDate: "2024-01-02",
		Sleep: []*models.SleepRecord{
			sleepRecord("2024-01-02", "2024-01-02T13:00:00Z", "2024-01-02T14:30:00Z", 90, `[{"stage":"core","duration_min":90}]`),
		},
	}
	phone.Summary.ApplySleep(90, []models.SleepStage{{Stage: "core", DurationMin: 90}})
	_, err = repo.ApplySync(ctx, logEntry("2024-01-02"), phone)
	require.NoError(t, err)

	s, err := repo.GetDailySummary(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 420.0, *s.SleepDurationMin)
	assert.Equal(t, 90.0, *s.DeepSleepMin)
	assert.Equal(t, 100.0, *s.REMSleepMin)
	assert.Nil(t, s.CoreSleepMin)

	sessions, err := repo.GetSleepSessions(ctx, "2024-01-02", "2024-01-02")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestApplySync_LongerSessionReplacesAllSleepFields(t *testing.T) {
	ctx := context.Background()
	repo := NewHealthRepo(newTestDB(t))

	staged := &models.SyncPlan{
		TargetDate: "2024-01-02",
		Sleep: []*models.SleepRecord{
			sleepRecord("2024-01-02", "2024-01-01T23:00:00Z", "2024-01-02T06:00:00Z", 420,
				`[{"stage":"deep","duration_min":60},{"stage":"rem","duration_min":90}]`),
		},
	}
	staged.Summary.ApplySleep(420, []models.SleepStage{{Stage: "deep", DurationMin: 60}, {Stage: "rem", DurationMin: 90}})
	_, err := repo.ApplySync(ctx, logEntry("2024-01-02"), staged)
	require.NoError(t, err)

	// A second device reports a longer recording of the night without stages.
	unstaged := &models.SyncPlan{
		TargetDate: "2024-01-02",
		Sleep: []*models.SleepRecord{
			sleepRecord("2024-01-02", "2024-01-01T22:30:00Z", "2024-01-02T06:30:00Z", 480, `[]`),
		},
	}
	unstaged.Summary.ApplySleep(480, nil)
	_, err = repo.ApplySync(ctx, logEntry("2024-01-02"), unstaged)
	require.NoError(t, err)

	s, err := repo.GetDailySummary(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 480.0, *s.SleepDurationMin)
	assert.Nil(t, s.DeepSleepMin)
	assert.Nil(t, s.REMSleepMin)
	assert.Nil(t, s.CoreSleepMin)
	assert.Nil(t, s.AwakeMin)
}

func TestApplySync_SleepSummaryKeepsLongestInReverseOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewHealthRepo(newTestDB(t))

	nap := &models.SyncPlan{
		TargetDate: "2024-01-02",
		Sleep: []*models.SleepRecord{
			sleepRecord("2024-01-02", "2024-01-02T13:00:00Z", "2024-01-02T14:30:00Z", 90, `[{"stage":"core","duration_min":90}]`),
		},
	}
	nap.Summary.ApplySleep(90, []models.SleepStage{{Stage: "core", DurationMin: 90}})
	_, err := repo.ApplySync(ctx, logEntry("2024-01-02"), nap)
	require.NoError(t, err)

	night := &models.SyncPlan{
		TargetDate: "2024-01-02",
		Sleep: []*models.SleepRecord{
			sleepRecord("2024-01-02", "2024-01-01T23:00:00Z", "2024-01-02T06:00:00Z", 420,
				`[{"stage":"deep","duration_min":90},{"stage":"rem","duration_min":100}]`),
		},
	}
	night.Summary.ApplySleep(420, nil)
	_, err = repo.ApplySync(ctx, logEntry("2024-01-02"), night)
	require.NoError(t, err)

	s, err := repo.GetDailySummary(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 420.0, *s.SleepDurationMin)
	assert.Equal(t, 90.0, *s.DeepSleepMin)
	assert.Equal(t, 100.0, *s.REMSleepMin)
	assert.Nil(t, s.CoreSleepMin, "core minutes belong to the nap, not the chosen session")
}

func TestApplySync_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewHealthRepo(db)

	_, err := db.Exec(ctx, "DROP TABLE mood_entries")
	require.NoError(t, err)

	_, err = repo.ApplySync(ctx, logEntry("2024-01-02"), &models.SyncPlan{
		TargetDate: "2024-01-02",
		Summary:    models.SummaryFields{Steps: intp(100)},
		Workouts: []*models.WorkoutRecord{{
			Date: "2024-01-02", WorkoutType: "running",
			StartTime: "2024-01-02T07:00:00Z", EndTime: "2024-01-02T07:30:00Z", DurationMin: floatp(30),
		}},
		Mood: []*models.MoodRecord{{Date: "2024-01-02", Kind: "momentary", Timestamp: "2024-01-02T08:00:00Z", Valence: 0.2}},
	})
	require.Error(t, err)

	var logs, workouts int
	require.NoError(t, db.QueryRow(ctx, "SELECT COUNT(*) FROM sync_log").Scan(&logs))
	require.NoError(t, db.QueryRow(ctx, "SELECT COUNT(*) FROM workouts").Scan(&workouts))
	assert.Zero(t, logs)
	assert.Zero(t, workouts)

	_, err = repo.GetDailySummary(ctx, "2024-01-02")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWindowedReads_NewestFirstWithinRange(t *testing.T) {
	ctx := context.Background()
	repo := NewHealthRepo(newTestDB(t))

	for _, d := range []string{"2024-01-01", "2024-01-05", "2024-01-03", "2023-12-20"} {
		_, err := repo.ApplySync(ctx, logEntry(d), &models.SyncPlan{
			TargetDate: d,
			Summary:    models.SummaryFields{Steps: intp(1000)},
			Workouts: []*models.WorkoutRecord{{
				Date: d, WorkoutType: "walking", StartTime: d + "T08:00:00Z", EndTime: d + "T08:20:00Z", DurationMin: floatp(20),
			}},
			Mood: []*models.MoodRecord{{
				Date: d, Kind: "daily", Timestamp: d + "T20:00:00Z", Valence: 0.5, Labels: []string{"calm"},
			}},
		})
		require.NoError(t, err)
	}

	summaries, err := repo.GetDailySummaries(ctx, "2024-01-01", "2024-01-05")
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "2024-01-05", summaries[0].Date)
	assert.Equal(t, "2024-01-03", summaries[1].Date)
	assert.Equal(t, "2024-01-01", summaries[2].Date)

	workouts, err := repo.GetWorkouts(ctx, "2024-01-01", "2024-01-05")
	require.NoError(t, err)
	require.Len(t, workouts, 3)
	assert.Equal(t, "2024-01-05", workouts[0].Date)

	mood, err := repo.GetMoodEntries(ctx, "2024-01-02", "2024-01-05")
	require.NoError(t, err)
	require.Len(t, mood, 2)
	assert.Equal(t, []string{"calm"}, mood[0].Labels)
	assert.Equal(t, []string{}, mood[0].Associations)

	empty, err := repo.GetDailySummaries(ctx, "2025-01-01", "2025-01-02")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}

func TestMealRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMealRepo(newTestDB(t))

	meal := &models.MealEntry{
		Date:          "2024-01-02",
		Timestamp:     "2024-01-02T08:00:00Z",
		Description:   "2 eggs and toast",
		AnalysisJSON:  `{"description":"2 eggs and toast"}`,
		TotalCalories: 320,
		TotalProteinG: 18,
		Nutrients: []models.MealNutrient{
			{Name: "Protein", Amount: 18, Unit: "g"},
			{Name: "Iron", Amount: 2.1, Unit: "mg"},
		},
	}
	require.NoError(t, repo.Create(ctx, meal))
	require.NotZero(t, meal.ID)

	got, err := repo.GetByID(ctx, meal.ID)
	require.NoError(t, err)
	assert.Equal(t, "2 eggs and toast", got.Description)
	assert.Equal(t, meal.AnalysisJSON, got.AnalysisJSON)
	assert.Len(t, got.Nutrients, 2)

	desc := "3 eggs and toast"
	cal := 400.0
	nutrients := []models.MealNutrient{{Name: "Protein", Amount: 24, Unit: "g"}}
	updated, err := repo.Update(ctx, meal.ID, &models.UpdateMealRequest{
		Description: &desc, TotalCalories: &cal, Nutrients: &nutrients,
	})
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)
	assert.Equal(t, 400.0, updated.TotalCalories)
	assert.Equal(t, 18.0, updated.TotalProteinG, "unset fields are kept")

	got, err = repo.GetByID(ctx, meal.ID)
	require.NoError(t, err)
	require.Len(t, got.Nutrients, 1)
	assert.Equal(t, 24.0, got.Nutrients[0].Amount)

	require.NoError(t, repo.Delete(ctx, meal.ID))
	_, err = repo.GetByID(ctx, meal.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, meal.ID), ErrNotFound)

	_, err = repo.Update(ctx, 9999, &models.UpdateMealRequest{Description: &desc})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMealRepo_DailySummaryAndHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewMealRepo(newTestDB(t))

	meals := []*models.MealEntry{
		{Date: "2024-01-02", Timestamp: "2024-01-02T08:00:00Z", Description: "breakfast", TotalCalories: 300, TotalProteinG: 20,
			Nutrients: []models.MealNutrient{{Name: "Protein", Amount: 20, Unit: "g"}, {Name: "Iron", Amount: 1, Unit: "mg"}}},
		{Date: "2024-01-02", Timestamp: "2024-01-02T13:00:00Z", Description: "lunch", TotalCalories: 700, TotalProteinG: 35,
			Nutrients: []models.MealNutrient{{Name: "Protein", Amount: 35, Unit: "g"}}},
		{Date: "2024-01-01", Timestamp: "2024-01-01T19:00:00Z", Description: "dinner", TotalCalories: 900},
	}
	for _, m := range meals {
		require.NoError(t, repo.Create(ctx, m))
	}

	s, err := repo.DailySummary(ctx, "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, 2, s.MealCount)
	assert.Equal(t, 1000.0, s.Totals.Calories)
	assert.Equal(t, 55.0, s.Totals.ProteinG)
	require.Len(t, s.Nutrients, 2)
	assert.Equal(t, models.NutrientTotal{NutrientName: "Iron", TotalAmount: 1, Unit: "mg"}, s.Nutrients[0])
	assert.Equal(t, models.NutrientTotal{NutrientName: "Protein", TotalAmount: 55, Unit: "g"}, s.Nutrients[1])

	empty, err := repo.DailySummary(ctx, "2023-06-01")
	require.NoError(t, err)
	assert.Zero(t, empty.MealCount)
	assert.Empty(t, empty.Nutrients)

	history, err := repo.ListByDateRange(ctx, "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "lunch", history[0].Description)
	assert.Len(t, history[1].Nutrients, 2)
	assert.Equal(t, []models.MealNutrient{}, history[2].Nutrients)
}
