package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"healthbridge-backend/internal/database"
	"healthbridge-backend/internal/models"
)

type HealthRepo struct {
	db database.DB
}

func NewHealthRepo(db database.DB) *HealthRepo {
	return &HealthRepo{db: db}
}

// ApplySync archives the payload and writes every derived row in one
// transaction. Nothing is visible unless the whole unit commits.
func (r *HealthRepo) ApplySync(ctx context.Context, entry *models.SyncLogEntry, plan *models.SyncPlan) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO sync_log (device_id, synced_at, period_from, period_to, payload_json, created_at)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			entry.DeviceID, entry.SyncedAt, entry.PeriodFrom, entry.PeriodTo, entry.PayloadJSON, now,
		).Scan(&entry.ID)
		if err != nil {
			return fmt.Errorf("archive payload: %w", err)
		}

		for _, s := range plan.Sleep {
			if err := upsertSleep(ctx, tx, s, now); err != nil {
				return fmt.Errorf("upsert sleep session %s: %w", s.StartTime, err)
			}
		}

		fields := plan.Summary
		resolved := false
		if fields.SleepDurationMin != nil {
			// Another device may already have stored a longer recording of
			// the same night; the summary always reflects the longest one.
			resolved, err = resolveLongestSleep(ctx, tx, plan.TargetDate, &fields)
			if err != nil {
				return fmt.Errorf("resolve sleep for %s: %w", plan.TargetDate, err)
			}
		}

		if _, err := tx.Exec(ctx, summaryUpsertSQL, summaryArgs(plan.TargetDate, &fields, now)...); err != nil {
			return fmt.Errorf("upsert daily summary: %w", err)
		}
		if resolved {
			// The merge above keeps old values for null stages, so the
			// sleep columns are replaced as a set from the chosen session.
			if _, err := tx.Exec(ctx, `UPDATE daily_summary SET sleep_duration_min = $2, deep_sleep_min = $3,
				rem_sleep_min = $4, core_sleep_min = $5, awake_min = $6 WHERE date = $1`,
				plan.TargetDate, floatArg(fields.SleepDurationMin), floatArg(fields.DeepSleepMin),
				floatArg(fields.REMSleepMin), floatArg(fields.CoreSleepMin), floatArg(fields.AwakeMin),
			); err != nil {
				return fmt.Errorf("replace sleep summary: %w", err)
			}
		}

		for _, w := range plan.Workouts {
			err := tx.QueryRow(ctx, `INSERT INTO workouts (date, workout_type, start_time, end_time, duration_min,
				distance_km, active_calories, avg_hr, max_hr, elevation_gain_m, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
				w.Date, w.WorkoutType, w.StartTime, w.EndTime, floatArg(w.DurationMin),
				floatArg(w.DistanceKm), floatArg(w.ActiveCalories), floatArg(w.AvgHR), floatArg(w.MaxHR),
				floatArg(w.ElevationGainM), now,
			).Scan(&w.ID)
			if err != nil {
				return fmt.Errorf("insert workout: %w", err)
			}
		}

		for _, m := range plan.Mood {
			labels, _ := json.Marshal(nonNil(m.Labels))
			assoc, _ := json.Marshal(nonNil(m.Associations))
			err := tx.QueryRow(ctx, `INSERT INTO mood_entries (date, kind, timestamp, valence, labels, associations, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
				m.Date, m.Kind, m.Timestamp, m.Valence, string(labels), string(assoc), now,
			).Scan(&m.ID)
			if err != nil {
				return fmt.Errorf("insert mood entry: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return entry.ID, nil
}

func upsertSleep(ctx context.Context, tx database.Tx, s *models.SleepRecord, now string) error {
	stages := string(s.Stages)
	if stages == "" {
		stages = "[]"
	}
	return tx.QueryRow(ctx, `INSERT INTO sleep_sessions (date, start_time, end_time, total_duration_min,
		in_bed_duration_min, stages_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (date, start_time) DO UPDATE SET
			end_time = excluded.end_time,
			total_duration_min = excluded.total_duration_min,
			in_bed_duration_min = excluded.in_bed_duration_min,
			stages_json = excluded.stages_json,
			updated_at = excluded.updated_at
		RETURNING id`,
		s.Date, s.StartTime, s.EndTime, floatArg(s.TotalDurationMin), floatArg(s.InBedDurationMin), stages, now,
	).Scan(&s.ID)
}

// resolveLongestSleep replaces the sleep fields with those of the longest
// stored session ending on date and reports whether one was found. Ties keep
// the earliest stored row.
func resolveLongestSleep(ctx context.Context, tx database.Tx, date string, f *models.SummaryFields) (bool, error) {
	var total *float64
	var stagesJSON *string
	err := tx.QueryRow(ctx, `SELECT total_duration_min, stages_json FROM sleep_sessions
		WHERE date = $1 AND total_duration_min IS NOT NULL
		ORDER BY total_duration_min DESC, id ASC LIMIT 1`, date).Scan(&total, &stagesJSON)
	if errors.Is(err, database.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	// Only kind and duration matter here; rows written by older releases
	// may carry timestamps without an offset.
	var stored []struct {
		Stage       string  `json:"stage"`
		DurationMin float64 `json:"duration_min"`
	}
	if stagesJSON != nil && *stagesJSON != "" {
		if err := json.Unmarshal([]byte(*stagesJSON), &stored); err != nil {
			return false, fmt.Errorf("decode stages: %w", err)
		}
	}
	stages := make([]models.SleepStage, 0, len(stored))
	for _, st := range stored {
		stages = append(stages, models.SleepStage{Stage: st.Stage, DurationMin: st.DurationMin})
	}
	f.ApplySleep(*total, stages)
	return true, nil
}

// GetDailySummaries returns summaries dated within [since, until], newest first.
func (r *HealthRepo) GetDailySummaries(ctx context.Context, since, until string) ([]*models.DailySummary, error) {
	rows, err := r.db.Query(ctx, `SELECT `+summarySelectList+` FROM daily_summary
		WHERE date >= $1 AND date <= $2 ORDER BY date DESC`, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []*models.DailySummary{}
	for rows.Next() {
		s := &models.DailySummary{}
		if err := rows.Scan(summaryScanDest(s)...); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *HealthRepo) GetDailySummary(ctx context.Context, date string) (*models.DailySummary, error) {
	s := &models.DailySummary{}
	err := r.db.QueryRow(ctx, `SELECT `+summarySelectList+` FROM daily_summary WHERE date = $1`, date).
		Scan(summaryScanDest(s)...)
	if errors.Is(err, database.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *HealthRepo) GetWorkouts(ctx context.Context, since, until string) ([]*models.WorkoutRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, date, workout_type, start_time, end_time, duration_min,
		distance_km, active_calories, avg_hr, max_hr, elevation_gain_m, created_at
		FROM workouts WHERE date >= $1 AND date <= $2 ORDER BY date DESC, start_time DESC`, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts := []*models.WorkoutRecord{}
	for rows.Next() {
		w := &models.WorkoutRecord{}
		if err := rows.Scan(&w.ID, &w.Date, &w.WorkoutType, &w.StartTime, &w.EndTime, &w.DurationMin,
			&w.DistanceKm, &w.ActiveCalories, &w.AvgHR, &w.MaxHR, &w.ElevationGainM, &w.CreatedAt); err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}

func (r *HealthRepo) GetMoodEntries(ctx context.Context, since, until string) ([]*models.MoodRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, date, kind, timestamp, valence, labels, associations, created_at
		FROM mood_entries WHERE date >= $1 AND date <= $2 ORDER BY date DESC, timestamp DESC`, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.MoodRecord{}
	for rows.Next() {
		m := &models.MoodRecord{}
		var labels, assoc *string
		if err := rows.Scan(&m.ID, &m.Date, &m.Kind, &m.Timestamp, &m.Valence, &labels, &assoc, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Labels = decodeStrings(labels)
		m.Associations = decodeStrings(assoc)
		entries = append(entries, m)
	}
	return entries, rows.Err()
}

func (r *HealthRepo) GetSleepSessions(ctx context.Context, since, until string) ([]*models.SleepRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT id, date, start_time, end_time, total_duration_min, in_bed_duration_min,
		stages_json, created_at, updated_at
		FROM sleep_sessions WHERE date >= $1 AND date <= $2 ORDER BY date DESC, start_time DESC`, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*models.SleepRecord{}
	for rows.Next() {
		s := &models.SleepRecord{}
		var stages, updatedAt *string
		if err := rows.Scan(&s.ID, &s.Date, &s.StartTime, &s.EndTime, &s.TotalDurationMin, &s.InBedDurationMin,
			&stages, &s.CreatedAt, &updatedAt); err != nil {
			return nil, err
		}
		s.Stages = []byte("[]")
		if stages != nil && *stages != "" {
			s.Stages = []byte(*stages)
		}
		if updatedAt != nil {
			s.UpdatedAt = *updatedAt
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func floatArg(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func decodeStrings(raw *string) []string {
	out := []string{}
	if raw == nil || *raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(*raw), &out); err != nil {
		return []string{}
	}
	return out
}
