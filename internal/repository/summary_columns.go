package repository

import (
	"fmt"
	"strings"

	"healthbridge-backend/internal/models"
)

// summaryColumn binds a daily_summary column to its SummaryFields field.
type summaryColumn struct {
	name string
	ref  func(f *models.SummaryFields) any // scan destination
	val  func(f *models.SummaryFields) any // bind value, nil when unset
}

func intCol(name string, field func(f *models.SummaryFields) **int) summaryColumn {
	return summaryColumn{
		name: name,
		ref:  func(f *models.SummaryFields) any { return field(f) },
		val: func(f *models.SummaryFields) any {
			if p := *field(f); p != nil {
				return int64(*p)
			}
			return nil
		},
	}
}

func floatCol(name string, field func(f *models.SummaryFields) **float64) summaryColumn {
	return summaryColumn{
		name: name,
		ref:  func(f *models.SummaryFields) any { return field(f) },
		val: func(f *models.SummaryFields) any {
			if p := *field(f); p != nil {
				return *p
			}
			return nil
		},
	}
}

var summaryColumns = []summaryColumn{
	intCol("steps", func(f *models.SummaryFields) **int { return &f.Steps }),
	floatCol("distance_km", func(f *models.SummaryFields) **float64 { return &f.DistanceKm }),
	floatCol("active_calories", func(f *models.SummaryFields) **float64 { return &f.ActiveCalories }),
	floatCol("basal_calories", func(f *models.SummaryFields) **float64 { return &f.BasalCalories }),
	floatCol("exercise_minutes", func(f *models.SummaryFields) **float64 { return &f.ExerciseMinutes }),
	intCol("stand_hours", func(f *models.SummaryFields) **int { return &f.StandHours }),
	intCol("flights_climbed", func(f *models.SummaryFields) **int { return &f.FlightsClimbed }),
	floatCol("vo2_max", func(f *models.SummaryFields) **float64 { return &f.VO2Max }),
	floatCol("resting_hr", func(f *models.SummaryFields) **float64 { return &f.RestingHR }),
	floatCol("avg_hr", func(f *models.SummaryFields) **float64 { return &f.AvgHR }),
	floatCol("min_hr", func(f *models.SummaryFields) **float64 { return &f.MinHR }),
	floatCol("max_hr", func(f *models.SummaryFields) **float64 { return &f.MaxHR }),
	floatCol("hrv_sdnn", func(f *models.SummaryFields) **float64 { return &f.HRVSDNN }),
	floatCol("walking_hr_avg", func(f *models.SummaryFields) **float64 { return &f.WalkingHRAvg }),
	floatCol("sleep_duration_min", func(f *models.SummaryFields) **float64 { return &f.SleepDurationMin }),
	floatCol("deep_sleep_min", func(f *models.SummaryFields) **float64 { return &f.DeepSleepMin }),
	floatCol("rem_sleep_min", func(f *models.SummaryFields) **float64 { return &f.REMSleepMin }),
	floatCol("core_sleep_min", func(f *models.SummaryFields) **float64 { return &f.CoreSleepMin }),
	floatCol("awake_min", func(f *models.SummaryFields) **float64 { return &f.AwakeMin }),
	floatCol("weight_kg", func(f *models.SummaryFields) **float64 { return &f.WeightKg }),
	floatCol("bmi", func(f *models.SummaryFields) **float64 { return &f.BMI }),
	floatCol("body_fat_pct", func(f *models.SummaryFields) **float64 { return &f.BodyFatPct }),
	intCol("body_battery", func(f *models.SummaryFields) **int { return &f.BodyBattery }),
	floatCol("mood_avg_valence", func(f *models.SummaryFields) **float64 { return &f.MoodAvgValence }),
	intCol("workout_count", func(f *models.SummaryFields) **int { return &f.WorkoutCount }),
	floatCol("workout_minutes", func(f *models.SummaryFields) **float64 { return &f.WorkoutMinutes }),
	floatCol("workout_calories", func(f *models.SummaryFields) **float64 { return &f.WorkoutCalories }),
	floatCol("mindfulness_minutes", func(f *models.SummaryFields) **float64 { return &f.MindfulnessMinutes }),
	floatCol("blood_oxygen_pct", func(f *models.SummaryFields) **float64 { return &f.BloodOxygenPct }),
	floatCol("respiratory_rate", func(f *models.SummaryFields) **float64 { return &f.RespiratoryRate }),
	floatCol("blood_pressure_systolic", func(f *models.SummaryFields) **float64 { return &f.BloodPressureSystolic }),
	floatCol("blood_pressure_diastolic", func(f *models.SummaryFields) **float64 { return &f.BloodPressureDiastolic }),
	floatCol("body_temperature_c", func(f *models.SummaryFields) **float64 { return &f.BodyTemperatureC }),
}

var (
	summarySelectList = buildSummarySelectList()
	summaryUpsertSQL  = buildSummaryUpsert()
)

func buildSummarySelectList() string {
	names := make([]string, 0, len(summaryColumns)+2)
	names = append(names, "date")
	for _, c := range summaryColumns {
		names = append(names, c.name)
	}
	names = append(names, "updated_at")
	return strings.Join(names, ", ")
}

// buildSummaryUpsert produces the field-wise merge: each column takes the
// incoming value only when it is non-null.
func buildSummaryUpsert() string {
	placeholders := make([]string, 0, len(summaryColumns)+2)
	sets := make([]string, 0, len(summaryColumns)+1)

	placeholders = append(placeholders, "$1")
	for i, c := range summaryColumns {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		sets = append(sets, fmt.Sprintf("%s = COALESCE(excluded.%s, daily_summary.%s)", c.name, c.name, c.name))
	}
	placeholders = append(placeholders, fmt.Sprintf("$%d", len(summaryColumns)+2))
	sets = append(sets, "updated_at = excluded.updated_at")

	return fmt.Sprintf("INSERT INTO daily_summary (%s) VALUES (%s) ON CONFLICT (date) DO UPDATE SET %s",
		summarySelectList, strings.Join(placeholders, ", "), strings.Join(sets, ", "))
}

func summaryArgs(date string, f *models.SummaryFields, updatedAt string) []any {
	args := make([]any, 0, len(summaryColumns)+2)
	args = append(args, date)
	for _, c := range summaryColumns {
		args = append(args, c.val(f))
	}
	return append(args, updatedAt)
}

func summaryScanDest(s *models.DailySummary) []any {
	dest := make([]any, 0, len(summaryColumns)+2)
	dest = append(dest, &s.Date)
	for _, c := range summaryColumns {
		dest = append(dest, c.ref(&s.SummaryFields))
	}
	return append(dest, &s.UpdatedAt)
}
