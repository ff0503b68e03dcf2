package models

import (
	"encoding/json"
	"strings"
)

// SummaryFields holds every mergeable daily metric. A nil field means "no
// new information" and never overwrites a stored value.
type SummaryFields struct {
	Steps           *int     `json:"steps"`
	DistanceKm      *float64 `json:"distance_km"`
	ActiveCalories  *float64 `json:"active_calories"`
	BasalCalories   *float64 `json:"basal_calories"`
	ExerciseMinutes *float64 `json:"exercise_minutes"`
	StandHours      *int     `json:"stand_hours"`
	FlightsClimbed  *int     `json:"flights_climbed"`
	VO2Max          *float64 `json:"vo2_max"`

	RestingHR    *float64 `json:"resting_hr"`
	AvgHR        *float64 `json:"avg_hr"`
	MinHR        *float64 `json:"min_hr"`
	MaxHR        *float64 `json:"max_hr"`
	HRVSDNN      *float64 `json:"hrv_sdnn"`
	WalkingHRAvg *float64 `json:"walking_hr_avg"`

	SleepDurationMin *float64 `json:"sleep_duration_min"`
	DeepSleepMin     *float64 `json:"deep_sleep_min"`
	REMSleepMin      *float64 `json:"rem_sleep_min"`
	CoreSleepMin     *float64 `json:"core_sleep_min"`
	AwakeMin         *float64 `json:"awake_min"`

	WeightKg   *float64 `json:"weight_kg"`
	BMI        *float64 `json:"bmi"`
	BodyFatPct *float64 `json:"body_fat_pct"`

	BodyBattery    *int     `json:"body_battery"`
	MoodAvgValence *float64 `json:"mood_avg_valence"`

	WorkoutCount       *int     `json:"workout_count"`
	WorkoutMinutes     *float64 `json:"workout_minutes"`
	WorkoutCalories    *float64 `json:"workout_calories"`
	MindfulnessMinutes *float64 `json:"mindfulness_minutes"`

	BloodOxygenPct         *float64 `json:"blood_oxygen_pct"`
	RespiratoryRate        *float64 `json:"respiratory_rate"`
	BloodPressureSystolic  *float64 `json:"blood_pressure_systolic"`
	BloodPressureDiastolic *float64 `json:"blood_pressure_diastolic"`
	BodyTemperatureC       *float64 `json:"body_temperature_c"`
}

type DailySummary struct {
	Date string `json:"date"` // YYYY-MM-DD
	SummaryFields
	UpdatedAt string `json:"updated_at"`
}

type WorkoutRecord struct {
	ID             int64    `json:"id"`
	Date           string   `json:"date"`
	WorkoutType    string   `json:"workout_type"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	DurationMin    *float64 `json:"duration_min"`
	DistanceKm     *float64 `json:"distance_km"`
	ActiveCalories *float64 `json:"active_calories"`
	AvgHR          *float64 `json:"avg_hr"`
	MaxHR          *float64 `json:"max_hr"`
	ElevationGainM *float64 `json:"elevation_gain_m"`
	CreatedAt      string   `json:"created_at"`
}

type MoodRecord struct {
	ID           int64    `json:"id"`
	Date         string   `json:"date"`
	Kind         string   `json:"kind"`
	Timestamp    string   `json:"timestamp"`
	Valence      float64  `json:"valence"`
	Labels       []string `json:"labels"`
	Associations []string `json:"associations"`
	CreatedAt    string   `json:"created_at"`
}

type SleepRecord struct {
	ID               int64           `json:"id"`
	Date             string          `json:"date"` // wake-up date
	StartTime        string          `json:"start_time"`
	EndTime          string          `json:"end_time"`
	TotalDurationMin *float64        `json:"total_duration_min"`
	InBedDurationMin *float64        `json:"in_bed_duration_min"`
	Stages           json.RawMessage `json:"stages"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// SyncLogEntry is the archival copy of an accepted payload.
type SyncLogEntry struct {
	ID          int64  `json:"id"`
	DeviceID    string `json:"device_id"`
	SyncedAt    string `json:"synced_at"`
	PeriodFrom  string `json:"period_from"`
	PeriodTo    string `json:"period_to"`
	PayloadJSON string `json:"payload_json"`
}

// ApplySleep sets the sleep fields from a single session. Stage kinds the
// session does not contain stay nil.
func (f *SummaryFields) ApplySleep(totalMin float64, stages []SleepStage) {
	total := totalMin
	f.SleepDurationMin = &total
	f.DeepSleepMin = stageSum(stages, "deep")
	f.REMSleepMin = stageSum(stages, "rem")
	f.CoreSleepMin = stageSum(stages, "core")
	f.AwakeMin = stageSum(stages, "awake")
}

func stageSum(stages []SleepStage, kind string) *float64 {
	var sum float64
	found := false
	for _, st := range stages {
		if strings.EqualFold(st.Stage, kind) {
			sum += st.DurationMin
			found = true
		}
	}
	if !found {
		return nil
	}
	return &sum
}
