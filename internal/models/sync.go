package models

import (
	"encoding/json"
	"time"
)

// Category blocks are shared between the wire format and the typed payload.
// Every field is independently nullable; an absent block is a nil pointer.

type ActivityData struct {
	Steps             *int     `json:"steps" validate:"omitempty,gte=0"`
	DistanceKm        *float64 `json:"distance_km" validate:"omitempty,gte=0"`
	ActiveCalories    *float64 `json:"active_calories" validate:"omitempty,gte=0"`
	BasalCalories     *float64 `json:"basal_calories" validate:"omitempty,gte=0"`
	ExerciseMinutes   *float64 `json:"exercise_minutes" validate:"omitempty,gte=0"`
	StandHours        *int     `json:"stand_hours" validate:"omitempty,gte=0,lte=24"`
	FlightsClimbed    *int     `json:"flights_climbed" validate:"omitempty,gte=0"`
	VO2Max            *float64 `json:"vo2_max" validate:"omitempty,gte=0"`
	WalkingSpeedKmh   *float64 `json:"walking_speed_kmh" validate:"omitempty,gte=0"`
	WalkingSteadiness *float64 `json:"walking_steadiness" validate:"omitempty,gte=0"`
}

type HeartData struct {
	RestingHR    *float64 `json:"resting_hr" validate:"omitempty,gte=0"`
	AvgHR        *float64 `json:"avg_hr" validate:"omitempty,gte=0"`
	MinHR        *float64 `json:"min_hr" validate:"omitempty,gte=0"`
	MaxHR        *float64 `json:"max_hr" validate:"omitempty,gte=0"`
	HRVSDNN      *float64 `json:"hrv_sdnn" validate:"omitempty,gte=0"`
	WalkingHRAvg *float64 `json:"walking_hr_avg" validate:"omitempty,gte=0"`
}

type BodyData struct {
	WeightKg   *float64 `json:"weight_kg" validate:"omitempty,gt=0"`
	BMI        *float64 `json:"bmi" validate:"omitempty,gt=0"`
	BodyFatPct *float64 `json:"body_fat_pct" validate:"omitempty,gte=0,lte=100"`
	HeightCm   *float64 `json:"height_cm" validate:"omitempty,gt=0"`
}

type VitalsData struct {
	BloodPressureSystolic  *float64 `json:"blood_pressure_systolic" validate:"omitempty,gt=0"`
	BloodPressureDiastolic *float64 `json:"blood_pressure_diastolic" validate:"omitempty,gt=0"`
	BloodOxygenPct         *float64 `json:"blood_oxygen_pct" validate:"omitempty,gte=0,lte=100"`
	RespiratoryRate        *float64 `json:"respiratory_rate" validate:"omitempty,gte=0"`
	BodyTemperatureC       *float64 `json:"body_temperature_c" validate:"omitempty,gt=0"`
}

// SyncRequest is the body of POST /sync as sent by the device.
type SyncRequest struct {
	DeviceID    string                    `json:"device_id" validate:"required"`
	SyncedAt    string                    `json:"synced_at" validate:"required,rfc3339"`
	PeriodFrom  string                    `json:"period_from" validate:"required,rfc3339"`
	PeriodTo    string                    `json:"period_to" validate:"required,rfc3339"`
	Activity    *ActivityData             `json:"activity" validate:"omitempty"`
	Heart       *HeartData                `json:"heart" validate:"omitempty"`
	Body        *BodyData                 `json:"body" validate:"omitempty"`
	Vitals      *VitalsData               `json:"vitals" validate:"omitempty"`
	Sleep       []SleepSessionInput       `json:"sleep" validate:"omitempty,dive"`
	Workouts    []WorkoutInput            `json:"workouts" validate:"omitempty,dive"`
	Mood        []MoodEntryInput          `json:"mood" validate:"omitempty,dive"`
	Mindfulness []MindfulnessSessionInput `json:"mindfulness" validate:"omitempty,dive"`
	BodyBattery *int                      `json:"body_battery" validate:"omitempty,gte=0,lte=100"`
}

type SleepStageInput struct {
	Stage       string   `json:"stage" validate:"required"`
	Start       string   `json:"start" validate:"required,rfc3339"`
	End         string   `json:"end" validate:"required,rfc3339"`
	DurationMin *float64 `json:"duration_min" validate:"required,gte=0"`
}

type SleepSessionInput struct {
	Start            string            `json:"start" validate:"required,rfc3339"`
	End              string            `json:"end" validate:"required,rfc3339"`
	TotalDurationMin *float64          `json:"total_duration_min" validate:"required,gte=0"`
	InBedDurationMin *float64          `json:"in_bed_duration_min" validate:"omitempty,gte=0"`
	Stages           []SleepStageInput `json:"stages" validate:"omitempty,dive"`
}

type WorkoutInput struct {
	WorkoutType    string   `json:"workout_type" validate:"required"`
	Start          string   `json:"start" validate:"required,rfc3339"`
	End            string   `json:"end" validate:"required,rfc3339"`
	DurationMin    *float64 `json:"duration_min" validate:"required,gte=0"`
	DistanceKm     *float64 `json:"distance_km" validate:"omitempty,gte=0"`
	ActiveCalories *float64 `json:"active_calories" validate:"omitempty,gte=0"`
	AvgHR          *float64 `json:"avg_hr" validate:"omitempty,gte=0"`
	MaxHR          *float64 `json:"max_hr" validate:"omitempty,gte=0"`
	ElevationGainM *float64 `json:"elevation_gain_m"`
}

type MoodEntryInput struct {
	Kind         string   `json:"kind" validate:"required"`
	Timestamp    string   `json:"timestamp" validate:"required,rfc3339"`
	Valence      *float64 `json:"valence" validate:"required,gte=-1,lte=1"`
	Labels       []string `json:"labels"`
	Associations []string `json:"associations"`
}

type MindfulnessSessionInput struct {
	Start       string   `json:"start" validate:"required,rfc3339"`
	End         string   `json:"end" validate:"required,rfc3339"`
	DurationMin *float64 `json:"duration_min" validate:"required,gte=0"`
}

// SyncPayload is a validated sync with parsed timestamps.
type SyncPayload struct {
	DeviceID    string
	SyncedAt    time.Time
	PeriodFrom  time.Time
	PeriodTo    time.Time
	Activity    *ActivityData
	Heart       *HeartData
	Body        *BodyData
	Vitals      *VitalsData
	Sleep       []SleepSession
	Workouts    []Workout
	Mood        []MoodEntry
	Mindfulness []MindfulnessSession
	BodyBattery *int

	// Raw is the body as received, archived to sync_log.
	Raw json.RawMessage
}

type SleepStage struct {
	Stage       string    `json:"stage"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DurationMin float64   `json:"duration_min"`
}

type SleepSession struct {
	Start            time.Time
	End              time.Time
	TotalDurationMin float64
	InBedDurationMin *float64
	Stages           []SleepStage
}

type Workout struct {
	WorkoutType    string
	Start          time.Time
	End            time.Time
	DurationMin    float64
	DistanceKm     *float64
	ActiveCalories *float64
	AvgHR          *float64
	MaxHR          *float64
	ElevationGainM *float64
}

type MoodEntry struct {
	Kind         string
	Timestamp    time.Time
	Valence      float64
	Labels       []string
	Associations []string
}

type MindfulnessSession struct {
	Start       time.Time
	End         time.Time
	DurationMin float64
}

// SyncPlan is everything one payload writes, computed before touching storage.
type SyncPlan struct {
	TargetDate string
	Summary    SummaryFields
	Sleep      []*SleepRecord
	Workouts   []*WorkoutRecord
	Mood       []*MoodRecord
}
