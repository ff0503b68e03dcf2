package services

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"healthbridge-backend/internal/models"
)

// Dates are the calendar date of a timestamp in the offset the device sent,
// so period_to and sleep end times are compared on the same footing.
func dateOf(t time.Time) string {
	return t.Format(time.DateOnly)
}

func timestampOf(t time.Time) string {
	return t.Format(time.RFC3339)
}

// BuildSyncPlan folds one payload into the summary delta for its period_to
// date plus the detail rows to write. Absent categories leave their summary
// fields nil so the merge keeps whatever is already stored.
func BuildSyncPlan(p *models.SyncPayload) (*models.SyncPlan, error) {
	plan := &models.SyncPlan{TargetDate: dateOf(p.PeriodTo)}
	f := &plan.Summary

	if a := p.Activity; a != nil {
		f.Steps = a.Steps
		f.DistanceKm = a.DistanceKm
		f.ActiveCalories = a.ActiveCalories
		f.BasalCalories = a.BasalCalories
		f.ExerciseMinutes = a.ExerciseMinutes
		f.StandHours = a.StandHours
		f.FlightsClimbed = a.FlightsClimbed
		f.VO2Max = a.VO2Max
	}

	if h := p.Heart; h != nil {
		f.RestingHR = h.RestingHR
		f.AvgHR = h.AvgHR
		f.MinHR = h.MinHR
		f.MaxHR = h.MaxHR
		f.HRVSDNN = h.HRVSDNN
		f.WalkingHRAvg = h.WalkingHRAvg
	}

	if b := p.Body; b != nil {
		f.WeightKg = b.WeightKg
		f.BMI = b.BMI
		f.BodyFatPct = b.BodyFatPct
	}

	if v := p.Vitals; v != nil {
		f.BloodOxygenPct = v.BloodOxygenPct
		f.RespiratoryRate = v.RespiratoryRate
		f.BloodPressureSystolic = v.BloodPressureSystolic
		f.BloodPressureDiastolic = v.BloodPressureDiastolic
		f.BodyTemperatureC = v.BodyTemperatureC
	}

	f.BodyBattery = p.BodyBattery

	if s := longestSessionEnding(p.Sleep, plan.TargetDate); s != nil {
		f.ApplySleep(s.TotalDurationMin, s.Stages)
	}

	f.MoodAvgValence = meanValence(p.Mood)

	if n := len(p.Workouts); n > 0 {
		count := n
		var minutes, calories float64
		hasCalories := false
		for _, w := range p.Workouts {
			minutes += w.DurationMin
			if w.ActiveCalories != nil {
				calories += *w.ActiveCalories
				hasCalories = true
			}
		}
		f.WorkoutCount = &count
		f.WorkoutMinutes = &minutes
		if hasCalories {
			f.WorkoutCalories = &calories
		}
	}

	if len(p.Mindfulness) > 0 {
		var minutes float64
		for _, m := range p.Mindfulness {
			minutes += m.DurationMin
		}
		f.MindfulnessMinutes = &minutes
	}

	for _, s := range p.Sleep {
		stages := s.Stages
		if stages == nil {
			stages = []models.SleepStage{}
		}
		raw, err := json.Marshal(stages)
		if err != nil {
			return nil, fmt.Errorf("encode sleep stages: %w", err)
		}
		total := s.TotalDurationMin
		plan.Sleep = append(plan.Sleep, &models.SleepRecord{
			Date:             dateOf(s.End),
			StartTime:        timestampOf(s.Start),
			EndTime:          timestampOf(s.End),
			TotalDurationMin: &total,
			InBedDurationMin: s.InBedDurationMin,
			Stages:           raw,
		})
	}

	for _, w := range p.Workouts {
		duration := w.DurationMin
		plan.Workouts = append(plan.Workouts, &models.WorkoutRecord{
			Date:           dateOf(w.Start),
			WorkoutType:    w.WorkoutType,
			StartTime:      timestampOf(w.Start),
			EndTime:        timestampOf(w.End),
			DurationMin:    &duration,
			DistanceKm:     w.DistanceKm,
			ActiveCalories: w.ActiveCalories,
			AvgHR:          w.AvgHR,
			MaxHR:          w.MaxHR,
			ElevationGainM: w.ElevationGainM,
		})
	}

	for _, m := range p.Mood {
		plan.Mood = append(plan.Mood, &models.MoodRecord{
			Date:         dateOf(m.Timestamp),
			Kind:         m.Kind,
			Timestamp:    timestampOf(m.Timestamp),
			Valence:      m.Valence,
			Labels:       m.Labels,
			Associations: m.Associations,
		})
	}

	return plan, nil
}

// longestSessionEnding picks the session with the greatest total duration
// among those whose wake-up date is date. On a tie the first one wins.
func longestSessionEnding(sessions []models.SleepSession, date string) *models.SleepSession {
	var chosen *models.SleepSession
	for i := range sessions {
		s := &sessions[i]
		if dateOf(s.End) != date {
			continue
		}
		if chosen == nil || s.TotalDurationMin > chosen.TotalDurationMin {
			chosen = s
		}
	}
	return chosen
}

func meanValence(entries []models.MoodEntry) *float64 {
	if len(entries) == 0 {
		return nil
	}
	var sum float64
	for _, m := range entries {
		sum += m.Valence
	}
	avg := sum / float64(len(entries))
	return &avg
}
