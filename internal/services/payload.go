package services

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"healthbridge-backend/internal/models"
	"healthbridge-backend/internal/validation"
)

// ParseSyncPayload validates a raw sync body and returns the typed payload.
// It has no side effects.
func ParseSyncPayload(body []byte) (*models.SyncPayload, error) {
	var req models.SyncRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, decodeError(err)
	}

	if err := validation.ValidateStruct(&req); err != nil {
		return nil, asValidationError(err)
	}

	p := &models.SyncPayload{
		DeviceID:    req.DeviceID,
		SyncedAt:    mustTime(req.SyncedAt),
		PeriodFrom:  mustTime(req.PeriodFrom),
		PeriodTo:    mustTime(req.PeriodTo),
		Activity:    req.Activity,
		Heart:       req.Heart,
		Body:        req.Body,
		Vitals:      req.Vitals,
		BodyBattery: req.BodyBattery,
		Raw:         append([]byte(nil), body...),
	}

	fields := map[string]string{}
	if p.PeriodTo.Before(p.PeriodFrom) {
		fields["period_to"] = "must not be before period_from"
	}

	for i, s := range req.Sleep {
		session := models.SleepSession{
			Start:            mustTime(s.Start),
			End:              mustTime(s.End),
			TotalDurationMin: *s.TotalDurationMin,
			InBedDurationMin: s.InBedDurationMin,
		}
		if session.End.Before(session.Start) {
			fields[fmt.Sprintf("sleep[%d].end", i)] = "must not be before start"
		}
		for _, st := range s.Stages {
			session.Stages = append(session.Stages, models.SleepStage{
				Stage:       st.Stage,
				Start:       mustTime(st.Start),
				End:         mustTime(st.End),
				DurationMin: *st.DurationMin,
			})
		}
		p.Sleep = append(p.Sleep, session)
	}

	for i, w := range req.Workouts {
		workout := models.Workout{
			WorkoutType:    w.WorkoutType,
			Start:          mustTime(w.Start),
			End:            mustTime(w.End),
			DurationMin:    *w.DurationMin,
			DistanceKm:     w.DistanceKm,
			ActiveCalories: w.ActiveCalories,
			AvgHR:          w.AvgHR,
			MaxHR:          w.MaxHR,
			ElevationGainM: w.ElevationGainM,
		}
		if workout.End.Before(workout.Start) {
			fields[fmt.Sprintf("workouts[%d].end", i)] = "must not be before start"
		}
		p.Workouts = append(p.Workouts, workout)
	}

	for _, m := range req.Mood {
		p.Mood = append(p.Mood, models.MoodEntry{
			Kind:         m.Kind,
			Timestamp:    mustTime(m.Timestamp),
			Valence:      *m.Valence,
			Labels:       m.Labels,
			Associations: m.Associations,
		})
	}

	for _, m := range req.Mindfulness {
		p.Mindfulness = append(p.Mindfulness, models.MindfulnessSession{
			Start:       mustTime(m.Start),
			End:         mustTime(m.End),
			DurationMin: *m.DurationMin,
		})
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return p, nil
}

// mustTime parses a timestamp already accepted by the rfc3339 validator.
func mustTime(s string) time.Time {
	t, _ := validation.ParseTimestamp(s)
	return t
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return &ValidationError{Fields: map[string]string{field: fmt.Sprintf("must be of type %s", typeErr.Type)}}
	}
	return &ValidationError{Fields: map[string]string{"body": "request body is not valid JSON"}}
}
