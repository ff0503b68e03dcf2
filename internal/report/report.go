// Package report renders a markdown daily health report from the query API.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"healthbridge-backend/internal/models"
)

// Data is the newest-first input of a report.
type Data struct {
	Summaries []*models.DailySummary
	Workouts  []*models.WorkoutRecord
	Sleep     []*models.SleepRecord
	Mood      []*models.MoodRecord
}

const noValue = "n/a"

func formatValue(v *float64, unit string, decimals int) string {
	if v == nil {
		return noValue
	}
	if decimals == 0 {
		return fmt.Sprintf("%d%s", int(*v), unit)
	}
	return fmt.Sprintf("%.*f%s", decimals, *v, unit)
}

func formatInt(v *int, unit string) string {
	if v == nil {
		return noValue
	}
	return fmt.Sprintf("%d%s", *v, unit)
}

func intToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

// trend compares against the previous day with a 5% dead band.
func trend(current, previous *float64) string {
	if current == nil || previous == nil {
		return ""
	}
	switch {
	case *current > *previous*1.05:
		return " ↑"
	case *current < *previous*0.95:
		return " ↓"
	default:
		return " →"
	}
}

type writer struct {
	w   io.Writer
	err error
}

func (p *writer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

// Render writes the markdown report. now is used only for the title when no
// summary exists.
func Render(w io.Writer, d *Data, now time.Time) error {
	p := &writer{w: w}

	if len(d.Summaries) == 0 {
		p.line("No health data available yet. Waiting for the first sync from the phone.")
		return p.err
	}

	today := d.Summaries[0]
	yesterday := &models.DailySummary{}
	if len(d.Summaries) > 1 {
		yesterday = d.Summaries[1]
	}

	date := today.Date
	if date == "" {
		date = now.Format(time.DateOnly)
	}
	p.line("# Health Report: %s\n", date)

	if bb := today.BodyBattery; bb != nil {
		level := "🔴"
		if *bb >= 70 {
			level = "🟢"
		} else if *bb >= 40 {
			level = "🟡"
		}
		p.line("## %s Body Battery: %d/100\n", level, *bb)
	}

	steps := intToFloat(today.Steps)
	p.line("## 🏃 Activity")
	p.line("- Steps: **%s**%s", formatInt(today.Steps, ""), trend(steps, intToFloat(yesterday.Steps)))
	p.line("- Distance: %s", formatValue(today.DistanceKm, " km", 1))
	p.line("- Active Calories: %s", formatValue(today.ActiveCalories, " kcal", 0))
	p.line("- Exercise: %s", formatValue(today.ExerciseMinutes, " min", 0))
	p.line("- Flights Climbed: %s", formatInt(today.FlightsClimbed, ""))
	p.line("")

	p.line("## ❤️ Heart")
	p.line("- Resting HR: **%s**%s", formatValue(today.RestingHR, " bpm", 0), trend(today.RestingHR, yesterday.RestingHR))
	p.line("- Average HR: %s", formatValue(today.AvgHR, " bpm", 0))
	p.line("- HRV (SDNN): **%s**%s", formatValue(today.HRVSDNN, " ms", 0), trend(today.HRVSDNN, yesterday.HRVSDNN))
	p.line("")

	p.line("## 😴 Sleep")
	if s := today.SleepDurationMin; s != nil && *s > 0 {
		hours := *s / 60
		quality := "🔴 Low"
		if hours >= 7 {
			quality = "🟢 Good"
		} else if hours >= 6 {
			quality = "🟡 Fair"
		}
		p.line("- Duration: **%.1fh** (%s)", hours, quality)
		p.line("- Deep: %s", formatValue(today.DeepSleepMin, " min", 0))
		p.line("- REM: %s", formatValue(today.REMSleepMin, " min", 0))
		p.line("- Core: %s", formatValue(today.CoreSleepMin, " min", 0))
		p.line("- Awake: %s", formatValue(today.AwakeMin, " min", 0))
	} else {
		p.line("- No sleep data for today")
	}
	p.line("")

	renderWorkouts(p, d.Workouts)

	if today.WeightKg != nil && *today.WeightKg > 0 {
		p.line("## ⚖️ Body")
		p.line("- Weight: %s", formatValue(today.WeightKg, " kg", 1))
		if today.BodyFatPct != nil && *today.BodyFatPct > 0 {
			p.line("- Body Fat: %s", formatValue(today.BodyFatPct, "%", 1))
		}
		p.line("")
	}

	if len(d.Mood) > 0 {
		p.line("## 🧠 Mood")
		if v := today.MoodAvgValence; v != nil {
			face := "😔"
			if *v > 0.3 {
				face = "😊"
			} else if *v > -0.3 {
				face = "😐"
			}
			p.line("- Today's mood: %s (valence: %.2f)", face, *v)
		}
		p.line("")
	}

	spo2, rr := positive(today.BloodOxygenPct), positive(today.RespiratoryRate)
	if spo2 || rr {
		p.line("## 🩺 Vitals")
		if spo2 {
			p.line("- SpO₂: %s", formatValue(today.BloodOxygenPct, "%", 1))
		}
		if rr {
			p.line("- Respiratory Rate: %s", formatValue(today.RespiratoryRate, " breaths/min", 1))
		}
		p.line("")
	}

	if alerts := Alerts(today); len(alerts) > 0 {
		p.line("## 🚨 Alerts")
		for _, a := range alerts {
			p.line("- %s", a)
		}
		p.line("")
	}

	if len(d.Summaries) >= 3 {
		renderTrends(p, d.Summaries)
	}

	return p.err
}

func positive(v *float64) bool { return v != nil && *v > 0 }

func renderWorkouts(p *writer, workouts []*models.WorkoutRecord) {
	p.line("## 💪 Workouts (last 7 days)")
	if len(workouts) == 0 {
		p.line("- No workouts recorded")
		p.line("")
		return
	}

	var minutes, calories float64
	for _, w := range workouts {
		if w.DurationMin != nil {
			minutes += *w.DurationMin
		}
		if w.ActiveCalories != nil {
			calories += *w.ActiveCalories
		}
	}
	p.line("- Count: **%d** sessions", len(workouts))
	p.line("- Total time: %s", formatValue(&minutes, " min", 0))
	p.line("- Total calories: %s", formatValue(&calories, " kcal", 0))
	p.line("\nRecent:")
	for i, w := range workouts {
		if i == 5 {
			break
		}
		dist := ""
		if positive(w.DistanceKm) {
			dist = fmt.Sprintf(", %.1f km", *w.DistanceKm)
		}
		p.line("  - %s: %s%s (%s)", w.WorkoutType, formatValue(w.DurationMin, " min", 0), dist, w.Date)
	}
	p.line("")
}

// Alerts flags readings outside the usual ranges for one day.
func Alerts(s *models.DailySummary) []string {
	var alerts []string
	if positive(s.RestingHR) && *s.RestingHR > 80 {
		alerts = append(alerts, "⚠️ Resting HR elevated (>80 bpm)")
	}
	if positive(s.RestingHR) && *s.RestingHR < 40 {
		alerts = append(alerts, "⚠️ Resting HR unusually low (<40 bpm)")
	}
	if positive(s.HRVSDNN) && *s.HRVSDNN < 20 {
		alerts = append(alerts, "⚠️ HRV very low (<20 ms), possible stress or fatigue")
	}
	if positive(s.SleepDurationMin) && *s.SleepDurationMin < 300 {
		alerts = append(alerts, "⚠️ Sleep under 5 hours")
	}
	if s.BodyBattery != nil && *s.BodyBattery < 30 {
		alerts = append(alerts, "⚠️ Body battery critically low")
	}
	if s.Steps != nil && *s.Steps > 0 && *s.Steps < 3000 {
		alerts = append(alerts, "💡 Low step count, try to move more today")
	}
	return alerts
}

func renderTrends(p *writer, summaries []*models.DailySummary) {
	p.line("## 📊 7-Day Trends")

	var steps, sleep, rhr []float64
	workouts := 0
	for _, s := range summaries {
		if s.Steps != nil && *s.Steps > 0 {
			steps = append(steps, float64(*s.Steps))
		}
		if positive(s.SleepDurationMin) {
			sleep = append(sleep, *s.SleepDurationMin)
		}
		if positive(s.RestingHR) {
			rhr = append(rhr, *s.RestingHR)
		}
		if s.WorkoutCount != nil {
			workouts += *s.WorkoutCount
		}
	}

	if avg, ok := mean(steps); ok {
		p.line("- Avg steps: %s", formatValue(&avg, "", 0))
	}
	if avg, ok := mean(sleep); ok {
		p.line("- Avg sleep: %.1fh", avg/60)
	}
	if avg, ok := mean(rhr); ok {
		p.line("- Avg resting HR: %s", formatValue(&avg, " bpm", 0))
	}
	p.line("- Total workouts: %d", workouts)
}

func mean(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

// String renders to a string; convenient for logging and tests.
func String(d *Data, now time.Time) string {
	var b strings.Builder
	_ = Render(&b, d, now)
	return b.String()
}
