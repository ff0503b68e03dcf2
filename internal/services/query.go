package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"healthbridge-backend/internal/cache"
	"healthbridge-backend/internal/models"
)

const (
	DefaultDays = 7
	MaxDays     = 90
)

type healthReader interface {
	GetDailySummaries(ctx context.Context, since, until string) ([]*models.DailySummary, error)
	GetWorkouts(ctx context.Context, since, until string) ([]*models.WorkoutRecord, error)
	GetMoodEntries(ctx context.Context, since, until string) ([]*models.MoodRecord, error)
	GetSleepSessions(ctx context.Context, since, until string) ([]*models.SleepRecord, error)
}

type QueryService struct {
	store healthReader
	cache cache.Cache
	clock Clock
}

func NewQueryService(store healthReader, c cache.Cache, clock Clock) *QueryService {
	if c == nil {
		c = cache.Noop{}
	}
	return &QueryService{store: store, cache: c, clock: clock}
}

// Clock reports the current calendar date in the configured zone.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Location: loc, Now: time.Now}
}

// Current is the wall-clock time in the configured zone.
func (c Clock) Current() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

func (c Clock) Today() time.Time {
	t := c.Current()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Window returns [today - days, today] as date strings.
func (c Clock) Window(days int) (since, until string) {
	today := c.Today()
	return today.AddDate(0, 0, -days).Format(time.DateOnly), today.Format(time.DateOnly)
}

// ParseDays reads the days query parameter; empty means DefaultDays.
func ParseDays(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultDays, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &BadRequestError{Message: "days must be an integer"}
	}
	if n < 1 || n > MaxDays {
		return 0, &BadRequestError{Message: fmt.Sprintf("days must be between 1 and %d", MaxDays)}
	}
	return n, nil
}

// ParseDate reads a YYYY-MM-DD parameter; empty means today.
func (c Clock) ParseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return c.Today().Format(time.DateOnly), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return "", &BadRequestError{Message: "date must be in YYYY-MM-DD format"}
	}
	return t.Format(time.DateOnly), nil
}

func (q *QueryService) Summaries(ctx context.Context, days int) ([]*models.DailySummary, error) {
	return cachedWindow(ctx, q, "summaries", days, q.store.GetDailySummaries)
}

// Latest is Summaries(1)[0]; nil means there is no data in that window.
func (q *QueryService) Latest(ctx context.Context) (*models.DailySummary, error) {
	summaries, err := q.Summaries(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	return summaries[0], nil
}

func (q *QueryService) Workouts(ctx context.Context, days int) ([]*models.WorkoutRecord, error) {
	return cachedWindow(ctx, q, "workouts", days, q.store.GetWorkouts)
}

func (q *QueryService) Mood(ctx context.Context, days int) ([]*models.MoodRecord, error) {
	return cachedWindow(ctx, q, "mood", days, q.store.GetMoodEntries)
}

func (q *QueryService) Sleep(ctx context.Context, days int) ([]*models.SleepRecord, error) {
	return cachedWindow(ctx, q, "sleep", days, q.store.GetSleepSessions)
}

func cachedWindow[T any](
	ctx context.Context,
	q *QueryService,
	resource string,
	days int,
	load func(ctx context.Context, since, until string) ([]T, error),
) ([]T, error) {
	since, until := q.clock.Window(days)
	key := fmt.Sprintf("%s:%s:%s", resource, since, until)

	var cached []T
	gen, hit := q.cache.Get(ctx, key, &cached)
	if hit {
		return cached, nil
	}

	rows, err := load(ctx, since, until)
	if err != nil {
		return nil, &PersistenceError{Op: "read " + resource, Err: err}
	}
	q.cache.Set(ctx, gen, key, rows)
	return rows, nil
}
