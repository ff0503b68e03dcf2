package services

import (
	"context"
	"time"

	"healthbridge-backend/internal/cache"
	"healthbridge-backend/internal/logging"
	"healthbridge-backend/internal/metrics"
	"healthbridge-backend/internal/models"
)

type syncStore interface {
	ApplySync(ctx context.Context, entry *models.SyncLogEntry, plan *models.SyncPlan) (int64, error)
}

type SyncService struct {
	store syncStore
	cache cache.Cache
}

func NewSyncService(store syncStore, c cache.Cache) *SyncService {
	if c == nil {
		c = cache.Noop{}
	}
	return &SyncService{store: store, cache: c}
}

// Sync validates, aggregates and commits one payload. A sync id is returned
// only after the whole transaction committed.
func (s *SyncService) Sync(ctx context.Context, body []byte) (int64, error) {
	start := time.Now()
	defer func() { metrics.SyncDuration.Observe(time.Since(start).Seconds()) }()

	payload, err := ParseSyncPayload(body)
	if err != nil {
		metrics.SyncsTotal.WithLabelValues("invalid").Inc()
		return 0, err
	}

	plan, err := BuildSyncPlan(payload)
	if err != nil {
		metrics.SyncsTotal.WithLabelValues("invalid").Inc()
		return 0, &ValidationError{Fields: map[string]string{"body": err.Error()}}
	}

	entry := &models.SyncLogEntry{
		DeviceID:    payload.DeviceID,
		SyncedAt:    timestampOf(payload.SyncedAt),
		PeriodFrom:  timestampOf(payload.PeriodFrom),
		PeriodTo:    timestampOf(payload.PeriodTo),
		PayloadJSON: string(payload.Raw),
	}

	id, err := s.store.ApplySync(ctx, entry, plan)
	if err != nil {
		metrics.SyncsTotal.WithLabelValues("persistence_error").Inc()
		logging.Ctx(ctx).Error().Err(err).Str("device_id", payload.DeviceID).Str("date", plan.TargetDate).Msg("sync rolled back")
		return 0, &PersistenceError{Op: "store sync", Err: err}
	}

	metrics.SyncsTotal.WithLabelValues("ok").Inc()
	metrics.SyncRecords.WithLabelValues("sleep_sessions").Add(float64(len(plan.Sleep)))
	metrics.SyncRecords.WithLabelValues("workouts").Add(float64(len(plan.Workouts)))
	metrics.SyncRecords.WithLabelValues("mood_entries").Add(float64(len(plan.Mood)))

	if err := s.cache.Invalidate(ctx); err != nil {
		// Committed already; cached windows age out by TTL.
		logging.Ctx(ctx).Warn().Err(err).Msg("query cache invalidation failed")
	}

	logging.Ctx(ctx).Info().
		Int64("sync_id", id).
		Str("device_id", payload.DeviceID).
		Str("date", plan.TargetDate).
		Int("sleep", len(plan.Sleep)).
		Int("workouts", len(plan.Workouts)).
		Int("mood", len(plan.Mood)).
		Msg("sync committed")

	return id, nil
}
