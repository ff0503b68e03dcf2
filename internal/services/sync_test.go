package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthbridge-backend/internal/cache"
	"healthbridge-backend/internal/database"
	"healthbridge-backend/internal/models"
	"healthbridge-backend/internal/repository"
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

func newTestRepo(t *testing.T) *repository.HealthRepo {
	return repository.NewHealthRepo(newTestDB(t))
}

func syncBody(date, extra string) []byte {
	return []byte(fmt.Sprintf(`{
		"device_id": "iphone",
		"synced_at": "%[1]sT21:00:00Z",
		"period_from": "%[1]sT00:00:00Z",
		"period_to": "%[1]sT21:00:00Z"%[2]s
	}`, date, extra))
}

type recordingCache struct {
	invalidations int
}

func (c *recordingCache) Get(ctx context.Context, key string, dest any) (cache.Generation, bool) {
	return 0, false
}
func (c *recordingCache) Set(ctx context.Context, gen cache.Generation, key string, value any) {}
func (c *recordingCache) Invalidate(ctx context.Context) error {
	c.invalidations++
	return nil
}

func TestSync_FieldwiseMerge(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	c := &recordingCache{}
	svc := NewSyncService(repo, c)

	id1, err := svc.Sync(ctx, syncBody("2025-03-02", `, "activity": {"steps": 8000}`))
	require.NoError(t, err)
	id2, err := svc.Sync(ctx, syncBody("2025-03-02", `, "heart": {"resting_hr": 55}`))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
	assert.Equal(t, 2, c.invalidations)

	s, err := repo.GetDailySummary(ctx, "2025-03-02")
	require.NoError(t, err)
	require.NotNil(t, s.Steps)
	assert.Equal(t, 8000, *s.Steps)
	require.NotNil(t, s.RestingHR)
	assert.Equal(t, 55.0, *s.RestingHR)
}

func TestSync_OrderAcrossDatesDoesNotMatter(t *testing.T) {
	ctx := context.Background()
	a := syncBody("2025-03-01", `, "activity": {"steps": 1000}`)
	b := syncBody("2025-03-02", `, "activity": {"steps": 2000}`)

	read := func(first, second []byte) []*models.DailySummary {
		repo := newTestRepo(t)
		svc := NewSyncService(repo, nil)
		_, err := svc.Sync(ctx, first)
		require.NoError(t, err)
		_, err = svc.Sync(ctx, second)
		require.NoError(t, err)
		out, err := repo.GetDailySummaries(ctx, "2025-03-01", "2025-03-02")
		require.NoError(t, err)
		for _, s := range out {
			s.UpdatedAt = ""
		}
		return out
	}

	assert.Equal(t, read(a, b), read(b, a))
}

func TestSync_ShorterSleepFromSecondDeviceKeepsLongest(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewSyncService(repo, nil)

	_, err := svc.Sync(ctx, syncBody("2025-03-02", `, "sleep": [
		{"start": "2025-03-01T23:00:00Z", "end": "2025-03-02T06:00:00Z", "total_duration_min": 420}]`))
	require.NoError(t, err)
	_, err = svc.Sync(ctx, syncBody("2025-03-02", `, "sleep": [
		{"start": "2025-03-02T13:00:00Z", "end": "2025-03-02T14:30:00Z", "total_duration_min": 90}]`))
	require.NoError(t, err)

	s, err := repo.GetDailySummary(ctx, "2025-03-02")
	require.NoError(t, err)
	require.NotNil(t, s.SleepDurationMin)
	assert.Equal(t, 420.0, *s.SleepDurationMin)
}

func TestSync_InvalidPayloadWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewSyncService(repo, nil)

	_, err := svc.Sync(ctx, []byte(`{"device_id": "", "activity": {"steps": 5}}`))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))

	out, err := repo.GetDailySummaries(ctx, "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	assert.Empty(t, out)
}

type failingStore struct{}

func (failingStore) ApplySync(ctx context.Context, entry *models.SyncLogEntry, plan *models.SyncPlan) (int64, error) {
	return 0, errors.New("disk full")
}

func TestSync_StoreFailureIsPersistenceError(t *testing.T) {
	c := &recordingCache{}
	svc := NewSyncService(failingStore{}, c)

	_, err := svc.Sync(context.Background(), syncBody("2025-03-02", `, "activity": {"steps": 1}`))
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 0, c.invalidations)
}
