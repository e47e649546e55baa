package cursor

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/ludotheque/ludotheque/pkg/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testJob = "catalog_sync"

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestService(t *testing.T, now time.Time) *Service {
	t.Helper()
	svc := NewService(setupTestDB(t))
	svc.now = func() time.Time { return now }
	return svc
}

func TestService_ShouldRun(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	t.Run("runs when the job has never completed", func(t *testing.T) {
		svc := newTestService(t, now)

		d, err := svc.ShouldRun(ctx, testJob, 24*time.Hour, false)
		require.NoError(t, err)
		assert.True(t, d.Run)
		assert.Equal(t, ReasonNeverRun, d.Reason)
		assert.Nil(t, d.LastRun)
	})

	t.Run("waits until the interval has elapsed", func(t *testing.T) {
		svc := newTestService(t, now)
		require.NoError(t, svc.Commit(ctx, testJob, now.Add(-20*time.Hour)))

		d, err := svc.ShouldRun(ctx, testJob, 24*time.Hour, false)
		require.NoError(t, err)
		assert.False(t, d.Run)
		assert.Equal(t, ReasonIntervalWait, d.Reason)
		assert.Equal(t, 4*time.Hour, d.WaitRemaining)
		require.NotNil(t, d.LastRun)
		assert.True(t, d.LastRun.Equal(now.Add(-20*time.Hour)))
	})

	t.Run("runs once the interval has elapsed", func(t *testing.T) {
		svc := newTestService(t, now)
		require.NoError(t, svc.Commit(ctx, testJob, now.Add(-25*time.Hour)))

		d, err := svc.ShouldRun(ctx, testJob, 24*time.Hour, false)
		require.NoError(t, err)
		assert.True(t, d.Run)
		assert.Equal(t, ReasonIntervalDue, d.Reason)
	})

	t.Run("force bypasses the interval", func(t *testing.T) {
		svc := newTestService(t, now)
		require.NoError(t, svc.Commit(ctx, testJob, now.Add(-time.Minute)))

		d, err := svc.ShouldRun(ctx, testJob, 24*time.Hour, true)
		require.NoError(t, err)
		assert.True(t, d.Run)
		assert.Equal(t, ReasonForced, d.Reason)
	})
}

func TestService_Window(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	lookback := 365 * 24 * time.Hour

	t.Run("bootstraps without a watermark", func(t *testing.T) {
		svc := newTestService(t, now)

		w, err := svc.Window(ctx, testJob, lookback, false, now)
		require.NoError(t, err)
		assert.True(t, w.Bootstrap)
		assert.True(t, w.From.Equal(now.Add(-lookback)))
		assert.True(t, w.To.Equal(now))
	})

	t.Run("starts at the watermark", func(t *testing.T) {
		svc := newTestService(t, now)
		watermark := now.Add(-48 * time.Hour)
		require.NoError(t, svc.Commit(ctx, testJob, watermark))

		w, err := svc.Window(ctx, testJob, lookback, false, now)
		require.NoError(t, err)
		assert.False(t, w.Bootstrap)
		assert.True(t, w.From.Equal(watermark))
	})

	t.Run("re-bootstraps an empty catalog despite a watermark", func(t *testing.T) {
		svc := newTestService(t, now)
		require.NoError(t, svc.Commit(ctx, testJob, now.Add(-time.Hour)))

		w, err := svc.Window(ctx, testJob, lookback, true, now)
		require.NoError(t, err)
		assert.True(t, w.Bootstrap)
		assert.True(t, w.From.Equal(now.Add(-lookback)))
	})
}

func TestService_Commit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)

	require.NoError(t, svc.Commit(ctx, testJob, now.Add(-time.Hour)))
	require.NoError(t, svc.Commit(ctx, testJob, now))

	c, err := svc.Retrieve(ctx, testJob)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.Watermark.Equal(now))

	count, err := svc.db.NewSelect().Table("sync_cursors").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLocker(t *testing.T) {
	l := NewLocker()

	unlock, ok := l.TryLock(testJob)
	require.True(t, ok)

	_, ok = l.TryLock(testJob)
	assert.False(t, ok)

	other, ok := l.TryLock("another_job")
	require.True(t, ok)
	other()

	unlock()
	unlock()

	again, ok := l.TryLock(testJob)
	require.True(t, ok)
	again()
}

func TestLocker_Concurrent(t *testing.T) {
	l := NewLocker()
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := l.TryLock(testJob); ok {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, acquired)
}
