package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internwatch/internal/domain"
	"internwatch/internal/poll"
	"internwatch/internal/scrape/types"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordRun_RoundTrip(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	start := time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)
	o := poll.Outcome{
		StartedAt:  start,
		FinishedAt: start.Add(40 * time.Second),
		Listings: []domain.Listing{
			{Role: "Intern", Source: domain.SourceGreenhouseStripe},
			{Role: "Intern", Source: domain.SourceSimplyHired},
		},
		Sources: []poll.SourceResult{
			{Source: domain.SourceGreenhouseStripe, Count: 1, Tier: types.TierAPI},
			{Source: domain.SourceLinkedIn, Tier: types.TierNone, ErrKind: types.KindStatus, Err: errors.New("status 429")},
			{Source: domain.SourceSimplyHired, Count: 1, Tier: types.TierFallback},
		},
		Found: true,
		Err:   errors.New("telegram chunk 1/1: status 502"),
	}
	require.NoError(t, db.RecordRun(ctx, o))

	runs, err := db.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, 2, r.Total)
	assert.True(t, r.Found)
	assert.False(t, r.Delivered)
	assert.Equal(t, poll.StatusDeliveryFailed, r.Status)
	assert.True(t, start.Equal(r.StartedAt))
	assert.Contains(t, r.Error, "502")

	srcs, err := db.RunSources(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, srcs, 3)
	assert.Equal(t, "Greenhouse-Stripe", srcs[0].Source)
	assert.Equal(t, "api", srcs[0].Tier)
	assert.Equal(t, "status", srcs[1].ErrorKind)
	assert.Equal(t, "status 429", srcs[1].Error)
	assert.Equal(t, "fallback", srcs[2].Tier)
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, db.RecordRun(ctx, poll.Outcome{Delivered: true, Found: i%2 == 0}))
	}
	runs, err := db.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Greater(t, runs[0].ID, runs[1].ID)
	assert.Equal(t, poll.StatusDelivered, runs[0].Status)
	assert.Equal(t, poll.StatusNoResults, runs[1].Status)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, Migrate(db.Pool))
	require.NoError(t, Migrate(db.Pool))
}

func TestClose_Nil(t *testing.T) {
	var db *DB
	assert.NoError(t, db.Close())
}
