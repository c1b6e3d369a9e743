package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelrocket/pulse/internal/store"
	"github.com/reelrocket/pulse/internal/testutil"
)

func TestWatchedJobs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	st := store.New(db)

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertWatchedJob("vid-1", "My reel", created))
	require.NoError(t, st.UpsertWatchedJob("vid-2", "", created.Add(time.Minute)))

	// Upsert on an existing id refreshes the label, no duplicate row.
	require.NoError(t, st.UpsertWatchedJob("vid-1", "Renamed", created))

	jobs, err := st.ListWatchedJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	// Newest first.
	assert.Equal(t, "vid-2", jobs[0].JobID)
	assert.Equal(t, "Renamed", jobs[1].Label)

	require.NoError(t, st.UpdateWatchedJobSnapshot("vid-1", 60, "Stitching video", ""))
	jobs, err = st.ListWatchedJobs()
	require.NoError(t, err)
	assert.Equal(t, 60, jobs[1].LastPercent)
	assert.Equal(t, "Stitching video", jobs[1].LastPhase)
	assert.Nil(t, jobs[1].CompletedAt)

	done := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.MarkWatchedJobCompleted("vid-1", done))
	// A second completion stamp does not move the timestamp.
	require.NoError(t, st.MarkWatchedJobCompleted("vid-1", done.Add(time.Hour)))

	jobs, err = st.ListWatchedJobs()
	require.NoError(t, err)
	require.NotNil(t, jobs[1].CompletedAt)
	assert.True(t, jobs[1].CompletedAt.Equal(done))

	pruned, err := st.PruneCompletedBefore(done.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	require.NoError(t, st.RemoveWatchedJob("vid-2"))
	jobs, err = st.ListWatchedJobs()
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestPaymentAttempts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	st := store.New(db)

	id, err := st.RecordPaymentAttempt("o1", "Pro", "monthly", 3900)
	require.NoError(t, err)
	require.NotZero(t, id)

	attempts, err := st.ListPaymentAttempts()
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "pending", attempts[0].Status)
	assert.Equal(t, int64(3900), attempts[0].Amount)
	assert.Nil(t, attempts[0].SettledAt)

	settled := time.Now()
	require.NoError(t, st.SettlePaymentAttempt(id, "paid", settled))

	attempts, err = st.ListPaymentAttempts()
	require.NoError(t, err)
	assert.Equal(t, "paid", attempts[0].Status)
	require.NotNil(t, attempts[0].SettledAt)
}
