package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencyStats_Percentiles(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	for i, ms := range []int{100, 200, 300, 400, 500} {
		stats.Record(time.Duration(ms)*time.Millisecond, i == 4)
	}

	snap := stats.Snapshot()
	assert.Equal(t, 5, snap.Attempts)
	assert.Equal(t, 1, snap.Failures)
	assert.Equal(t, int64(100), snap.MinMs)
	assert.Equal(t, int64(500), snap.MaxMs)
	assert.InDelta(t, 300, snap.AvgMs, 1e-9)
	assert.InDelta(t, 300, snap.P50Ms, 1e-9)
	assert.InDelta(t, 480, snap.P95Ms, 1e-9)
	assert.InDelta(t, 496, snap.P99Ms, 1e-9)
}

func TestLatencyStats_PrunesOutsideWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := NewLatencyStats(time.Minute)
	stats.now = func() time.Time { return now }

	stats.Record(100*time.Millisecond, false)
	now = now.Add(2 * time.Minute)
	assert.Equal(t, StatsSnapshot{}, stats.Snapshot())

	stats.Record(200*time.Millisecond, false)
	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Attempts)
	assert.Equal(t, int64(200), snap.MinMs)
	assert.Equal(t, int64(200), snap.MaxMs)
}

func TestLatencyStats_ClampsNegative(t *testing.T) {
	stats := NewLatencyStats(time.Hour)
	stats.Record(-time.Second, false)
	snap := stats.Snapshot()
	assert.Equal(t, 1, snap.Attempts)
	assert.Equal(t, int64(0), snap.MaxMs)
}

func TestClient_RecordsAttemptStats(t *testing.T) {
	c := New(Config{BaseURL: "http://unused", Retries: 2}, WithSleeper(func(ctx context.Context, d time.Duration) error { return nil }))
	calls := 0
	err := c.retry(context.Background(), EndpointText, func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)

	snap := c.Stats()
	assert.Equal(t, 2, snap.Attempts)
	assert.Equal(t, 1, snap.Failures)
}
