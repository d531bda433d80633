package reset_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/worker/reset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryStore mirrors the transactional marker handling of the database service.
type memoryStore struct {
	mu        sync.Mutex
	marker    time.Month
	hasMarker bool
	totals    map[uint64]int
	resets    int
}

func (s *memoryStore) ResetMonthlyIf(_ context.Context, now time.Time, due func(time.Month) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasMarker {
		s.marker, s.hasMarker = now.Month(), true
		return false, nil
	}

	if !due(s.marker) {
		return false, nil
	}

	for id := range s.totals {
		s.totals[id] = 0
	}

	s.marker = now.Month()
	s.resets++

	return true, nil
}

func (s *memoryStore) ResetMarker(context.Context) (time.Month, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasMarker {
		return 0, types.ErrNotFound
	}

	return s.marker, nil
}

func date(month time.Month, day int) time.Time {
	return time.Date(2025, month, day, 12, 0, 0, 0, time.UTC)
}

func TestShouldReset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		now      time.Time
		marker   time.Month
		expected bool
	}{
		{name: "first day of new month", now: date(time.March, 1), marker: time.February, expected: true},
		{name: "second day of new month", now: date(time.March, 2), marker: time.February, expected: false},
		{name: "first day already reset", now: date(time.March, 1), marker: time.March, expected: false},
		{name: "mid month", now: date(time.March, 15), marker: time.March, expected: false},
		{name: "year rollover", now: date(time.January, 1), marker: time.December, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, reset.ShouldReset(tt.now, tt.marker))
		})
	}
}

func TestIsDueCatchUp(t *testing.T) {
	t.Parallel()

	assert.True(t, reset.IsDue(date(time.March, 3), time.February, true))
	assert.False(t, reset.IsDue(date(time.March, 3), time.March, true))
	assert.False(t, reset.IsDue(date(time.March, 3), time.February, false))
}

func TestApplyIfDueIsIdempotent(t *testing.T) {
	t.Parallel()

	store := &memoryStore{
		marker:    time.February,
		hasMarker: true,
		totals:    map[uint64]int{1: 500, 2: 1200},
	}
	service := reset.NewService(store, time.UTC, zap.NewNop())

	applied, err := service.ApplyIfDue(t.Context(), date(time.March, 1), false)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, map[uint64]int{1: 0, 2: 0}, store.totals)

	store.totals[1] = 300

	applied, err = service.ApplyIfDue(t.Context(), date(time.March, 1).Add(time.Hour), false)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 300, store.totals[1])
	assert.Equal(t, 1, store.resets)

	due, err := service.ShouldReset(t.Context(), date(time.March, 1))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestApplyIfDueCatchesUpAfterDowntime(t *testing.T) {
	t.Parallel()

	store := &memoryStore{marker: time.February, hasMarker: true, totals: map[uint64]int{1: 500}}
	service := reset.NewService(store, time.UTC, zap.NewNop())

	applied, err := service.ApplyIfDue(t.Context(), date(time.March, 4), false)
	require.NoError(t, err)
	assert.False(t, applied, "strict rule only resets on day 1")

	applied, err = service.ApplyIfDue(t.Context(), date(time.March, 4), true)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Zero(t, store.totals[1])
}

func TestMissingMarkerIsInitializedWithoutReset(t *testing.T) {
	t.Parallel()

	store := &memoryStore{totals: map[uint64]int{1: 500}}
	service := reset.NewService(store, time.UTC, zap.NewNop())

	due, err := service.ShouldReset(t.Context(), date(time.March, 1))
	require.NoError(t, err)
	assert.False(t, due)

	applied, err := service.ApplyIfDue(t.Context(), date(time.March, 1), true)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 500, store.totals[1])

	marker, err := store.ResetMarker(t.Context())
	require.NoError(t, err)
	assert.Equal(t, time.March, marker)
}

func TestApplyIfDueUsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	store := &memoryStore{marker: time.February, hasMarker: true, totals: map[uint64]int{1: 500}}
	service := reset.NewService(store, loc, zap.NewNop())

	// 23:00 UTC on the last day of February is already March 1 in UTC+2
	now := time.Date(2025, time.February, 28, 23, 0, 0, 0, time.UTC)

	applied, err := service.ApplyIfDue(t.Context(), now, false)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, time.March, store.marker)
}

func TestNewSchedulerValidatesSpec(t *testing.T) {
	t.Parallel()

	service := reset.NewService(&memoryStore{}, time.UTC, zap.NewNop())

	_, err := reset.NewScheduler(service, "5 0 * * *", zap.NewNop())
	require.NoError(t, err)

	_, err = reset.NewScheduler(service, "not a schedule", zap.NewNop())
	require.Error(t, err)
}

func TestSchedulerRunsCatchUpAtStartup(t *testing.T) {
	t.Parallel()

	nextMonth := time.Now().UTC().Month()%12 + 1
	store := &memoryStore{marker: nextMonth, hasMarker: true, totals: map[uint64]int{1: 500}}
	service := reset.NewService(store, time.UTC, zap.NewNop())

	scheduler, err := reset.NewScheduler(service, "5 0 * * *", zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)

	go func() { done <- scheduler.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.resets == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
