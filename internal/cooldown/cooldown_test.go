package cooldown_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/cooldown"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu      sync.Mutex
	entries map[snowflake.ID]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[snowflake.ID]time.Time)}
}

func (s *memoryStore) Get(_ context.Context, actorID snowflake.ID) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.entries[actorID]
	if !ok {
		return time.Time{}, types.ErrNotFound
	}

	return at, nil
}

func (s *memoryStore) Start(_ context.Context, actorID snowflake.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[actorID] = at

	return nil
}

func (s *memoryStore) Delete(_ context.Context, actorID snowflake.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, actorID)

	return nil
}

func (s *memoryStore) DeleteStartedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, at := range s.entries {
		if at.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}

	return removed, nil
}

func (s *memoryStore) has(actorID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[actorID]

	return ok
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

const window = 5 * time.Minute

func newGate(store cooldown.Store) (*cooldown.Gate, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)}
	return cooldown.New(store, window, zap.NewNop(), cooldown.WithClock(clock.Now)), clock
}

func TestRecordActionThenCooldown(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	gate, clock := newGate(store)
	actor := snowflake.ID(42)

	recorded, err := gate.RecordAction(t.Context(), actor)
	require.NoError(t, err)
	assert.True(t, recorded)

	active, remaining, err := gate.IsInCooldown(t.Context(), actor)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, window, remaining)

	clock.Advance(2 * time.Minute)

	active, remaining, err = gate.IsInCooldown(t.Context(), actor)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, 3*time.Minute, remaining)

	clock.Advance(3 * time.Minute)

	active, remaining, err = gate.IsInCooldown(t.Context(), actor)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Zero(t, remaining)
	assert.False(t, store.has(actor), "elapsed entry should be purged")
}

func TestRecordActionRefusesActiveWindow(t *testing.T) {
	t.Parallel()

	gate, clock := newGate(newMemoryStore())
	actor := snowflake.ID(7)

	recorded, err := gate.RecordAction(t.Context(), actor)
	require.NoError(t, err)
	require.True(t, recorded)

	recorded, err = gate.RecordAction(t.Context(), actor)
	require.NoError(t, err)
	assert.False(t, recorded)

	clock.Advance(window)

	recorded, err = gate.RecordAction(t.Context(), actor)
	require.NoError(t, err)
	assert.True(t, recorded)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		privileged bool
		preRecord  bool
		advance    time.Duration
		expected   cooldown.Decision
		recorded   bool
	}{
		{
			name:     "first action allowed and recorded",
			expected: cooldown.Decision{Allowed: true},
			recorded: true,
		},
		{
			name:      "action inside window refused",
			preRecord: true,
			advance:   time.Minute,
			expected:  cooldown.Decision{Remaining: 4 * time.Minute},
			recorded:  true,
		},
		{
			name:      "action after window allowed",
			preRecord: true,
			advance:   window + time.Second,
			expected:  cooldown.Decision{Allowed: true},
			recorded:  true,
		},
		{
			name:       "privileged actor bypasses without record",
			privileged: true,
			expected:   cooldown.Decision{Allowed: true, Bypassed: true},
			recorded:   false,
		},
		{
			name:       "privileged actor bypasses active window",
			privileged: true,
			preRecord:  true,
			expected:   cooldown.Decision{Allowed: true, Bypassed: true},
			recorded:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemoryStore()
			gate, clock := newGate(store)
			actor := snowflake.ID(100)

			if tt.preRecord {
				_, err := gate.RecordAction(t.Context(), actor)
				require.NoError(t, err)
			}

			clock.Advance(tt.advance)

			decision, err := gate.Check(t.Context(), actor, tt.privileged)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, decision)
			assert.Equal(t, tt.recorded, store.has(actor))
		})
	}
}

func TestPurge(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	gate, clock := newGate(store)

	_, err := gate.RecordAction(t.Context(), 1)
	require.NoError(t, err)

	clock.Advance(window + time.Minute)

	_, err = gate.RecordAction(t.Context(), 2)
	require.NoError(t, err)

	removed, err := gate.Purge(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.False(t, store.has(1))
	assert.True(t, store.has(2))
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		preRecord bool
		advance   time.Duration
		expected  bool
	}{
		{name: "active window revoked", preRecord: true, advance: time.Minute, expected: true},
		{name: "no entry", expected: false},
		{name: "elapsed window", preRecord: true, advance: window, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemoryStore()
			gate, clock := newGate(store)
			actor := snowflake.ID(9)

			if tt.preRecord {
				_, err := gate.RecordAction(t.Context(), actor)
				require.NoError(t, err)
			}

			clock.Advance(tt.advance)

			revoked, err := gate.Revoke(t.Context(), actor)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, revoked)
			assert.False(t, store.has(actor))

			decision, err := gate.Check(t.Context(), actor, false)
			require.NoError(t, err)
			assert.True(t, decision.Allowed, "a revoked actor can act again at once")
		})
	}
}
