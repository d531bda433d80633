package queue_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kwservices/xptracker/internal/queue"
	"github.com/kwservices/xptracker/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errRemote = errors.New("remote failure")

// fakeSource resolves numeric raw ids to themselves and records call concurrency.
type fakeSource struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
	gate        chan struct{}
	failRaw     string
	panicRaw    string
}

func (f *fakeSource) enter() func() {
	n := f.inFlight.Add(1)
	for {
		current := f.maxInFlight.Load()
		if n <= current || f.maxInFlight.CompareAndSwap(current, n) {
			break
		}
	}

	f.calls.Add(1)

	if f.gate != nil {
		<-f.gate
	}

	return func() { f.inFlight.Add(-1) }
}

func (f *fakeSource) Resolve(_ context.Context, rawID string) (*stats.Profile, error) {
	defer f.enter()()

	if rawID == f.panicRaw {
		panic("malformed payload")
	}

	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return nil, stats.ErrResolution
	}

	return &stats.Profile{SteamID: id, Nickname: "player" + rawID}, nil
}

func (f *fakeSource) Medals(_ context.Context, steamID uint64, _ string) (*stats.Player, *stats.MedalData, error) {
	defer f.enter()()

	if strconv.FormatUint(steamID, 10) == f.failRaw {
		return nil, nil, errRemote
	}

	return &stats.Player{Name: "player"}, &stats.MedalData{CSGOLevel: 10}, nil
}

func newQueue(source queue.Source, opts ...queue.Option) *queue.Queue {
	opts = append([]queue.Option{queue.WithItemDelay(time.Millisecond)}, opts...)
	return queue.New(source, zap.NewNop(), opts...)
}

func TestDrainProcessesAllOrders(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	q := newQueue(source)
	defer q.Close()

	ids := make([]string, 0, 3)
	for _, raw := range []string{"101", "102", "103"} {
		id, err := q.Enqueue(raw, 1, 2)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.True(t, q.TriggerIfIdle(t.Context()))

	for i, id := range ids {
		result, err := q.Await(t.Context(), id, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, uint64(101+i), result.Order.SteamID)
		require.NotNil(t, result.Report)
		assert.Equal(t, 10, result.Report.Medals.CSGOLevel)
	}

	for _, steamID := range []uint64{101, 102, 103} {
		result, ok := q.ResultFor(steamID)
		require.True(t, ok)
		assert.True(t, result.Success)
	}

	assert.Equal(t, int32(1), source.maxInFlight.Load())
	assert.Equal(t, 0, q.Len())
}

func TestConcurrentTriggersStartOneDrain(t *testing.T) {
	t.Parallel()

	source := &fakeSource{gate: make(chan struct{})}
	q := newQueue(source)

	var ids []string
	for _, raw := range []string{"1", "2", "3"} {
		id, err := q.Enqueue(raw, 1, 2)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.True(t, q.TriggerIfIdle(t.Context()))
	require.Eventually(t, func() bool { return source.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	var (
		started atomic.Int32
		wg      sync.WaitGroup
	)

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q.TriggerIfIdle(t.Context()) {
				started.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, started.Load())
	assert.True(t, q.Draining())

	close(source.gate)

	for _, id := range ids {
		_, err := q.Await(t.Context(), id, time.Second)
		require.NoError(t, err)
	}

	q.Close()
	assert.Equal(t, int32(1), source.maxInFlight.Load())
	assert.False(t, q.Draining())
}

func TestDrainIsolatesFailingItems(t *testing.T) {
	t.Parallel()

	source := &fakeSource{failRaw: "202", panicRaw: "203"}
	q := newQueue(source)
	defer q.Close()

	raws := []string{"201", "202", "203", "not-a-number", "205"}
	ids := make([]string, 0, len(raws))

	for _, raw := range raws {
		id, err := q.Enqueue(raw, 1, 2)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	q.TriggerIfIdle(t.Context())

	results := make([]queue.Result, len(ids))
	for i, id := range ids {
		result, err := q.Await(t.Context(), id, time.Second)
		require.NoError(t, err)
		results[i] = result
	}

	assert.True(t, results[0].Success)
	require.ErrorIs(t, results[1].Err, errRemote)
	require.ErrorIs(t, results[2].Err, queue.ErrCheckPanicked)
	require.ErrorIs(t, results[3].Err, stats.ErrResolution)
	assert.True(t, results[4].Success)

	failed, ok := q.ResultFor(202)
	require.True(t, ok)
	assert.False(t, failed.Success)
}

func TestAwait(t *testing.T) {
	t.Parallel()

	q := newQueue(&fakeSource{})
	defer q.Close()

	_, err := q.Await(t.Context(), "KWS000000000000", time.Millisecond)
	require.ErrorIs(t, err, queue.ErrUnknownCorrelation)

	id, err := q.Enqueue("1", 1, 2)
	require.NoError(t, err)

	_, err = q.Await(t.Context(), id, 10*time.Millisecond)
	require.ErrorIs(t, err, queue.ErrResultTimeout)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = q.Await(ctx, id, time.Second)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, q.Position(id))
}

func TestDedup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		dedup       bool
		expectedLen int
	}{
		{name: "duplicates queued by default", dedup: false, expectedLen: 2},
		{name: "duplicates collapsed", dedup: true, expectedLen: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := newQueue(&fakeSource{}, queue.WithDedup(tt.dedup))
			defer q.Close()

			first, err := q.Enqueue("7", 1, 2)
			require.NoError(t, err)

			second, err := q.Enqueue("7", 3, 4)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedLen, q.Len())
			assert.Equal(t, tt.dedup, first == second)

			pending := q.Pending()
			require.Len(t, pending, tt.expectedLen)
			assert.Equal(t, first, pending[0].CorrelationID)
			assert.EqualValues(t, 1, pending[0].RequestedBy)
		})
	}
}

func TestDedupSharesResult(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	q := newQueue(source, queue.WithDedup(true))
	defer q.Close()

	first, err := q.Enqueue("7", 1, 2)
	require.NoError(t, err)

	second, err := q.Enqueue("7", 3, 4)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.True(t, q.TriggerIfIdle(t.Context()))

	for _, id := range []string{first, second} {
		result, err := q.Await(t.Context(), id, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, uint64(7), result.Order.SteamID)
	}

	assert.Equal(t, int32(2), source.calls.Load(), "one resolve and one medals call")
}

func TestDrainOutlivesTriggerContext(t *testing.T) {
	t.Parallel()

	source := &fakeSource{gate: make(chan struct{})}
	q := newQueue(source)
	defer q.Close()

	id, err := q.Enqueue("5", 1, 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	require.True(t, q.TriggerIfIdle(ctx))
	require.Eventually(t, func() bool { return source.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	// A finished interaction must not abort a drain it started
	cancel()
	close(source.gate)

	result, err := q.Await(t.Context(), id, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCloseStopsDrainBetweenItems(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	q := newQueue(source, queue.WithItemDelay(200*time.Millisecond))

	for _, raw := range []string{"1", "2", "3", "4", "5"} {
		_, err := q.Enqueue(raw, 1, 2)
		require.NoError(t, err)
	}

	require.True(t, q.TriggerIfIdle(context.WithoutCancel(t.Context())))
	require.Eventually(t, func() bool { return source.calls.Load() >= 2 }, time.Second, time.Millisecond)

	start := time.Now()
	q.Close()

	assert.Less(t, time.Since(start), 150*time.Millisecond, "Close must not wait for the whole queue")
	assert.False(t, q.Draining())
	assert.Equal(t, int32(2), source.calls.Load())
	assert.Equal(t, 4, q.Len())
}

func TestCancelledDrainLeavesItemsQueued(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	q := newQueue(source)
	defer q.Close()

	for _, raw := range []string{"1", "2"} {
		_, err := q.Enqueue(raw, 1, 2)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	q.TriggerIfIdle(ctx)
	require.Eventually(t, func() bool { return !q.Draining() }, time.Second, time.Millisecond)

	assert.Equal(t, 2, q.Len())
	assert.Zero(t, source.calls.Load())
}

func TestClosedQueueRejectsOrders(t *testing.T) {
	t.Parallel()

	q := newQueue(&fakeSource{})
	q.Close()

	_, err := q.Enqueue("1", 1, 2)
	require.ErrorIs(t, err, queue.ErrQueueClosed)
	assert.False(t, q.TriggerIfIdle(t.Context()))
}

func TestNewCorrelationID(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for range 100 {
		id := queue.NewCorrelationID()
		assert.Regexp(t, `^KWS[0-9a-f]{12}$`, id)
		seen[id] = struct{}{}
	}

	assert.Len(t, seen, 100)
}
