package tracker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/cooldown"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/queue"
	"github.com/kwservices/xptracker/internal/stats"
	"github.com/kwservices/xptracker/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	steamID = uint64(76561198000000001)
	owner   = snowflake.ID(100)
	other   = snowflake.ID(200)
	guild   = snowflake.ID(300)
	channel = snowflake.ID(400)

	// otherGuild has a tracker channel of its own.
	otherGuild   = snowflake.ID(500)
	otherChannel = snowflake.ID(600)
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[uint64]types.TrackedUser
}

func newMemoryUsers(users ...types.TrackedUser) *memoryUsers {
	m := &memoryUsers{users: make(map[uint64]types.TrackedUser)}
	for _, u := range users {
		m.users[u.SteamID] = u
	}

	return m
}

func (m *memoryUsers) snapshot() map[uint64]types.TrackedUser {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[uint64]types.TrackedUser, len(m.users))
	for k, v := range m.users {
		out[k] = v
	}

	return out
}

func (m *memoryUsers) Create(_ context.Context, user *types.TrackedUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.SteamID]; ok {
		return types.ErrDuplicateEntry
	}

	m.users[user.SteamID] = *user

	return nil
}

func (m *memoryUsers) Get(_ context.Context, id uint64) (*types.TrackedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, types.ErrNotFound
	}

	return &u, nil
}

func (m *memoryUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return types.ErrNotFound
	}

	delete(m.users, id)

	return nil
}

func (m *memoryUsers) update(id uint64, fn func(*types.TrackedUser)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return types.ErrNotFound
	}

	fn(&u)
	m.users[id] = u

	return nil
}

func (m *memoryUsers) UpdateOwner(_ context.Context, id uint64, newOwner snowflake.ID) error {
	return m.update(id, func(u *types.TrackedUser) { u.DiscordID = newOwner })
}

func (m *memoryUsers) UpdateGuild(_ context.Context, id uint64, g snowflake.ID) error {
	return m.update(id, func(u *types.TrackedUser) { u.GuildID = g })
}

func (m *memoryUsers) ResetCounters(_ context.Context, id uint64, scope types.ResetScope) error {
	return m.update(id, func(u *types.TrackedUser) {
		if scope == types.ResetScopeMonthly || scope == types.ResetScopeBoth {
			u.TotalEarned = 0
		}

		if scope == types.ResetScopeGlobal || scope == types.ResetScopeBoth {
			u.GlobalEarned = 0
		}
	})
}

func (m *memoryUsers) Leaderboard(_ context.Context, g snowflake.ID, limit int) ([]*types.TrackedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*types.TrackedUser
	for _, u := range m.users {
		if g == 0 || u.GuildID == g {
			out = append(out, &u)
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (m *memoryUsers) Count(ctx context.Context, g snowflake.ID) (int, error) {
	users, err := m.Leaderboard(ctx, g, 1<<30)
	return len(users), err
}

type memoryChannels struct {
	channels map[snowflake.ID]snowflake.ID
}

func (m *memoryChannels) Set(_ context.Context, g, c snowflake.ID) error {
	m.channels[g] = c
	return nil
}

func (m *memoryChannels) Get(_ context.Context, g snowflake.ID) (snowflake.ID, error) {
	c, ok := m.channels[g]
	if !ok {
		return 0, types.ErrNotFound
	}

	return c, nil
}

type memoryAdminModes struct {
	modes map[snowflake.ID]bool
}

func (m *memoryAdminModes) Get(_ context.Context, g snowflake.ID) (bool, error) {
	enabled, ok := m.modes[g]
	if !ok {
		return false, types.ErrAdminModeUnset
	}

	return enabled, nil
}

func (m *memoryAdminModes) Set(_ context.Context, g snowflake.ID, enabled bool) error {
	m.modes[g] = enabled
	return nil
}

type fakeProfiles struct{}

func (fakeProfiles) Resolve(_ context.Context, rawID string) (*stats.Profile, error) {
	if rawID == "invalid" {
		return nil, stats.ErrResolution
	}

	return &stats.Profile{SteamID: steamID, Nickname: "player"}, nil
}

func (fakeProfiles) Levels(context.Context, uint64) (*stats.Levels, error) {
	return &stats.Levels{Level: 10, XP: 1000, RemainingXP: 4000}, nil
}

type fakeChecks struct {
	enqueued []string
	triggers int
}

func (f *fakeChecks) Enqueue(rawID string, _, _ snowflake.ID) (string, error) {
	f.enqueued = append(f.enqueued, rawID)
	return "KWS000000000001", nil
}

func (f *fakeChecks) TriggerIfIdle(context.Context) bool {
	f.triggers++
	return true
}

func (f *fakeChecks) Await(context.Context, string, time.Duration) (queue.Result, error) {
	return queue.Result{Success: true}, nil
}

func (f *fakeChecks) Position(string) int { return 1 }
func (f *fakeChecks) Len() int { return len(f.enqueued) }

func (f *fakeChecks) Pending() []queue.Order {
	orders := make([]queue.Order, 0, len(f.enqueued))
	for _, rawID := range f.enqueued {
		orders = append(orders, queue.Order{RawID: rawID})
	}

	return orders
}

type fakeCooldowns struct {
	decision cooldown.Decision
}

func (f fakeCooldowns) Check(context.Context, snowflake.ID, bool) (cooldown.Decision, error) {
	return f.decision, nil
}

// Revoke reports an active window whenever checks are being refused.
func (f fakeCooldowns) Revoke(context.Context, snowflake.ID) (bool, error) {
	return !f.decision.Allowed, nil
}

type fixture struct {
	service  *tracker.Service
	users    *memoryUsers
	channels *memoryChannels
	modes    *memoryAdminModes
	checks   *fakeChecks
}

func newFixture(decision cooldown.Decision, users ...types.TrackedUser) *fixture {
	f := &fixture{
		users:    newMemoryUsers(users...),
		channels: &memoryChannels{channels: map[snowflake.ID]snowflake.ID{guild: channel, otherGuild: otherChannel}},
		modes:    &memoryAdminModes{modes: map[snowflake.ID]bool{guild: false}},
		checks:   &fakeChecks{},
	}

	f.service = tracker.New(tracker.Dependencies{
		Users:         f.users,
		Channels:      f.channels,
		AdminModes:    f.modes,
		Profiles:      fakeProfiles{},
		Checks:        f.checks,
		Cooldowns:     fakeCooldowns{decision: decision},
		ResultTimeout: time.Second,
		Logger:        zap.NewNop(),
	})

	return f
}

func trackedUser() types.TrackedUser {
	return types.TrackedUser{
		SteamID:      steamID,
		DiscordID:    owner,
		GuildID:      guild,
		CurrentLevel: 10,
		CurrentXP:    1000,
		TotalEarned:  300,
		GlobalEarned: 900,
	}
}

func TestOwnershipGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		apply func(ctx context.Context, s *tracker.Service, requester snowflake.ID) error
	}{
		{
			name: "change guild",
			apply: func(ctx context.Context, s *tracker.Service, requester snowflake.ID) error {
				return s.ChangeGuild(ctx, steamID, requester, otherGuild)
			},
		},
		{
			name: "change owner",
			apply: func(ctx context.Context, s *tracker.Service, requester snowflake.ID) error {
				return s.ChangeOwner(ctx, steamID, requester, other)
			},
		},
		{
			name: "reset counters",
			apply: func(ctx context.Context, s *tracker.Service, requester snowflake.ID) error {
				return s.ResetCounters(ctx, steamID, requester, types.ResetScopeBoth)
			},
		},
		{
			name: "remove",
			apply: func(ctx context.Context, s *tracker.Service, requester snowflake.ID) error {
				return s.RemoveTrackedUser(ctx, steamID, requester, guild, false)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" by non-owner", func(t *testing.T) {
			t.Parallel()

			f := newFixture(cooldown.Decision{Allowed: true}, trackedUser())
			before := f.users.snapshot()

			err := tt.apply(t.Context(), f.service, other)
			require.ErrorIs(t, err, tracker.ErrUnauthorized)
			assert.Equal(t, before, f.users.snapshot())
		})

		t.Run(tt.name+" by owner", func(t *testing.T) {
			t.Parallel()

			f := newFixture(cooldown.Decision{Allowed: true}, trackedUser())
			before := f.users.snapshot()

			require.NoError(t, tt.apply(t.Context(), f.service, owner))
			assert.NotEqual(t, before, f.users.snapshot())
		})
	}
}

func TestChangeGuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		target        snowflake.ID
		expectedErr   error
		expectedGuild snowflake.ID
	}{
		{name: "guild with tracker channel", target: otherGuild, expectedGuild: otherGuild},
		{name: "guild without tracker channel", target: 555, expectedErr: tracker.ErrChannelNotSet, expectedGuild: guild},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(cooldown.Decision{Allowed: true}, trackedUser())

			err := f.service.ChangeGuild(t.Context(), steamID, owner, tt.target)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}

			user, err := f.users.Get(t.Context(), steamID)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedGuild, user.GuildID)
			assert.Equal(t, 900, user.GlobalEarned)
		})
	}
}

func TestMissingUser(t *testing.T) {
	t.Parallel()

	f := newFixture(cooldown.Decision{Allowed: true})

	require.ErrorIs(t, f.service.ChangeOwner(t.Context(), steamID, owner, other), types.ErrNotFound)

	_, err := f.service.Earned(t.Context(), steamID, owner)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestAddTrackedUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		rawID       string
		adminMode   *bool
		privileged  bool
		unsetAdmin  bool
		noChannel   bool
		existing    bool
		expectedErr error
	}{
		{name: "adds user", rawID: "player"},
		{name: "admin mode allows privileged", rawID: "player", adminMode: ptr(true), privileged: true},
		{name: "admin mode refuses others", rawID: "player", adminMode: ptr(true), expectedErr: tracker.ErrUnauthorized},
		{name: "admin mode unset", rawID: "player", unsetAdmin: true, expectedErr: types.ErrAdminModeUnset},
		{name: "no tracker channel", rawID: "player", noChannel: true, expectedErr: tracker.ErrChannelNotSet},
		{name: "duplicate", rawID: "player", existing: true, expectedErr: types.ErrDuplicateEntry},
		{name: "unresolvable id", rawID: "invalid", expectedErr: stats.ErrResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var users []types.TrackedUser
			if tt.existing {
				users = append(users, trackedUser())
			}

			f := newFixture(cooldown.Decision{Allowed: true}, users...)

			if tt.adminMode != nil {
				f.modes.modes[guild] = *tt.adminMode
			}

			if tt.unsetAdmin {
				delete(f.modes.modes, guild)
			}

			if tt.noChannel {
				delete(f.channels.channels, guild)
			}

			user, err := f.service.AddTrackedUser(t.Context(), tracker.AddRequest{
				RawID:      tt.rawID,
				Owner:      owner,
				Guild:      guild,
				Privileged: tt.privileged,
			})
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, steamID, user.SteamID)
			assert.Equal(t, 10, user.CurrentLevel)
			assert.Equal(t, 1000, user.CurrentXP)
			assert.Zero(t, user.TotalEarned)

			stored, err := f.users.Get(t.Context(), steamID)
			require.NoError(t, err)
			assert.Equal(t, owner, stored.DiscordID)
		})
	}
}

func TestEnqueueCheck(t *testing.T) {
	t.Parallel()

	t.Run("allowed check is queued and triggered", func(t *testing.T) {
		t.Parallel()

		f := newFixture(cooldown.Decision{Allowed: true})

		id, err := f.service.EnqueueCheck(t.Context(), tracker.CheckRequest{RawID: "player", Requester: owner, Channel: channel})
		require.NoError(t, err)
		assert.Equal(t, "KWS000000000001", id)
		assert.Equal(t, []string{"player"}, f.checks.enqueued)
		assert.Equal(t, 1, f.checks.triggers)
		assert.Equal(t, 1, f.service.QueueLength())
		assert.Equal(t, []queue.Order{{RawID: "player"}}, f.service.PendingChecks())
	})

	t.Run("cooldown refuses check", func(t *testing.T) {
		t.Parallel()

		f := newFixture(cooldown.Decision{Remaining: 90 * time.Second})

		_, err := f.service.EnqueueCheck(t.Context(), tracker.CheckRequest{RawID: "player", Requester: owner, Channel: channel})
		require.ErrorIs(t, err, tracker.ErrOnCooldown)

		var cooldownErr *tracker.CooldownError
		require.ErrorAs(t, err, &cooldownErr)
		assert.Equal(t, 90*time.Second, cooldownErr.Remaining)
		assert.Empty(t, f.checks.enqueued)

		revoked, err := f.service.RevokeCooldown(t.Context(), owner)
		require.NoError(t, err)
		assert.True(t, revoked)
	})
}

func TestEarnedReturnsCounters(t *testing.T) {
	t.Parallel()

	f := newFixture(cooldown.Decision{Allowed: true}, trackedUser())

	user, err := f.service.Earned(t.Context(), steamID, owner)
	require.NoError(t, err)
	assert.Equal(t, 300, user.TotalEarned)
	assert.Equal(t, 900, user.GlobalEarned)

	require.NoError(t, f.service.ResetCounters(t.Context(), steamID, owner, types.ResetScopeMonthly))

	user, err = f.service.Earned(t.Context(), steamID, owner)
	require.NoError(t, err)
	assert.Zero(t, user.TotalEarned)
	assert.Equal(t, 900, user.GlobalEarned)
}

func ptr[T any](v T) *T {
	return &v
}
