package tracker

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/cooldown"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/queue"
	"github.com/kwservices/xptracker/internal/stats"
)

// UserStore persists tracked users.
type UserStore interface {
	Create(ctx context.Context, user *types.TrackedUser) error
	Get(ctx context.Context, steamID uint64) (*types.TrackedUser, error)
	Delete(ctx context.Context, steamID uint64) error
	UpdateOwner(ctx context.Context, steamID uint64, owner snowflake.ID) error
	UpdateGuild(ctx context.Context, steamID uint64, guildID snowflake.ID) error
	ResetCounters(ctx context.Context, steamID uint64, scope types.ResetScope) error
	Leaderboard(ctx context.Context, guildID snowflake.ID, limit int) ([]*types.TrackedUser, error)
	Count(ctx context.Context, guildID snowflake.ID) (int, error)
}

// ChannelStore persists the tracker channel of each guild.
type ChannelStore interface {
	Set(ctx context.Context, guildID, channelID snowflake.ID) error
	Get(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error)
}

// AdminModeStore persists the admin mode flag of each guild.
type AdminModeStore interface {
	Get(ctx context.Context, guildID snowflake.ID) (bool, error)
	Set(ctx context.Context, guildID snowflake.ID, enabled bool) error
}

// Profiles looks up remote profile state.
type Profiles interface {
	Resolve(ctx context.Context, rawID string) (*stats.Profile, error)
	Levels(ctx context.Context, steamID uint64) (*stats.Levels, error)
}

// Checks runs on-demand profile checks.
type Checks interface {
	Enqueue(rawID string, requestedBy, channelID snowflake.ID) (string, error)
	TriggerIfIdle(ctx context.Context) bool
	Await(ctx context.Context, correlationID string, timeout time.Duration) (queue.Result, error)
	Position(correlationID string) int
	Len() int
	Pending() []queue.Order
}

// CooldownGate throttles checks per actor.
type CooldownGate interface {
	Check(ctx context.Context, actorID snowflake.ID, privileged bool) (cooldown.Decision, error)
	Revoke(ctx context.Context, actorID snowflake.ID) (bool, error)
}
