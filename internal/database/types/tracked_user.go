package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// TrackedUser holds the stored progress of a tracked Steam profile.
// TotalEarned is the monthly counter and GlobalEarned the lifetime counter.
type TrackedUser struct {
	SteamID      uint64       `bun:",pk"`
	DiscordID    snowflake.ID `bun:",notnull"`
	GuildID      snowflake.ID `bun:",notnull"`
	CurrentLevel int          `bun:",notnull,default:0"`
	CurrentXP    int          `bun:",notnull,default:0"`
	TotalEarned  int          `bun:",notnull,default:0"`
	GlobalEarned int          `bun:",notnull,default:0"`
	CreatedAt    time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
}

// ResetScope selects which counters a reset clears.
type ResetScope int

const (
	// ResetScopeMonthly clears the monthly counter.
	ResetScopeMonthly ResetScope = iota + 1
	// ResetScopeGlobal clears the lifetime counter.
	ResetScopeGlobal
	// ResetScopeBoth clears both counters.
	ResetScopeBoth
)

// String returns the scope name.
func (s ResetScope) String() string {
	switch s {
	case ResetScopeMonthly:
		return "monthly"
	case ResetScopeGlobal:
		return "global"
	case ResetScopeBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Columns returns the counter columns cleared by the scope.
func (s ResetScope) Columns() []string {
	switch s {
	case ResetScopeMonthly:
		return []string{"total_earned"}
	case ResetScopeGlobal:
		return []string{"global_earned"}
	case ResetScopeBoth:
		return []string{"total_earned", "global_earned"}
	default:
		return nil
	}
}

// ProgressUpdate is the counter update applied by one reconcile tick.
type ProgressUpdate struct {
	SteamID uint64
	Level   int
	XP      int
	Earned  int
}
