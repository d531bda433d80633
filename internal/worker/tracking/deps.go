package tracking

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/stats"
)

// UserStore lists and removes tracked users.
type UserStore interface {
	List(ctx context.Context) ([]*types.TrackedUser, error)
	Delete(ctx context.Context, steamID uint64) error
}

// ChannelStore reads and removes guild tracker channels.
type ChannelStore interface {
	Get(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error)
	Delete(ctx context.Context, guildID snowflake.ID) error
}

// ProgressStore persists one reconcile tick atomically.
type ProgressStore interface {
	ApplyProgress(ctx context.Context, update types.ProgressUpdate) error
}

// Source fetches remote profile state.
type Source interface {
	Resolve(ctx context.Context, rawID string) (*stats.Profile, error)
	Levels(ctx context.Context, steamID uint64) (*stats.Levels, error)
}

// Resetter applies the monthly reset when it is due.
type Resetter interface {
	ApplyIfDue(ctx context.Context, now time.Time, catchUp bool) (bool, error)
}

// Reporter publishes worker status.
type Reporter interface {
	UpdateStatus(task string, progress int)
	SetHealthy(healthy bool)
}

// Observer receives reconcile outcomes.
type Observer interface {
	ObserveReconcile(outcome string, earned int)
	ObserveSweep(users int, duration time.Duration)
}

type noopReporter struct{}

func (noopReporter) UpdateStatus(string, int) {}
func (noopReporter) SetHealthy(bool)          {}

type noopObserver struct{}

func (noopObserver) ObserveReconcile(string, int)    {}
func (noopObserver) ObserveSweep(int, time.Duration) {}
