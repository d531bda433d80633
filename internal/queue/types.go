package queue

import (
	"context"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/kwservices/xptracker/internal/stats"
)

// CorrelationPrefix starts every generated correlation id.
const CorrelationPrefix = "KWS"

// Order is a pending profile check.
type Order struct {
	// SteamID is the canonical id, zero until resolved.
	SteamID uint64
	// RawID is the identifier as typed by the requester.
	RawID string
	// CorrelationID associates the order with its result and generated image.
	CorrelationID string
	// RequestedBy is the actor who requested the check.
	RequestedBy snowflake.ID
	// ChannelID is where the result is rendered.
	ChannelID snowflake.ID
}

// Result is the outcome of a processed order.
type Result struct {
	Order    Order
	Success  bool
	Report   *stats.Report
	Err      error
	Duration time.Duration
}

// Source performs the remote lookups of a check.
type Source interface {
	Resolve(ctx context.Context, rawID string) (*stats.Profile, error)
	Medals(ctx context.Context, steamID uint64, correlationID string) (*stats.Player, *stats.MedalData, error)
}

// Observer receives queue measurements.
type Observer interface {
	ObserveCheck(success bool, duration time.Duration)
	SetQueueDepth(depth int)
}

type noopObserver struct{}

func (noopObserver) ObserveCheck(bool, time.Duration) {}
func (noopObserver) SetQueueDepth(int)                {}

// NewCorrelationID returns a new "KWS" prefixed id with 12 random hex characters.
func NewCorrelationID() string {
	return CorrelationPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// waiterRetention is how long a completed result stays readable by Await.
const waiterRetention = 10 * time.Minute

// waiter is completed exactly once when its order has been processed.
type waiter struct {
	done        chan struct{}
	result      Result
	completedAt time.Time
}
