// Package notify delivers tracking updates and direct messages to Discord.
package notify

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/xp"
)

var (
	// ErrDeliveryFailure is returned when the target channel or user is unreachable.
	// Callers may treat the destination as gone.
	ErrDeliveryFailure = errors.New("failed to deliver notification")
	// ErrDeliveryTransient is returned for any other failed delivery. The destination is kept.
	ErrDeliveryTransient = errors.New("notification delivery temporarily failed")
)

// Dispatcher sends notifications produced by the tracker.
type Dispatcher interface {
	// SendUpdate posts a progress update to a guild channel.
	SendUpdate(ctx context.Context, channelID snowflake.ID, update Update) error
	// SendDirect sends a plain direct message to a user.
	SendDirect(ctx context.Context, userID snowflake.ID, text string) error
	// GuildOwner returns the owner of a guild.
	GuildOwner(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error)
}

// Update is the payload of a progress notification.
type Update struct {
	SteamID      uint64
	Nickname     string
	OwnerID      snowflake.ID
	Kind         xp.Kind
	Level        int
	XP           int
	Percentage   float64
	RemainingXP  int
	Earned       int
	MonthlyTotal int
}
