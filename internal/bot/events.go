package bot

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/notify"
	"go.uber.org/zap"
)

const eventTimeout = 30 * time.Second

// onReady seeds the guild set with every guild in the ready payload.
func (b *Bot) onReady(event *events.Ready) {
	ids := make([]snowflake.ID, 0, len(event.Guilds))
	for _, guild := range event.Guilds {
		ids = append(ids, guild.ID)
	}

	b.guilds.Reset(ids)
	b.logger.Info("Gateway ready", zap.Int("guilds", len(ids)))
}

func (b *Bot) onGuildReady(event *events.GuildReady) {
	b.guilds.Add(event.GuildID)
}

// onGuildJoin sends the setup instructions to the owner of a new guild.
func (b *Bot) onGuildJoin(event *events.GuildJoin) {
	b.guilds.Add(event.GuildID)

	b.logger.Info("Joined guild",
		zap.Uint64("guildID", uint64(event.GuildID)),
		zap.String("name", event.Guild.Name))

	go func() {
		ctx, cancel := context.WithTimeout(b.ctx, eventTimeout)
		defer cancel()

		notify.DirectBestEffort(ctx, b.dispatcher, b.logger, event.Guild.OwnerID, setupText)
	}()
}

// onGuildLeave drops the tracker channel and cached leaderboard of a guild.
func (b *Bot) onGuildLeave(event *events.GuildLeave) {
	b.guilds.Remove(event.GuildID)

	go func() {
		ctx, cancel := context.WithTimeout(b.ctx, eventTimeout)
		defer cancel()

		if err := b.mappings.Delete(ctx, event.GuildID); err != nil {
			b.logger.Error("Failed to delete guild mapping",
				zap.Error(err),
				zap.Uint64("guildID", uint64(event.GuildID)))
		}

		if err := b.cache.Forget(ctx, event.GuildID); err != nil {
			b.logger.Warn("Failed to forget leaderboard message",
				zap.Error(err),
				zap.Uint64("guildID", uint64(event.GuildID)))
		}

		b.logger.Info("Left guild", zap.Uint64("guildID", uint64(event.GuildID)))
	}()
}
