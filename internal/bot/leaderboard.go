package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	leaderboardKeyPrefix = "leaderboard:message:"
	leaderboardColor     = 0xF1C40F
)

// LeaderboardCache stores the id of the posted leaderboard message per guild.
type LeaderboardCache struct {
	client rueidis.Client
}

// NewLeaderboardCache creates a cache on the given Redis client.
func NewLeaderboardCache(client rueidis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

func leaderboardKey(guildID snowflake.ID) string {
	return leaderboardKeyPrefix + guildID.String()
}

// MessageID returns the cached message id of a guild's leaderboard.
func (c *LeaderboardCache) MessageID(ctx context.Context, guildID snowflake.ID) (snowflake.ID, bool, error) {
	value, err := c.client.Do(ctx, c.client.B().Get().Key(leaderboardKey(guildID)).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, false, nil
		}

		return 0, false, fmt.Errorf("failed to get leaderboard message: %w", err)
	}

	id, err := snowflake.Parse(value)
	if err != nil {
		return 0, false, fmt.Errorf("invalid leaderboard message id %q: %w", value, err)
	}

	return id, true, nil
}

// SetMessageID stores the message id of a guild's leaderboard.
func (c *LeaderboardCache) SetMessageID(ctx context.Context, guildID, messageID snowflake.ID) error {
	cmd := c.client.B().Set().Key(leaderboardKey(guildID)).Value(messageID.String()).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to store leaderboard message: %w", err)
	}

	return nil
}

// Forget removes the cached message id of a guild.
func (c *LeaderboardCache) Forget(ctx context.Context, guildID snowflake.ID) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(leaderboardKey(guildID)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to forget leaderboard message: %w", err)
	}

	return nil
}

// LeaderboardSource returns the top tracked users of a guild.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, guild snowflake.ID, limit int) ([]*types.TrackedUser, error)
}

// MessageClient creates and edits channel messages.
type MessageClient interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
	UpdateMessage(
		channelID, messageID snowflake.ID, messageUpdate discord.MessageUpdate, opts ...rest.RequestOpt,
	) (*discord.Message, error)
}

// LeaderboardPoster keeps one leaderboard message per tracker channel up to date.
type LeaderboardPoster struct {
	source   LeaderboardSource
	mappings GuildMappings
	messages MessageClient
	cache    *LeaderboardCache
	size     int
	group    singleflight.Group
	now      func() time.Time
	logger   *zap.Logger
}

// NewLeaderboardPoster creates a leaderboard poster.
func NewLeaderboardPoster(
	source LeaderboardSource, mappings GuildMappings, messages MessageClient,
	cache *LeaderboardCache, size int, logger *zap.Logger,
) *LeaderboardPoster {
	return &LeaderboardPoster{
		source:   source,
		mappings: mappings,
		messages: messages,
		cache:    cache,
		size:     size,
		now:      time.Now,
		logger:   logger.Named("leaderboard"),
	}
}

// RefreshAll refreshes the leaderboard of every guild with a tracker channel.
func (p *LeaderboardPoster) RefreshAll(ctx context.Context) error {
	mappings, err := p.mappings.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tracker channels: %w", err)
	}

	for _, mapping := range mappings {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := p.Refresh(ctx, mapping.GuildID, mapping.ChannelID); err != nil {
			p.logger.Warn("Failed to refresh leaderboard",
				zap.Uint64("guildID", uint64(mapping.GuildID)),
				zap.Error(err))
		}
	}

	return nil
}

// Refresh posts or edits the leaderboard of one guild.
// Concurrent refreshes of the same guild share a single run.
func (p *LeaderboardPoster) Refresh(ctx context.Context, guildID, channelID snowflake.ID) error {
	_, err, _ := p.group.Do(guildID.String(), func() (any, error) {
		return nil, p.refresh(ctx, guildID, channelID)
	})

	return err
}

func (p *LeaderboardPoster) refresh(ctx context.Context, guildID, channelID snowflake.ID) error {
	users, err := p.source.Leaderboard(ctx, guildID, p.size)
	if err != nil {
		return fmt.Errorf("failed to get leaderboard: %w", err)
	}

	embed := BuildLeaderboardEmbed(users, p.now())

	messageID, ok, err := p.cache.MessageID(ctx, guildID)
	if err != nil {
		p.logger.Warn("Failed to read cached leaderboard message", zap.Error(err))
	}

	if ok {
		update := discord.NewMessageUpdateBuilder().SetEmbeds(embed).Build()

		_, err := p.messages.UpdateMessage(channelID, messageID, update, rest.WithCtx(ctx))
		if err == nil {
			return nil
		}

		// The message was deleted or the channel changed; post a new one
		p.logger.Debug("Failed to edit leaderboard message",
			zap.Uint64("guildID", uint64(guildID)),
			zap.Uint64("messageID", uint64(messageID)),
			zap.Error(err))
	}

	message, err := p.messages.CreateMessage(
		channelID, discord.NewMessageCreateBuilder().SetEmbeds(embed).Build(), rest.WithCtx(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to post leaderboard: %w", err)
	}

	return p.cache.SetMessageID(ctx, guildID, message.ID)
}

// BuildLeaderboardEmbed renders the monthly top users.
func BuildLeaderboardEmbed(users []*types.TrackedUser, now time.Time) discord.Embed {
	var sb strings.Builder

	if len(users) == 0 {
		sb.WriteString("No tracked profiles yet. Use `/add_user` to start tracking.")
	}

	for i, user := range users {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(". ")
		fmt.Fprintf(&sb, "[`%d`](https://steamcommunity.com/profiles/%d) <@%d> · **%d XP** (level %d)\n",
			user.SteamID, user.SteamID, user.DiscordID, user.TotalEarned, user.CurrentLevel)
	}

	return discord.NewEmbedBuilder().
		SetTitle("Monthly XP Leaderboard").
		SetDescription(sb.String()).
		SetColor(leaderboardColor).
		SetTimestamp(now).
		Build()
}
