package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/xp"
	"github.com/kwservices/xptracker/pkg/utils"
	"go.uber.org/zap"
)

// Discord is a Dispatcher backed by the Discord REST API.
type Discord struct {
	rest     rest.Rest
	settings xp.Settings
	retry    utils.RetryOptions
	logger   *zap.Logger
}

// NewDiscord creates a Dispatcher using the given REST client.
func NewDiscord(client rest.Rest, settings xp.Settings, logger *zap.Logger) *Discord {
	return &Discord{
		rest:     client,
		settings: settings,
		retry:    utils.GetDeliveryRetryOptions(),
		logger:   logger.Named("notify"),
	}
}

// SendUpdate implements Dispatcher.
func (d *Discord) SendUpdate(ctx context.Context, channelID snowflake.ID, update Update) error {
	message := discord.NewMessageCreateBuilder().
		SetEmbeds(BuildUpdateEmbed(update, d.settings)).
		Build()

	_, err := utils.WithRetry(ctx, func() (*discord.Message, error) {
		msg, err := d.rest.CreateMessage(channelID, message, rest.WithCtx(ctx))
		return msg, classify(err)
	}, d.retry)
	if err != nil {
		return fmt.Errorf("%w (channelID=%d, steamID=%d)", DeliveryError(err), channelID, update.SteamID)
	}

	return nil
}

// SendDirect implements Dispatcher.
func (d *Discord) SendDirect(ctx context.Context, userID snowflake.ID, text string) error {
	channel, err := d.rest.CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("create dm channel: %w (userID=%d)", DeliveryError(err), userID)
	}

	message := discord.NewMessageCreateBuilder().SetContent(text).Build()

	_, err = utils.WithRetry(ctx, func() (*discord.Message, error) {
		msg, err := d.rest.CreateMessage(channel.ID(), message, rest.WithCtx(ctx))
		return msg, classify(err)
	}, d.retry)
	if err != nil {
		return fmt.Errorf("%w (userID=%d)", DeliveryError(err), userID)
	}

	return nil
}

// GuildOwner implements Dispatcher.
func (d *Discord) GuildOwner(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error) {
	guild, err := d.rest.GetGuild(guildID, false, rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to get guild: %w (guildID=%d)", err, guildID)
	}

	return guild.OwnerID, nil
}

// DirectBestEffort sends a direct message and only logs a failure.
func DirectBestEffort(ctx context.Context, dispatcher Dispatcher, logger *zap.Logger, userID snowflake.ID, text string) {
	if userID == 0 {
		return
	}

	if err := dispatcher.SendDirect(ctx, userID, text); err != nil {
		logger.Warn("Failed to send direct message",
			zap.Uint64("userID", uint64(userID)),
			zap.Error(err))
	}
}

// DeliveryError wraps a failed send as ErrDeliveryFailure when Discord reports the
// destination as missing or inaccessible, and as ErrDeliveryTransient otherwise.
func DeliveryError(err error) error {
	if err == nil {
		return nil
	}

	if status, ok := responseStatus(err); ok {
		switch status {
		case http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrDeliveryFailure, err)
		}
	}

	return fmt.Errorf("%w: %w", ErrDeliveryTransient, err)
}

// classify marks client errors other than rate limits as permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if status, ok := responseStatus(err); ok && status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}

	return err
}

// responseStatus returns the HTTP status of a disgo REST error.
// disgo returns rest.Error by value, pointers are accepted as well.
func responseStatus(err error) (int, bool) {
	var value rest.Error
	if errors.As(err, &value) && value.Response != nil {
		return value.Response.StatusCode, true
	}

	var pointer *rest.Error
	if errors.As(err, &pointer) && pointer != nil && pointer.Response != nil {
		return pointer.Response.StatusCode, true
	}

	return 0, false
}
