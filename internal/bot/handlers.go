package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/queue"
	"github.com/kwservices/xptracker/internal/stats"
	"github.com/kwservices/xptracker/internal/tracker"
	"go.uber.org/zap"
)

var errGuildOnly = errors.New("command used outside of a guild")

// interaction carries the fields of a slash command shared by every handler.
type interaction struct {
	event      *events.ApplicationCommandInteractionCreate
	data       discord.SlashCommandInteractionData
	userID     snowflake.ID
	guildID    snowflake.ID
	privileged bool
}

// handleApplicationCommandInteraction defers the response and runs the command in the background.
func (b *Bot) handleApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	data, ok := event.Data.(discord.SlashCommandInteractionData)
	if !ok {
		return
	}

	name := data.CommandName()

	go func() {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Command handler panicked",
					zap.String("command", name),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))
				b.respondText(event, ErrorMessage(nil))
			}

			b.logger.Debug("Command handled",
				zap.String("command", name),
				zap.Uint64("userID", uint64(event.User().ID)),
				zap.Duration("duration", time.Since(start)))
		}()

		ephemeral := !publicCommands[name]
		if hidden, ok := data.OptBool(optionHidden); ok {
			ephemeral = hidden
		}

		if err := event.DeferCreateMessage(ephemeral); err != nil {
			b.logger.Error("Failed to defer interaction response", zap.Error(err))
			return
		}

		timeout := time.Duration(b.config.RequestTimeout) * time.Millisecond
		if name == CommandCheck {
			timeout += time.Duration(b.config.Queue.ResultTimeout) * time.Millisecond
		}

		ctx, cancel := context.WithTimeout(b.ctx, timeout)
		defer cancel()

		b.dispatch(ctx, event, data)
	}()
}

// dispatch routes a slash command to its handler.
func (b *Bot) dispatch(
	ctx context.Context, event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData,
) {
	name := data.CommandName()

	switch name {
	case CommandSetup:
		b.respondText(event, setupText)
		return
	case CommandHelp:
		b.respondText(event, helpText)
		return
	case CommandTimeRemaining:
		b.respond(event, discord.NewMessageUpdateBuilder().
			SetEmbeds(BuildTimeRemainingEmbed(time.Now(), b.resetZone)).
			Build())
		return
	}

	guildID := event.GuildID()
	if guildID == nil {
		b.respondError(event, errGuildOnly)
		return
	}

	in := interaction{
		event:   event,
		data:    data,
		userID:  event.User().ID,
		guildID: *guildID,
	}

	if member := event.Member(); member != nil {
		in.privileged = member.Permissions.Has(discord.PermissionAdministrator)
	}

	if adminCommands[name] && !in.privileged {
		b.respondError(event, tracker.ErrUnauthorized)
		return
	}

	switch name {
	case CommandAddUser:
		b.handleAddUser(ctx, in)
	case CommandRemoveUser:
		b.handleRemoveUser(ctx, in)
	case CommandChangeUserGuild:
		b.handleChangeGuild(ctx, in)
	case CommandChangeUserOwner:
		b.handleChangeOwner(ctx, in)
	case CommandResetXP:
		b.handleResetXP(ctx, in)
	case CommandEarned:
		b.handleEarned(ctx, in)
	case CommandCheck:
		b.handleCheck(ctx, in)
	case CommandAdminMode:
		b.handleAdminMode(ctx, in)
	case CommandSetTrackerChannel:
		b.handleSetTrackerChannel(ctx, in)
	case CommandLeaderboard:
		b.handleLeaderboard(ctx, in)
	case CommandRevoke:
		b.handleRevoke(ctx, in)
	case CommandTotalUsers:
		b.handleTotalUsers(ctx, in)
	case CommandQueueBoard:
		b.handleQueueBoard(ctx, in)
	default:
		b.respondText(event, "Unknown command.")
	}
}

func (b *Bot) handleAddUser(ctx context.Context, in interaction) {
	user, err := b.service.AddTrackedUser(ctx, tracker.AddRequest{
		RawID:      in.data.String(optionSteamID),
		Owner:      in.userID,
		Guild:      in.guildID,
		Privileged: in.privileged,
	})
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	b.respondText(in.event, fmt.Sprintf("Now tracking `%d` (level %d, %d XP).",
		user.SteamID, user.CurrentLevel, user.CurrentXP))
}

func (b *Bot) handleRemoveUser(ctx context.Context, in interaction) {
	steamID, err := b.steamID(ctx, in.data.String(optionSteamID))
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	if err := b.service.RemoveTrackedUser(ctx, steamID, in.userID, in.guildID, in.privileged); err != nil {
		b.respondError(in.event, err)
		return
	}

	b.respondText(in.event, fmt.Sprintf("Stopped tracking `%d`.", steamID))
}

func (b *Bot) handleChangeGuild(ctx context.Context, in interaction) {
	steamID, err := b.steamID(ctx, in.data.String(optionSteamID))
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	if err := b.service.ChangeGuild(ctx, steamID, in.userID, in.guildID); err != nil {
		b.respondError(in.event, err)
		return
	}

	b.respondText(in.event, fmt.Sprintf("Updates for `%d` are now posted in this server.", steamID))
}

func (b *Bot) handleChangeOwner(ctx context.Context, in interaction) {
	steamID, err := b.steamID(ctx, in.data.String(optionSteamID))
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	newOwner := in.data.Snowflake(optionUser)
	if err := b.service.ChangeOwner(ctx, steamID, in.userID, newOwner); err != nil {
		b.respondError(in.event, err)
		return
	}

	b.respondText(in.event, fmt.Sprintf("`%d` now belongs to <@%d>.", steamID, newOwner))
}

func (b *Bot) handleResetXP(ctx context.Context, in interaction) {
	scope, ok := ParseScope(in.data.String(optionScope))
	if !ok {
		b.respondText(in.event, "Unknown reset scope.")
		return
	}

	steamID, err := b.steamID(ctx, in.data.String(optionSteamID))
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	if err := b.service.ResetCounters(ctx, steamID, in.userID, scope); err != nil {
		b.respondError(in.event, err)
		return
	}

	b.respondText(in.event, fmt.Sprintf("Reset the %s XP of `%d`.", scope, steamID))
}

func (b *Bot) handleEarned(ctx context.Context, in interaction) {
	steamID, err := b.steamID(ctx, in.data.String(optionSteamID))
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	user, err := b.service.Earned(ctx, steamID, in.userID)
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	b.respond(in.event, discord.NewMessageUpdateBuilder().
		SetEmbeds(BuildEarnedEmbed(user)).
		Build())
}

func (b *Bot) handleAdminMode(ctx context.Context, in interaction) {
	enabled := in.data.Bool(optionEnabled)
	if err := b.service.SetAdminMode(ctx, in.guildID, enabled); err != nil {
		b.respondError(in.event, err)
		return
	}

	if enabled {
		b.respondText(in.event, "Admin mode enabled. Only administrators can add or remove profiles.")
		return
	}

	b.respondText(in.event, "Admin mode disabled. Everyone can add and remove their own profiles.")
}

func (b *Bot) handleSetTrackerChannel(ctx context.Context, in interaction) {
	channelID := in.data.Snowflake(optionChannel)
	if err := b.service.SetTrackerChannel(ctx, in.guildID, channelID); err != nil {
		b.respondError(in.event, err)
		return
	}

	if err := b.leaderboard.Refresh(ctx, in.guildID, channelID); err != nil {
		b.logger.Warn("Failed to post leaderboard", zap.Error(err), zap.Uint64("guildID", uint64(in.guildID)))
	}

	b.respondText(in.event, fmt.Sprintf("Updates will be posted in <#%d>.", channelID))
}

func (b *Bot) handleLeaderboard(ctx context.Context, in interaction) {
	users, err := b.service.Leaderboard(ctx, in.guildID, tracker.DefaultLeaderboardSize)
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	builder := discord.NewMessageUpdateBuilder().
		SetEmbeds(BuildLeaderboardEmbed(users, time.Now()))

	// The count only decorates the reply
	if tracked, err := b.service.TrackedCountByGuild(ctx, in.guildID); err == nil {
		builder.SetContent(fmt.Sprintf("Tracking %d user(s) in this server.", tracked))
	}

	b.respond(in.event, builder.Build())
}

func (b *Bot) handleRevoke(ctx context.Context, in interaction) {
	target := in.data.User(optionUser)

	revoked, err := b.service.RevokeCooldown(ctx, target.ID)
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	if !revoked {
		b.respondText(in.event, fmt.Sprintf("<@%d> is not on cooldown.", target.ID))
		return
	}

	notifyUser := true
	if value, ok := in.data.OptBool(optionNotify); ok {
		notifyUser = value
	}

	if notifyUser {
		if err := b.dispatcher.SendDirect(ctx, target.ID, "An administrator cleared your check cooldown."); err != nil {
			b.logger.Warn("Failed to notify user of revoked cooldown",
				zap.Uint64("userID", uint64(target.ID)),
				zap.Error(err))
		}
	}

	b.respondText(in.event, fmt.Sprintf("Cleared the check cooldown of <@%d>.", target.ID))
}

func (b *Bot) handleTotalUsers(ctx context.Context, in interaction) {
	total, err := b.service.TrackedCount(ctx)
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	inGuild, err := b.service.TrackedCountByGuild(ctx, in.guildID)
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	b.respond(in.event, discord.NewMessageUpdateBuilder().
		SetEmbeds(BuildTotalUsersEmbed(total, inGuild)).
		Build())
}

func (b *Bot) handleQueueBoard(ctx context.Context, in interaction) {
	channelID := in.event.ChannelID()

	if _, err := b.queueBoard.Place(ctx, channelID); err != nil {
		b.respondError(in.event, err)
		return
	}

	b.respondText(in.event, fmt.Sprintf("The check queue status is now shown in <#%d>.", channelID))
}

// steamID accepts a numeric id as is and resolves anything else remotely.
func (b *Bot) steamID(ctx context.Context, raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return id, nil
	}

	profile, err := b.service.Resolve(ctx, raw)
	if err != nil {
		return 0, err
	}

	return profile.SteamID, nil
}

func (b *Bot) respond(event *events.ApplicationCommandInteractionCreate, update discord.MessageUpdate) {
	if _, err := event.Client().Rest().UpdateInteractionResponse(
		event.ApplicationID(), event.Token(), update,
	); err != nil {
		b.logger.Error("Failed to update interaction response", zap.Error(err))
	}
}

func (b *Bot) respondText(event *events.ApplicationCommandInteractionCreate, text string) {
	b.respond(event, discord.NewMessageUpdateBuilder().
		SetContent(text).
		Build())
}

// respondError reports err to the user and logs anything that is not a user mistake.
func (b *Bot) respondError(event *events.ApplicationCommandInteractionCreate, err error) {
	if errors.Is(err, errGuildOnly) {
		b.respondText(event, "This command can only be used in a server.")
		return
	}

	if !expectedError(err) {
		b.logger.Error("Command failed", zap.Error(err))
	}

	b.respondText(event, ErrorMessage(err))
}

func expectedError(err error) bool {
	var cooldownErr *tracker.CooldownError

	return errors.As(err, &cooldownErr) ||
		errors.Is(err, tracker.ErrUnauthorized) ||
		errors.Is(err, tracker.ErrChannelNotSet) ||
		errors.Is(err, types.ErrAdminModeUnset) ||
		errors.Is(err, types.ErrDuplicateEntry) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, stats.ErrResolution) ||
		errors.Is(err, queue.ErrResultTimeout)
}
