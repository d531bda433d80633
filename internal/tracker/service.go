// Package tracker exposes the tracking commands behind the ownership and admin mode gates.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/kwservices/xptracker/internal/queue"
	"github.com/kwservices/xptracker/internal/stats"
	"go.uber.org/zap"
)

// DefaultLeaderboardSize is the number of users shown when no limit is given.
const DefaultLeaderboardSize = 10

// AddRequest describes a new tracked user.
type AddRequest struct {
	RawID      string
	Owner      snowflake.ID
	Guild      snowflake.ID
	Privileged bool
}

// CheckRequest describes an on-demand profile check.
type CheckRequest struct {
	RawID      string
	Requester  snowflake.ID
	Channel    snowflake.ID
	Privileged bool
}

// Dependencies holds the collaborators of a Service.
type Dependencies struct {
	Users         UserStore
	Channels      ChannelStore
	AdminModes    AdminModeStore
	Profiles      Profiles
	Checks        Checks
	Cooldowns     CooldownGate
	ResultTimeout time.Duration
	Logger        *zap.Logger
}

// Service implements the tracking command surface.
type Service struct {
	users         UserStore
	channels      ChannelStore
	adminModes    AdminModeStore
	profiles      Profiles
	checks        Checks
	cooldowns     CooldownGate
	resultTimeout time.Duration
	logger        *zap.Logger
}

// New creates a new tracker service.
func New(deps Dependencies) *Service {
	return &Service{
		users:         deps.Users,
		channels:      deps.Channels,
		adminModes:    deps.AdminModes,
		profiles:      deps.Profiles,
		checks:        deps.Checks,
		cooldowns:     deps.Cooldowns,
		resultTimeout: deps.ResultTimeout,
		logger:        deps.Logger.Named("tracker"),
	}
}

// Resolve maps a raw id to its profile.
func (s *Service) Resolve(ctx context.Context, rawID string) (*stats.Profile, error) {
	return s.profiles.Resolve(ctx, rawID)
}

// AddTrackedUser starts tracking the profile behind req.RawID.
func (s *Service) AddTrackedUser(ctx context.Context, req AddRequest) (*types.TrackedUser, error) {
	if err := s.checkAdminMode(ctx, req.Guild, req.Privileged); err != nil {
		return nil, err
	}

	if err := s.requireChannel(ctx, req.Guild); err != nil {
		return nil, err
	}

	profile, err := s.profiles.Resolve(ctx, req.RawID)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.Get(ctx, profile.SteamID); err == nil {
		return nil, fmt.Errorf("%w (steamID=%d)", types.ErrDuplicateEntry, profile.SteamID)
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	levels, err := s.profiles.Levels(ctx, profile.SteamID)
	if err != nil {
		return nil, err
	}

	user := &types.TrackedUser{
		SteamID:      profile.SteamID,
		DiscordID:    req.Owner,
		GuildID:      req.Guild,
		CurrentLevel: levels.Level,
		CurrentXP:    levels.XP,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Tracked user added",
		zap.Uint64("steamID", user.SteamID),
		zap.Uint64("ownerID", uint64(req.Owner)),
		zap.Uint64("guildID", uint64(req.Guild)),
		zap.Int("level", user.CurrentLevel),
		zap.Int("xp", user.CurrentXP))

	return user, nil
}

// RemoveTrackedUser stops tracking a profile owned by the requester.
func (s *Service) RemoveTrackedUser(
	ctx context.Context, steamID uint64, requester, guild snowflake.ID, privileged bool,
) error {
	if err := s.checkAdminMode(ctx, guild, privileged); err != nil {
		return err
	}

	if _, err := s.authorize(ctx, steamID, requester); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, steamID); err != nil {
		return err
	}

	s.logger.Info("Tracked user removed",
		zap.Uint64("steamID", steamID),
		zap.Uint64("requesterID", uint64(requester)))

	return nil
}

// ChangeOwner hands a tracked user over to another actor.
func (s *Service) ChangeOwner(ctx context.Context, steamID uint64, requester, newOwner snowflake.ID) error {
	if _, err := s.authorize(ctx, steamID, requester); err != nil {
		return err
	}

	return s.users.UpdateOwner(ctx, steamID, newOwner)
}

// ChangeGuild moves a tracked user to another guild.
// The target guild must have a tracker channel, otherwise the next sweep would drop the user.
func (s *Service) ChangeGuild(ctx context.Context, steamID uint64, requester, guild snowflake.ID) error {
	if _, err := s.authorize(ctx, steamID, requester); err != nil {
		return err
	}

	if err := s.requireChannel(ctx, guild); err != nil {
		return err
	}

	return s.users.UpdateGuild(ctx, steamID, guild)
}

// ResetCounters zeroes the counters of a tracked user selected by scope.
func (s *Service) ResetCounters(
	ctx context.Context, steamID uint64, requester snowflake.ID, scope types.ResetScope,
) error {
	if _, err := s.authorize(ctx, steamID, requester); err != nil {
		return err
	}

	if err := s.users.ResetCounters(ctx, steamID, scope); err != nil {
		return err
	}

	s.logger.Info("Counters reset",
		zap.Uint64("steamID", steamID),
		zap.Stringer("scope", scope))

	return nil
}

// Earned returns the counters of a tracked user owned by the requester.
func (s *Service) Earned(ctx context.Context, steamID uint64, requester snowflake.ID) (*types.TrackedUser, error) {
	return s.authorize(ctx, steamID, requester)
}

// EnqueueCheck queues a profile check after the cooldown gate and starts a drain.
func (s *Service) EnqueueCheck(ctx context.Context, req CheckRequest) (string, error) {
	decision, err := s.cooldowns.Check(ctx, req.Requester, req.Privileged)
	if err != nil {
		return "", err
	}

	if !decision.Allowed {
		return "", &CooldownError{Remaining: decision.Remaining}
	}

	correlationID, err := s.checks.Enqueue(req.RawID, req.Requester, req.Channel)
	if err != nil {
		return "", err
	}

	s.checks.TriggerIfIdle(ctx)

	return correlationID, nil
}

// AwaitCheck blocks until the queued check completes or the result timeout elapses.
func (s *Service) AwaitCheck(ctx context.Context, correlationID string) (queue.Result, error) {
	return s.checks.Await(ctx, correlationID, s.resultTimeout)
}

// QueuePosition returns the 1-based position of a queued check, or 0.
func (s *Service) QueuePosition(correlationID string) int {
	return s.checks.Position(correlationID)
}

// QueueLength returns the number of queued checks.
func (s *Service) QueueLength() int {
	return s.checks.Len()
}

// PendingChecks returns the queued checks in processing order.
func (s *Service) PendingChecks() []queue.Order {
	return s.checks.Pending()
}

// RevokeCooldown ends an actor's check cooldown early.
// It returns false when the actor had no active cooldown.
func (s *Service) RevokeCooldown(ctx context.Context, actor snowflake.ID) (bool, error) {
	return s.cooldowns.Revoke(ctx, actor)
}

// SetTrackerChannel sets the channel receiving a guild's updates.
func (s *Service) SetTrackerChannel(ctx context.Context, guild, channel snowflake.ID) error {
	return s.channels.Set(ctx, guild, channel)
}

// SetAdminMode enables or disables admin mode for a guild.
func (s *Service) SetAdminMode(ctx context.Context, guild snowflake.ID, enabled bool) error {
	return s.adminModes.Set(ctx, guild, enabled)
}

// Leaderboard returns the top users of a guild by monthly XP.
func (s *Service) Leaderboard(ctx context.Context, guild snowflake.ID, limit int) ([]*types.TrackedUser, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}

	return s.users.Leaderboard(ctx, guild, limit)
}

// TrackedCount returns the number of tracked users across all guilds.
func (s *Service) TrackedCount(ctx context.Context) (int, error) {
	return s.users.Count(ctx, 0)
}

// TrackedCountByGuild returns the number of tracked users in a guild.
func (s *Service) TrackedCountByGuild(ctx context.Context, guild snowflake.ID) (int, error) {
	return s.users.Count(ctx, guild)
}

// requireChannel returns ErrChannelNotSet when the guild has no tracker channel.
func (s *Service) requireChannel(ctx context.Context, guild snowflake.ID) error {
	if _, err := s.channels.Get(ctx, guild); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("%w (guildID=%d)", ErrChannelNotSet, guild)
		}

		return err
	}

	return nil
}

// checkAdminMode refuses non-privileged actors in guilds with admin mode enabled.
func (s *Service) checkAdminMode(ctx context.Context, guild snowflake.ID, privileged bool) error {
	enabled, err := s.adminModes.Get(ctx, guild)
	if err != nil {
		return err
	}

	if enabled && !privileged {
		return fmt.Errorf("%w: admin mode is enabled (guildID=%d)", ErrUnauthorized, guild)
	}

	return nil
}

// authorize loads a tracked user and verifies the requester owns it.
func (s *Service) authorize(ctx context.Context, steamID uint64, requester snowflake.ID) (*types.TrackedUser, error) {
	user, err := s.users.Get(ctx, steamID)
	if err != nil {
		return nil, err
	}

	if user.DiscordID != requester {
		s.logger.Warn("Ownership check failed",
			zap.Uint64("steamID", steamID),
			zap.Uint64("requesterID", uint64(requester)),
			zap.Uint64("ownerID", uint64(user.DiscordID)))

		return nil, fmt.Errorf("%w: not the owner (steamID=%d)", ErrUnauthorized, steamID)
	}

	return user, nil
}
