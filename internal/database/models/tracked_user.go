package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/database/dbretry"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// TrackedUserModel handles database operations for tracked profiles.
type TrackedUserModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewTrackedUser creates a TrackedUserModel.
func NewTrackedUser(db *bun.DB, logger *zap.Logger) *TrackedUserModel {
	return &TrackedUserModel{
		db:     db,
		logger: logger.Named("db_tracked_user"),
	}
}

// Create inserts a new tracked user.
// Returns types.ErrDuplicateEntry if the profile is already tracked.
func (r *TrackedUserModel) Create(ctx context.Context, user *types.TrackedUser) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		res, err := r.db.NewInsert().Model(user).
			On("CONFLICT (steam_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w (steamID=%d)", types.ErrPersistence, err, user.SteamID)
		}

		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w (steamID=%d)", types.ErrDuplicateEntry, user.SteamID)
		}

		r.logger.Debug("Created tracked user",
			zap.Uint64("steamID", user.SteamID),
			zap.Uint64("discordID", uint64(user.DiscordID)),
			zap.Uint64("guildID", uint64(user.GuildID)))

		return nil
	})
}

// Get retrieves a tracked user by Steam ID.
func (r *TrackedUserModel) Get(ctx context.Context, steamID uint64) (*types.TrackedUser, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.TrackedUser, error) {
		var user types.TrackedUser

		err := r.db.NewSelect().Model(&user).
			Where("steam_id = ?", steamID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w (steamID=%d)", types.ErrNotFound, steamID)
			}

			return nil, fmt.Errorf("failed to get tracked user: %w (steamID=%d)", err, steamID)
		}

		return &user, nil
	})
}

// List returns every tracked user ordered by Steam ID.
func (r *TrackedUserModel) List(ctx context.Context) ([]*types.TrackedUser, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.TrackedUser, error) {
		var users []*types.TrackedUser

		err := r.db.NewSelect().Model(&users).
			Order("steam_id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tracked users: %w", err)
		}

		return users, nil
	})
}

// Delete removes a tracked user. Returns types.ErrNotFound if nothing was removed.
func (r *TrackedUserModel) Delete(ctx context.Context, steamID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		res, err := r.db.NewDelete().Model((*types.TrackedUser)(nil)).
			Where("steam_id = ?", steamID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w (steamID=%d)", types.ErrPersistence, err, steamID)
		}

		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w (steamID=%d)", types.ErrNotFound, steamID)
		}

		return nil
	})
}

// UpdateOwner reassigns the Discord owner of a tracked user.
func (r *TrackedUserModel) UpdateOwner(ctx context.Context, steamID uint64, owner snowflake.ID) error {
	return r.updateColumn(ctx, steamID, "discord_id", owner)
}

// UpdateGuild moves a tracked user to another guild.
func (r *TrackedUserModel) UpdateGuild(ctx context.Context, steamID uint64, guildID snowflake.ID) error {
	return r.updateColumn(ctx, steamID, "guild_id", guildID)
}

func (r *TrackedUserModel) updateColumn(ctx context.Context, steamID uint64, column string, value any) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		res, err := r.db.NewUpdate().Model((*types.TrackedUser)(nil)).
			Set("? = ?", bun.Ident(column), value).
			Set("updated_at = ?", time.Now()).
			Where("steam_id = ?", steamID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: update %s: %w (steamID=%d)", types.ErrPersistence, column, err, steamID)
		}

		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w (steamID=%d)", types.ErrNotFound, steamID)
		}

		return nil
	})
}

// ApplyProgress stores the latest level and XP and accumulates earned XP
// into both counters within the given transaction.
func (r *TrackedUserModel) ApplyProgress(ctx context.Context, tx bun.IDB, update types.ProgressUpdate) error {
	res, err := tx.NewUpdate().Model((*types.TrackedUser)(nil)).
		Set("current_level = ?", update.Level).
		Set("current_xp = ?", update.XP).
		Set("total_earned = total_earned + ?", update.Earned).
		Set("global_earned = global_earned + ?", update.Earned).
		Set("updated_at = ?", time.Now()).
		Where("steam_id = ?", update.SteamID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: apply progress: %w (steamID=%d)", types.ErrPersistence, err, update.SteamID)
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w (steamID=%d)", types.ErrNotFound, update.SteamID)
	}

	return nil
}

// ResetCounters zeroes the counters selected by scope for one user.
func (r *TrackedUserModel) ResetCounters(ctx context.Context, steamID uint64, scope types.ResetScope) error {
	columns := scope.Columns()
	if len(columns) == 0 {
		return fmt.Errorf("invalid reset scope %d (steamID=%d)", scope, steamID)
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		query := r.db.NewUpdate().Model((*types.TrackedUser)(nil))
		for _, column := range columns {
			query = query.Set("? = 0", bun.Ident(column))
		}

		res, err := query.
			Set("updated_at = ?", time.Now()).
			Where("steam_id = ?", steamID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: reset %s: %w (steamID=%d)", types.ErrPersistence, scope, err, steamID)
		}

		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w (steamID=%d)", types.ErrNotFound, steamID)
		}

		return nil
	})
}

// ResetAllMonthly zeroes the monthly counter of every tracked user within the given transaction.
func (r *TrackedUserModel) ResetAllMonthly(ctx context.Context, tx bun.IDB) (int64, error) {
	res, err := tx.NewUpdate().Model((*types.TrackedUser)(nil)).
		Set("total_earned = 0").
		Where("TRUE").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: reset monthly counters: %w", types.ErrPersistence, err)
	}

	affected, _ := res.RowsAffected()

	return affected, nil
}

// Leaderboard returns the top users by monthly XP. A zero guild ID ranks across all guilds.
func (r *TrackedUserModel) Leaderboard(
	ctx context.Context, guildID snowflake.ID, limit int,
) ([]*types.TrackedUser, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.TrackedUser, error) {
		var users []*types.TrackedUser

		query := r.db.NewSelect().Model(&users).
			Order("total_earned DESC", "global_earned DESC", "steam_id ASC")
		if guildID != 0 {
			query = query.Where("guild_id = ?", guildID)
		}

		if limit > 0 {
			query = query.Limit(limit)
		}

		if err := query.Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to get leaderboard: %w (guildID=%d)", err, guildID)
		}

		return users, nil
	})
}

// Count returns the number of tracked users. A zero guild ID counts across all guilds.
func (r *TrackedUserModel) Count(ctx context.Context, guildID snowflake.ID) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		query := r.db.NewSelect().Model((*types.TrackedUser)(nil))
		if guildID != 0 {
			query = query.Where("guild_id = ?", guildID)
		}

		count, err := query.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count tracked users: %w (guildID=%d)", err, guildID)
		}

		return count, nil
	})
}
