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

// GuildChannelModel handles database operations for guild tracker channels.
type GuildChannelModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGuildChannel creates a GuildChannelModel.
func NewGuildChannel(db *bun.DB, logger *zap.Logger) *GuildChannelModel {
	return &GuildChannelModel{
		db:     db,
		logger: logger.Named("db_guild_channel"),
	}
}

// Set creates or replaces the tracker channel of a guild.
func (r *GuildChannelModel) Set(ctx context.Context, guildID, channelID snowflake.ID) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		mapping := &types.GuildChannel{
			GuildID:   guildID,
			ChannelID: channelID,
			UpdatedAt: time.Now(),
		}

		_, err := r.db.NewInsert().Model(mapping).
			On("CONFLICT (guild_id) DO UPDATE").
			Set("channel_id = EXCLUDED.channel_id").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: set guild channel: %w (guildID=%d)", types.ErrPersistence, err, guildID)
		}

		return nil
	})
}

// Get returns the tracker channel of a guild.
func (r *GuildChannelModel) Get(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (snowflake.ID, error) {
		var mapping types.GuildChannel

		err := r.db.NewSelect().Model(&mapping).
			Where("guild_id = ?", guildID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, fmt.Errorf("%w (guildID=%d)", types.ErrNotFound, guildID)
			}

			return 0, fmt.Errorf("failed to get guild channel: %w (guildID=%d)", err, guildID)
		}

		return mapping.ChannelID, nil
	})
}

// List returns every guild channel mapping.
func (r *GuildChannelModel) List(ctx context.Context) ([]*types.GuildChannel, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.GuildChannel, error) {
		var mappings []*types.GuildChannel

		if err := r.db.NewSelect().Model(&mappings).Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to list guild channels: %w", err)
		}

		return mappings, nil
	})
}

// Delete removes the mapping of a guild. Missing mappings are not an error.
func (r *GuildChannelModel) Delete(ctx context.Context, guildID snowflake.ID) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewDelete().Model((*types.GuildChannel)(nil)).
			Where("guild_id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: delete guild channel: %w (guildID=%d)", types.ErrPersistence, err, guildID)
		}

		r.logger.Debug("Deleted guild channel", zap.Uint64("guildID", uint64(guildID)))

		return nil
	})
}

// AdminModeModel handles database operations for per-guild admin mode flags.
type AdminModeModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAdminMode creates an AdminModeModel.
func NewAdminMode(db *bun.DB, logger *zap.Logger) *AdminModeModel {
	return &AdminModeModel{
		db:     db,
		logger: logger.Named("db_admin_mode"),
	}
}

// Get returns whether admin mode is enabled for a guild.
// Returns types.ErrAdminModeUnset if the guild never configured it.
func (r *AdminModeModel) Get(ctx context.Context, guildID snowflake.ID) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		var mode types.AdminMode

		err := r.db.NewSelect().Model(&mode).
			Where("guild_id = ?", guildID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, fmt.Errorf("%w (guildID=%d)", types.ErrAdminModeUnset, guildID)
			}

			return false, fmt.Errorf("failed to get admin mode: %w (guildID=%d)", err, guildID)
		}

		return mode.Enabled, nil
	})
}

// Set stores the admin mode flag of a guild.
func (r *AdminModeModel) Set(ctx context.Context, guildID snowflake.ID, enabled bool) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(&types.AdminMode{GuildID: guildID, Enabled: enabled}).
			On("CONFLICT (guild_id) DO UPDATE").
			Set("enabled = EXCLUDED.enabled").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: set admin mode: %w (guildID=%d)", types.ErrPersistence, err, guildID)
		}

		return nil
	})
}
