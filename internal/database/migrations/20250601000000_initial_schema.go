package migrations

import (
	"context"
	"fmt"

	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			models := []any{
				(*types.TrackedUser)(nil),
				(*types.GuildChannel)(nil),
				(*types.AdminMode)(nil),
				(*types.Cooldown)(nil),
				(*types.ResetMarker)(nil),
			}

			for _, model := range models {
				if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
					return fmt.Errorf("failed to create table for %T: %w", model, err)
				}
			}

			_, err := tx.NewRaw(`
				ALTER TABLE tracked_users
					ADD CONSTRAINT chk_tracked_users_counters CHECK (
						current_level >= 0 AND current_xp >= 0 AND
						total_earned >= 0 AND global_earned >= 0
					);

				CREATE INDEX IF NOT EXISTS idx_tracked_users_guild_id
				ON tracked_users (guild_id);

				CREATE INDEX IF NOT EXISTS idx_tracked_users_guild_total
				ON tracked_users (guild_id, total_earned DESC);

				CREATE INDEX IF NOT EXISTS idx_cooldowns_started_at
				ON cooldowns (started_at);
			`).Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create constraints and indexes: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP TABLE IF EXISTS tracked_users;
			DROP TABLE IF EXISTS guild_channels;
			DROP TABLE IF EXISTS admin_modes;
			DROP TABLE IF EXISTS cooldowns;
			DROP TABLE IF EXISTS reset_markers;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}

		return nil
	})
}
