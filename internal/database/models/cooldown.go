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

// CooldownModel handles database operations for command cooldowns.
type CooldownModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCooldown creates a CooldownModel.
func NewCooldown(db *bun.DB, logger *zap.Logger) *CooldownModel {
	return &CooldownModel{
		db:     db,
		logger: logger.Named("db_cooldown"),
	}
}

// Get returns when the actor's cooldown started.
func (r *CooldownModel) Get(ctx context.Context, actorID snowflake.ID) (time.Time, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (time.Time, error) {
		var entry types.Cooldown

		err := r.db.NewSelect().Model(&entry).
			Where("actor_id = ?", actorID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return time.Time{}, fmt.Errorf("%w (actorID=%d)", types.ErrNotFound, actorID)
			}

			return time.Time{}, fmt.Errorf("failed to get cooldown: %w (actorID=%d)", err, actorID)
		}

		return entry.StartedAt, nil
	})
}

// Start records the start of a cooldown, replacing any previous entry.
func (r *CooldownModel) Start(ctx context.Context, actorID snowflake.ID, at time.Time) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(&types.Cooldown{ActorID: actorID, StartedAt: at}).
			On("CONFLICT (actor_id) DO UPDATE").
			Set("started_at = EXCLUDED.started_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: start cooldown: %w (actorID=%d)", types.ErrPersistence, err, actorID)
		}

		return nil
	})
}

// Delete removes the cooldown of an actor.
func (r *CooldownModel) Delete(ctx context.Context, actorID snowflake.ID) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewDelete().Model((*types.Cooldown)(nil)).
			Where("actor_id = ?", actorID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("%w: delete cooldown: %w (actorID=%d)", types.ErrPersistence, err, actorID)
		}

		return nil
	})
}

// DeleteStartedBefore removes every cooldown that started before cutoff.
func (r *CooldownModel) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		res, err := r.db.NewDelete().Model((*types.Cooldown)(nil)).
			Where("started_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: purge cooldowns: %w", types.ErrPersistence, err)
		}

		affected, _ := res.RowsAffected()

		return affected, nil
	})
}
