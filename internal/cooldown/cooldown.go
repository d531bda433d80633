// Package cooldown throttles on-demand profile checks per actor.
package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/database/types"
	"go.uber.org/zap"
)

// Store persists the start time of each actor's cooldown.
// Get returns types.ErrNotFound when the actor has no entry.
type Store interface {
	Get(ctx context.Context, actorID snowflake.ID) (time.Time, error)
	Start(ctx context.Context, actorID snowflake.ID, at time.Time) error
	Delete(ctx context.Context, actorID snowflake.ID) error
	DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Decision is the outcome of a cooldown check.
type Decision struct {
	// Allowed is true when the action may proceed.
	Allowed bool
	// Bypassed is true when a privileged actor skipped the gate.
	Bypassed bool
	// Remaining is the time left in the window when the action is refused.
	Remaining time.Duration
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// Gate enforces a fixed cooldown window per actor.
type Gate struct {
	store  Store
	window time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Gate with the given window.
func New(store Store, window time.Duration, logger *zap.Logger, opts ...Option) *Gate {
	g := &Gate{
		store:  store,
		window: window,
		now:    time.Now,
		logger: logger.Named("cooldown"),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Window returns the configured cooldown window.
func (g *Gate) Window() time.Duration {
	return g.window
}

// IsInCooldown reports whether the actor is still inside its window and the time left.
// An elapsed entry is removed.
func (g *Gate) IsInCooldown(ctx context.Context, actorID snowflake.ID) (bool, time.Duration, error) {
	startedAt, err := g.store.Get(ctx, actorID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return false, 0, nil
		}

		return false, 0, fmt.Errorf("failed to get cooldown: %w", err)
	}

	elapsed := g.now().Sub(startedAt)
	if elapsed < g.window {
		return true, g.window - elapsed, nil
	}

	if err := g.store.Delete(ctx, actorID); err != nil {
		return false, 0, fmt.Errorf("failed to remove stale cooldown: %w", err)
	}

	return false, 0, nil
}

// RecordAction starts a new window for the actor. It returns false without
// touching the store when an unexpired window already exists.
func (g *Gate) RecordAction(ctx context.Context, actorID snowflake.ID) (bool, error) {
	active, _, err := g.IsInCooldown(ctx, actorID)
	if err != nil {
		return false, err
	}

	if active {
		return false, nil
	}

	if err := g.store.Start(ctx, actorID, g.now()); err != nil {
		return false, fmt.Errorf("failed to record cooldown: %w", err)
	}

	return true, nil
}

// Check gates an action by the actor and records it when allowed.
// Privileged actors always pass and are never recorded.
func (g *Gate) Check(ctx context.Context, actorID snowflake.ID, privileged bool) (Decision, error) {
	if privileged {
		g.logger.Info("Cooldown bypassed",
			zap.Uint64("actorID", uint64(actorID)),
			zap.Bool("bypass", true))

		return Decision{Allowed: true, Bypassed: true}, nil
	}

	active, remaining, err := g.IsInCooldown(ctx, actorID)
	if err != nil {
		return Decision{}, err
	}

	if active {
		g.logger.Debug("Action refused by cooldown",
			zap.Uint64("actorID", uint64(actorID)),
			zap.Duration("remaining", remaining))

		return Decision{Remaining: remaining}, nil
	}

	recorded, err := g.RecordAction(ctx, actorID)
	if err != nil {
		return Decision{}, err
	}

	if !recorded {
		return Decision{Remaining: g.window}, nil
	}

	return Decision{Allowed: true}, nil
}

// Purge removes every elapsed entry and returns how many were removed.
func (g *Gate) Purge(ctx context.Context) (int64, error) {
	removed, err := g.store.DeleteStartedBefore(ctx, g.now().Add(-g.window))
	if err != nil {
		return 0, fmt.Errorf("failed to purge cooldowns: %w", err)
	}

	return removed, nil
}

// Revoke ends the actor's window early. It returns false when the actor had
// no active window.
func (g *Gate) Revoke(ctx context.Context, actorID snowflake.ID) (bool, error) {
	active, _, err := g.IsInCooldown(ctx, actorID)
	if err != nil {
		return false, err
	}

	if !active {
		return false, nil
	}

	if err := g.store.Delete(ctx, actorID); err != nil {
		return false, fmt.Errorf("failed to revoke cooldown: %w", err)
	}

	g.logger.Info("Cooldown revoked", zap.Uint64("actorID", uint64(actorID)))

	return true, nil
}
