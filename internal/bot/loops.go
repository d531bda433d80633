package bot

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/gateway"
	"github.com/kwservices/xptracker/pkg/utils"
	"go.uber.org/zap"
)

// runQueueLoop periodically drains checks left behind by missed triggers.
func (b *Bot) runQueueLoop(ctx context.Context) {
	interval := time.Duration(b.config.Queue.Interval) * time.Millisecond

	for {
		if b.checks.TriggerIfIdle(ctx) {
			b.logger.Debug("Queue drain triggered by interval")
		}

		if !utils.IntervalSleep(ctx, interval, b.logger, "queue trigger") {
			return
		}
	}
}

// runGuildCleanupLoop removes mappings of departed guilds and elapsed cooldowns.
func (b *Bot) runGuildCleanupLoop(ctx context.Context) {
	interval := time.Duration(b.config.Intervals.GuildCleanup) * time.Second

	for {
		if !utils.IntervalSleep(ctx, interval, b.logger, "guild cleanup") {
			return
		}

		if _, err := CleanupGuilds(ctx, b.mappings, b.guilds, b.logger); err != nil {
			b.logger.Error("Failed to clean up guild mappings", zap.Error(err))
		}

		if purged, err := b.cooldowns.Purge(ctx); err != nil {
			b.logger.Error("Failed to purge cooldowns", zap.Error(err))
		} else if purged > 0 {
			b.logger.Debug("Purged cooldowns", zap.Int64("count", purged))
		}
	}
}

// runImageCleanupLoop deletes generated check images past their maximum age.
func (b *Bot) runImageCleanupLoop(ctx context.Context) {
	interval := time.Duration(b.config.Intervals.ImageCleanup) * time.Second
	maxAge := time.Duration(b.config.ImageMaxAge) * time.Minute

	for {
		if !utils.IntervalSleep(ctx, interval, b.logger, "image cleanup") {
			return
		}

		removed, err := b.images.Cleanup(time.Now(), maxAge)
		if err != nil {
			b.logger.Error("Failed to clean up images", zap.Error(err))
			continue
		}

		if removed > 0 {
			b.logger.Debug("Removed old images", zap.Int("count", removed))
		}
	}
}

// runLeaderboardLoop keeps the leaderboard message of every guild current.
func (b *Bot) runLeaderboardLoop(ctx context.Context) {
	interval := time.Duration(b.config.Intervals.Leaderboard) * time.Second

	for {
		if !utils.IntervalSleep(ctx, interval, b.logger, "leaderboard") {
			return
		}

		if err := b.leaderboard.RefreshAll(ctx); err != nil {
			b.logger.Error("Failed to refresh leaderboards", zap.Error(err))
		}
	}
}

// runPresenceLoop alternates the presence between the tracked count and the weekly reset countdown.
func (b *Bot) runPresenceLoop(ctx context.Context) {
	interval := time.Duration(b.config.Intervals.Presence) * time.Second

	for step := 0; ; step++ {
		tracked, err := b.service.TrackedCount(ctx)
		if err != nil {
			b.logger.Warn("Failed to count tracked users", zap.Error(err))
		}

		text := PresenceText(step, tracked, time.Now(), b.resetZone)
		if err := b.client.SetPresence(ctx, gateway.WithCustomActivity(text)); err != nil {
			b.logger.Warn("Failed to update presence", zap.Error(err))
		}

		if !utils.IntervalSleep(ctx, interval, b.logger, "presence") {
			return
		}
	}
}

// runQueueBoardLoop keeps the placed check queue status message current.
func (b *Bot) runQueueBoardLoop(ctx context.Context) {
	interval := time.Duration(b.config.Intervals.QueueBoard) * time.Second

	for {
		if !utils.IntervalSleep(ctx, interval, b.logger, "queue board") {
			return
		}

		if err := b.queueBoard.Refresh(ctx); err != nil {
			b.logger.Error("Failed to refresh queue status", zap.Error(err))
		}
	}
}
