package bot

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/database/types"
	"go.uber.org/zap"
)

// GuildMappings is the tracker channel store used by guild cleanup.
type GuildMappings interface {
	List(ctx context.Context) ([]*types.GuildChannel, error)
	Delete(ctx context.Context, guildID snowflake.ID) error
}

// GuildSet tracks the guilds the bot is a member of, fed by gateway events.
type GuildSet struct {
	mu     sync.RWMutex
	guilds map[snowflake.ID]struct{}
	ready  bool
}

// NewGuildSet creates an empty guild set.
func NewGuildSet() *GuildSet {
	return &GuildSet{guilds: make(map[snowflake.ID]struct{})}
}

// Reset replaces the membership with ids and marks the set as ready.
func (s *GuildSet) Reset(ids []snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guilds = make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		s.guilds[id] = struct{}{}
	}

	s.ready = true
}

// Add records membership of a guild.
func (s *GuildSet) Add(id snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guilds[id] = struct{}{}
}

// Remove forgets a guild.
func (s *GuildSet) Remove(id snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.guilds, id)
}

// Has reports whether the bot is in a guild.
func (s *GuildSet) Has(id snowflake.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.guilds[id]

	return ok
}

// Ready reports whether the initial membership has been received.
func (s *GuildSet) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ready
}

// CleanupGuilds removes tracker channel mappings of guilds the bot has left.
// Nothing is removed before the guild set is ready.
func CleanupGuilds(ctx context.Context, mappings GuildMappings, guilds *GuildSet, logger *zap.Logger) (int, error) {
	if !guilds.Ready() {
		return 0, nil
	}

	list, err := mappings.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0

	for _, mapping := range list {
		if guilds.Has(mapping.GuildID) {
			continue
		}

		if err := mappings.Delete(ctx, mapping.GuildID); err != nil {
			logger.Error("Failed to remove stale guild mapping",
				zap.Uint64("guildID", uint64(mapping.GuildID)),
				zap.Error(err))

			continue
		}

		removed++
	}

	if removed > 0 {
		logger.Info("Removed stale guild mappings", zap.Int("count", removed))
	}

	return removed, nil
}
