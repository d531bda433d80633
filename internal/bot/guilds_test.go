package bot_test

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/bot"
	"github.com/kwservices/xptracker/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGuildSet(t *testing.T) {
	t.Parallel()

	set := bot.NewGuildSet()
	assert.False(t, set.Ready())

	set.Add(1)
	assert.True(t, set.Has(1))
	assert.False(t, set.Ready())

	set.Reset([]snowflake.ID{2, 3})
	assert.True(t, set.Ready())
	assert.False(t, set.Has(1))
	assert.True(t, set.Has(2))

	set.Remove(2)
	assert.False(t, set.Has(2))
	assert.True(t, set.Has(3))
}

func TestCleanupGuilds(t *testing.T) {
	t.Parallel()

	newMappings := func() *mappingStore {
		return &mappingStore{mappings: []*types.GuildChannel{
			{GuildID: 1, ChannelID: 11},
			{GuildID: 2, ChannelID: 22},
			{GuildID: 3, ChannelID: 33},
		}}
	}

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()

		mappings := newMappings()

		removed, err := bot.CleanupGuilds(t.Context(), mappings, bot.NewGuildSet(), zap.NewNop())
		require.NoError(t, err)
		assert.Zero(t, removed)
		assert.Empty(t, mappings.deleted)
	})

	t.Run("removes departed guilds", func(t *testing.T) {
		t.Parallel()

		mappings := newMappings()
		set := bot.NewGuildSet()
		set.Reset([]snowflake.ID{2})

		removed, err := bot.CleanupGuilds(t.Context(), mappings, set, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 2, removed)
		assert.ElementsMatch(t, []snowflake.ID{1, 3}, mappings.deleted)
	})
}
