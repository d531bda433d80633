package bot_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/bot"
	"github.com/kwservices/xptracker/internal/queue"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type queueSource struct {
	orders []queue.Order
}

func (s *queueSource) PendingChecks() []queue.Order {
	return s.orders
}

func newQueueBoard(t *testing.T, source bot.QueueSource, messages *messageClient) (*bot.QueueBoard, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return bot.NewQueueBoard(client, source, messages, zap.NewNop()), mr
}

func TestQueueBoard(t *testing.T) {
	t.Parallel()

	messages := &messageClient{nextID: 40}
	board, mr := newQueueBoard(t, &queueSource{}, messages)
	ctx := t.Context()

	// Nothing is placed yet
	require.NoError(t, board.Refresh(ctx))
	assert.Empty(t, messages.updated)

	messageID, err := board.Place(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(41), messageID)
	assert.Equal(t, "9", mr.HGet("queue:message", "channel"))
	assert.Equal(t, "41", mr.HGet("queue:message", "message"))

	require.NoError(t, board.Refresh(ctx))
	assert.Equal(t, []snowflake.ID{41}, messages.updated)

	// A deleted message is forgotten instead of reposted
	messages.updateErr = errUnknownMessage

	require.NoError(t, board.Refresh(ctx))
	assert.False(t, mr.Exists("queue:message"))
	assert.Equal(t, []snowflake.ID{41}, messages.created)
}

func TestBuildQueueEmbed(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		embed := bot.BuildQueueEmbed(nil, now)
		assert.Equal(t, "The queue is empty.", embed.Description)
		require.NotNil(t, embed.Footer)
		assert.Equal(t, "0 checks queued", embed.Footer.Text)
	})

	t.Run("orders listed in processing order", func(t *testing.T) {
		t.Parallel()

		embed := bot.BuildQueueEmbed([]queue.Order{
			{RawID: "gaben", RequestedBy: 5, CorrelationID: "KWS000000000001"},
		}, now)
		assert.Equal(t, "1. `gaben` <@5> · KWS000000000001\n", embed.Description)
		assert.Equal(t, "1 check queued", embed.Footer.Text)
	})

	t.Run("long queues truncated", func(t *testing.T) {
		t.Parallel()

		orders := make([]queue.Order, 20)
		for i := range orders {
			orders[i] = queue.Order{RawID: fmt.Sprint(i), RequestedBy: 1}
		}

		embed := bot.BuildQueueEmbed(orders, now)
		assert.Equal(t, 15, strings.Count(embed.Description, "\n"))
		assert.True(t, strings.HasSuffix(embed.Description, "…and 5 more"))
		assert.Equal(t, "20 checks queued", embed.Footer.Text)
	})
}
