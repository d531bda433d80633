package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kwservices/xptracker/internal/queue"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	queueBoardKey   = "queue:message"
	queueBoardColor = 0x9B59B6
	queueBoardRows  = 15
)

var errNoQueueBoard = errors.New("queue status message is not placed")

// QueueSource lists the checks waiting to be processed.
type QueueSource interface {
	PendingChecks() []queue.Order
}

// QueueBoard keeps a single queue status message up to date.
// Its location is stored in Redis so it survives restarts.
type QueueBoard struct {
	client   rueidis.Client
	source   QueueSource
	messages MessageClient
	now      func() time.Time
	logger   *zap.Logger
}

// NewQueueBoard creates a queue status board.
func NewQueueBoard(client rueidis.Client, source QueueSource, messages MessageClient, logger *zap.Logger) *QueueBoard {
	return &QueueBoard{
		client:   client,
		source:   source,
		messages: messages,
		now:      time.Now,
		logger:   logger.Named("queue_board"),
	}
}

// Place posts a new status message in the channel and makes it the one kept current.
func (b *QueueBoard) Place(ctx context.Context, channelID snowflake.ID) (snowflake.ID, error) {
	embed := BuildQueueEmbed(b.source.PendingChecks(), b.now())

	message, err := b.messages.CreateMessage(
		channelID, discord.NewMessageCreateBuilder().SetEmbeds(embed).Build(), rest.WithCtx(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to post queue status: %w", err)
	}

	cmd := b.client.B().Hset().Key(queueBoardKey).FieldValue().
		FieldValue("channel", channelID.String()).
		FieldValue("message", message.ID.String()).
		Build()
	if err := b.client.Do(ctx, cmd).Error(); err != nil {
		return 0, fmt.Errorf("failed to store queue status message: %w", err)
	}

	return message.ID, nil
}

// Refresh edits the placed message. It does nothing when no message is placed.
// A message that can no longer be edited is forgotten.
func (b *QueueBoard) Refresh(ctx context.Context) error {
	channelID, messageID, err := b.location(ctx)
	if errors.Is(err, errNoQueueBoard) {
		return nil
	}

	if err != nil {
		return err
	}

	update := discord.NewMessageUpdateBuilder().
		SetEmbeds(BuildQueueEmbed(b.source.PendingChecks(), b.now())).
		Build()

	if _, err := b.messages.UpdateMessage(channelID, messageID, update, rest.WithCtx(ctx)); err != nil {
		b.logger.Warn("Queue status message is gone, forgetting it",
			zap.Uint64("channelID", uint64(channelID)),
			zap.Uint64("messageID", uint64(messageID)),
			zap.Error(err))

		if err := b.client.Do(ctx, b.client.B().Del().Key(queueBoardKey).Build()).Error(); err != nil {
			return fmt.Errorf("failed to forget queue status message: %w", err)
		}
	}

	return nil
}

func (b *QueueBoard) location(ctx context.Context) (snowflake.ID, snowflake.ID, error) {
	fields, err := b.client.Do(ctx, b.client.B().Hgetall().Key(queueBoardKey).Build()).AsStrMap()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get queue status message: %w", err)
	}

	if len(fields) == 0 {
		return 0, 0, errNoQueueBoard
	}

	channelID, err := snowflake.Parse(fields["channel"])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid queue status channel %q: %w", fields["channel"], err)
	}

	messageID, err := snowflake.Parse(fields["message"])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid queue status message %q: %w", fields["message"], err)
	}

	return channelID, messageID, nil
}

// BuildQueueEmbed renders the pending checks in processing order.
func BuildQueueEmbed(orders []queue.Order, now time.Time) discord.Embed {
	var sb strings.Builder

	if len(orders) == 0 {
		sb.WriteString("The queue is empty.")
	}

	for i, order := range orders {
		if i == queueBoardRows {
			fmt.Fprintf(&sb, "…and %d more", len(orders)-queueBoardRows)
			break
		}

		fmt.Fprintf(&sb, "%d. `%s` <@%d> · %s\n", i+1, order.RawID, order.RequestedBy, order.CorrelationID)
	}

	footer := fmt.Sprintf("%d checks queued", len(orders))
	if len(orders) == 1 {
		footer = "1 check queued"
	}

	return discord.NewEmbedBuilder().
		SetTitle("📝 Check Queue").
		SetDescription(sb.String()).
		SetColor(queueBoardColor).
		SetFooter(footer, "").
		SetTimestamp(now).
		Build()
}
