package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disgoorg/disgo/discord"
	"github.com/kwservices/xptracker/internal/tracker"
	"go.uber.org/zap"
)

// handleCheck queues a profile check, waits for its result and renders it.
func (b *Bot) handleCheck(ctx context.Context, in interaction) {
	rawID := in.data.String(optionSteamID)

	correlationID, err := b.service.EnqueueCheck(ctx, tracker.CheckRequest{
		RawID:      rawID,
		Requester:  in.userID,
		Channel:    in.event.Channel().ID(),
		Privileged: in.privileged,
	})
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	b.respondText(in.event, fmt.Sprintf("Checking `%s`... (queue position %d of %d, check `%s`)",
		rawID, max(b.service.QueuePosition(correlationID), 1), max(b.service.QueueLength(), 1), correlationID))

	result, err := b.service.AwaitCheck(ctx, correlationID)
	if err != nil {
		b.respondError(in.event, err)
		return
	}

	if !result.Success {
		b.respondError(in.event, result.Err)
		return
	}

	embed := BuildCheckEmbed(result.Report, b.settings, correlationID)
	builder := discord.NewMessageUpdateBuilder().
		SetContent("")

	path, err := b.images.RenderCheck(result.Report, correlationID)
	if err != nil {
		b.logger.Warn("Failed to render check image",
			zap.Error(err),
			zap.String("correlationID", correlationID))
		b.respond(in.event, builder.SetEmbeds(embed).Build())
		return
	}

	file, err := os.Open(path)
	if err != nil {
		b.logger.Warn("Failed to open check image", zap.Error(err), zap.String("path", path))
		b.respond(in.event, builder.SetEmbeds(embed).Build())
		return
	}
	defer file.Close()

	fileName := filepath.Base(path)
	embed.Image = &discord.EmbedResource{URL: "attachment://" + fileName}

	b.respond(in.event, builder.
		SetEmbeds(embed).
		AddFiles(discord.NewFile(fileName, "", file)).
		Build())
}
