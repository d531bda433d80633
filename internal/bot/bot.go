// Package bot runs the Discord gateway client serving the tracking commands.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/kwservices/xptracker/internal/image"
	"github.com/kwservices/xptracker/internal/notify"
	"github.com/kwservices/xptracker/internal/setup/config"
	"github.com/kwservices/xptracker/internal/tracker"
	"github.com/kwservices/xptracker/internal/xp"
	"github.com/redis/rueidis"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Checks is the part of the check queue driven by the bot.
type Checks interface {
	TriggerIfIdle(ctx context.Context) bool
	Close()
}

// CooldownPurger removes elapsed cooldown entries.
type CooldownPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// Dependencies holds the collaborators of the bot.
type Dependencies struct {
	Token     string
	Service   *tracker.Service
	Checks    Checks
	Cooldowns CooldownPurger
	Mappings  GuildMappings
	Images    *image.Renderer
	Cache     *LeaderboardCache
	Redis     rueidis.Client
	Config    *config.BotConfig
	Settings  xp.Settings
	Logger    *zap.Logger
}

// Bot handles Discord interactions and the bot's periodic loops.
type Bot struct {
	client      bot.Client
	service     *tracker.Service
	checks      Checks
	cooldowns   CooldownPurger
	mappings    GuildMappings
	images      *image.Renderer
	cache       *LeaderboardCache
	leaderboard *LeaderboardPoster
	queueBoard  *QueueBoard
	dispatcher  notify.Dispatcher
	guilds      *GuildSet
	config      *config.BotConfig
	settings    xp.Settings
	resetZone   *time.Location
	ctx         context.Context
	logger      *zap.Logger
}

// New creates the bot and its Discord client.
func New(deps Dependencies) (*Bot, error) {
	resetZone, err := time.LoadLocation(WeeklyResetZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly reset timezone: %w", err)
	}

	b := &Bot{
		service:   deps.Service,
		checks:    deps.Checks,
		cooldowns: deps.Cooldowns,
		mappings:  deps.Mappings,
		images:    deps.Images,
		cache:     deps.Cache,
		guilds:    NewGuildSet(),
		config:    deps.Config,
		settings:  deps.Settings,
		resetZone: resetZone,
		ctx:       context.Background(),
		logger:    deps.Logger.Named("bot"),
	}

	client, err := disgo.New(deps.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
			),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnReady:                         b.onReady,
			OnGuildReady:                    b.onGuildReady,
			OnGuildJoin:                     b.onGuildJoin,
			OnGuildLeave:                    b.onGuildLeave,
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	b.client = client
	b.dispatcher = notify.NewDiscord(client.Rest(), deps.Settings, deps.Logger)
	b.leaderboard = NewLeaderboardPoster(
		deps.Service, deps.Mappings, client.Rest(), deps.Cache, tracker.DefaultLeaderboardSize, b.logger,
	)
	b.queueBoard = NewQueueBoard(deps.Redis, deps.Service, client.Rest(), b.logger)

	return b, nil
}

// Start registers the commands, opens the gateway and runs the loops until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	b.logger.Info("Registering commands")

	if _, err := b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), Commands()); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info("Starting bot")

	if err := b.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	wg := conc.NewWaitGroup()
	wg.Go(func() { b.runQueueLoop(ctx) })
	wg.Go(func() { b.runGuildCleanupLoop(ctx) })
	wg.Go(func() { b.runImageCleanupLoop(ctx) })
	wg.Go(func() { b.runLeaderboardLoop(ctx) })
	wg.Go(func() { b.runPresenceLoop(ctx) })
	wg.Go(func() { b.runQueueBoardLoop(ctx) })

	if recovered := wg.WaitAndRecover(); recovered != nil {
		b.logger.Error("Bot loop panicked", zap.String("panic", recovered.String()))
		return recovered.AsError()
	}

	return nil
}

// Close stops the check queue and the gateway connection.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")
	b.checks.Close()
	b.client.Close(context.Background())
}
