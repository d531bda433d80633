package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kwservices/xptracker/internal/bot"
	"github.com/kwservices/xptracker/internal/cooldown"
	"github.com/kwservices/xptracker/internal/image"
	"github.com/kwservices/xptracker/internal/queue"
	"github.com/kwservices/xptracker/internal/redis"
	"github.com/kwservices/xptracker/internal/setup"
	"github.com/kwservices/xptracker/internal/setup/telemetry"
	"github.com/kwservices/xptracker/internal/tracker"
	"github.com/kwservices/xptracker/internal/xp"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceBot, BotLogDir)
	if err != nil {
		return err
	}
	defer app.Cleanup(context.Background())

	cfg := app.Config
	models := app.DB.Model()

	checks := queue.New(app.Stats, app.Logger,
		queue.WithItemDelay(time.Duration(cfg.Bot.Queue.ItemDelay)*time.Millisecond),
		queue.WithDedup(cfg.Bot.Queue.Dedup),
		queue.WithRateLimit(cfg.Common.Stats.RequestsPerSecond),
		queue.WithObserver(app.Metrics),
	)

	cooldowns := cooldown.New(models.Cooldown(), time.Duration(cfg.Bot.Cooldown)*time.Second, app.Logger)

	service := tracker.New(tracker.Dependencies{
		Users:         models.TrackedUser(),
		Channels:      models.GuildChannel(),
		AdminModes:    models.AdminMode(),
		Profiles:      app.Stats,
		Checks:        checks,
		Cooldowns:     cooldowns,
		ResultTimeout: time.Duration(cfg.Bot.Queue.ResultTimeout) * time.Millisecond,
		Logger:        app.Logger,
	})

	images, err := image.NewRenderer(cfg.Bot.ImageDir, app.Logger)
	if err != nil {
		return err
	}

	messageStore, err := app.RedisManager.GetClient(redis.LeaderboardDBIndex)
	if err != nil {
		return err
	}

	discordBot, err := bot.New(bot.Dependencies{
		Token:     cfg.Common.Discord.Token,
		Service:   service,
		Checks:    checks,
		Cooldowns: cooldowns,
		Mappings:  models.GuildChannel(),
		Images:    images,
		Cache:     bot.NewLeaderboardCache(messageStore),
		Redis:     messageStore,
		Config:    &cfg.Bot,
		Settings:  xp.FromConfig(&cfg.Common.XP),
		Logger:    app.Logger,
	})
	if err != nil {
		return err
	}
	defer discordBot.Close()

	log.Println("Bot is starting. Waiting for interrupt signal to gracefully shutdown...")

	return discordBot.Start(ctx)
}
