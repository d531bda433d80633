package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/rest"
	"github.com/kwservices/xptracker/internal/notify"
	"github.com/kwservices/xptracker/internal/progress"
	"github.com/kwservices/xptracker/internal/redis"
	"github.com/kwservices/xptracker/internal/setup"
	"github.com/kwservices/xptracker/internal/setup/telemetry"
	"github.com/kwservices/xptracker/internal/worker/core"
	"github.com/kwservices/xptracker/internal/worker/reset"
	"github.com/kwservices/xptracker/internal/worker/tracking"
	"github.com/kwservices/xptracker/internal/xp"
	"github.com/kwservices/xptracker/pkg/utils"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// TrackingWorker reconciles tracked users against the stats API.
	TrackingWorker = "tracking"

	// ResetWorker applies the monthly counter reset on a schedule.
	ResetWorker = "reset"

	// restartDelay is the pause before a crashed worker restarts.
	restartDelay = 5 * time.Second
)

var ErrInvalidWorkerType = errors.New("invalid worker type")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "worker",
		Usage: "Start the xptracker workers",
		Commands: []*cli.Command{
			{
				Name:  TrackingWorker,
				Usage: "Start the tracking worker",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runWorker(ctx, TrackingWorker)
				},
			},
			{
				Name:  ResetWorker,
				Usage: "Start the monthly reset scheduler",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runWorker(ctx, ResetWorker)
				},
			},
			{
				Name:   "status",
				Usage:  "Show the status of running workers",
				Action: showStatus,
			},
		},
	}

	return app.Run(ctx, os.Args)
}

// runWorker initializes the application and runs one worker until ctx is cancelled.
func runWorker(ctx context.Context, workerType string) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir, workerType)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	cfg := app.Config
	logger := app.LogManager.GetWorkerLogger(workerType + "_worker")

	location, err := time.LoadLocation(cfg.Worker.Reset.Timezone)
	if err != nil {
		return fmt.Errorf("invalid reset timezone: %w", err)
	}

	resetService := reset.NewService(app.DB.Service().Tracking(), location, logger)

	statusClient, err := app.RedisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return err
	}

	reporter := core.NewStatusReporter(statusClient, workerType, logger)
	reporter.Start(ctx)
	defer reporter.Stop()

	bar := progress.NewBar(workerType, 25)
	startupDelay := time.Duration(cfg.Worker.StartupDelay) * time.Millisecond

	g, ctx := errgroup.WithContext(ctx)

	switch workerType {
	case TrackingWorker:
		settings := xp.FromConfig(&cfg.Common.XP)
		models := app.DB.Model()

		worker := tracking.New(tracking.Dependencies{
			Users:         models.TrackedUser(),
			Channels:      models.GuildChannel(),
			Progress:      app.DB.Service().Tracking(),
			Source:        app.Stats,
			Dispatcher:    notify.NewDiscord(rest.New(rest.NewClient(cfg.Common.Discord.Token)), settings, logger),
			Resetter:      resetService,
			Reporter:      reporter,
			Observer:      app.Metrics,
			Bar:           bar,
			Settings:      settings,
			UserDelay:     time.Duration(cfg.Worker.Tracking.UserDelay) * time.Millisecond,
			SweepInterval: time.Duration(cfg.Worker.Tracking.SweepInterval) * time.Second,
			Logger:        logger,
		})

		g.Go(func() error {
			if !waitForStartup(ctx, startupDelay, bar, logger) {
				return nil
			}

			restartOnPanic(ctx, logger, func() { worker.Start(ctx) })

			return nil
		})
	case ResetWorker:
		scheduler, err := reset.NewScheduler(resetService, cfg.Worker.Reset.Schedule, logger)
		if err != nil {
			return err
		}

		g.Go(func() error {
			if !waitForStartup(ctx, startupDelay, bar, logger) {
				return nil
			}

			bar.SetStep("Waiting for schedule")
			reporter.UpdateStatus("Waiting for schedule", 0)

			return scheduler.Run(ctx)
		})
	default:
		return fmt.Errorf("%w: %s", ErrInvalidWorkerType, workerType)
	}

	g.Go(func() error {
		progress.NewRenderer(bar).Render(ctx)
		return nil
	})

	log.Printf("Started %s worker", workerType)

	err = g.Wait()

	log.Println("Worker has finished. Exiting.")

	return err
}

// waitForStartup holds a worker back for the configured startup delay.
// It returns false when ctx is cancelled first.
func waitForStartup(ctx context.Context, delay time.Duration, bar *progress.Bar, logger *zap.Logger) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}

	bar.SetStep("Waiting to start")
	logger.Info("Delaying worker start", zap.Duration("delay", delay))

	return utils.ContextSleep(ctx, delay) == utils.SleepCompleted
}

// restartOnPanic runs fn until ctx is cancelled, restarting it after a panic or an early return.
func restartOnPanic(ctx context.Context, logger *zap.Logger, fn func()) {
	for ctx.Err() == nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Worker execution failed", zap.Any("panic", r))
				}
			}()

			logger.Info("Starting worker")
			fn()
		}()

		if ctx.Err() != nil {
			return
		}

		logger.Warn("Worker stopped unexpectedly, restarting", zap.Duration("delay", restartDelay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

// showStatus prints the last reported status of every worker.
func showStatus(ctx context.Context, _ *cli.Command) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir, "status")
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	statusClient, err := app.RedisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return err
	}

	statuses, err := core.NewMonitor(statusClient, app.Logger).GetAllStatuses(ctx)
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		fmt.Println("No workers are reporting")
		return nil
	}

	now := time.Now()
	for _, status := range statuses {
		state := "healthy"

		switch {
		case status.IsStale(now):
			state = "stale"
		case !status.IsHealthy:
			state = "unhealthy"
		}

		fmt.Printf("%-10s %-36s %-9s %3d%% %s\n",
			status.WorkerType, status.WorkerID, state, status.Progress, status.CurrentTask)
	}

	return nil
}
