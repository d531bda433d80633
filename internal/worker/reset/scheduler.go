package reset

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs catch-up resets on a cron schedule and once at startup.
type Scheduler struct {
	service  *Service
	schedule cron.Schedule
	now      func() time.Time
	logger   *zap.Logger
}

// NewScheduler parses expr as a standard five field cron expression.
func NewScheduler(service *Service, expr string, logger *zap.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid reset schedule %q: %w", expr, err)
	}

	return &Scheduler{
		service:  service,
		schedule: schedule,
		now:      time.Now,
		logger:   logger.Named("reset_scheduler"),
	}, nil
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.tick(ctx)

	cronLog := cronLogger{s.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(s.service.Location()),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.tick(ctx) }))

	c.Start()
	s.logger.Info("Reset scheduler started",
		zap.String("location", s.service.Location().String()),
		zap.Time("next", s.schedule.Next(s.now().In(s.service.Location()))))

	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("Reset scheduler stopped")

	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.service.ApplyIfDue(ctx, s.now(), true); err != nil {
		s.logger.Error("Failed to apply monthly reset", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
