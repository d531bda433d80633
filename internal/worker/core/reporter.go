package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// StatusReporter periodically reports a worker's status.
type StatusReporter struct {
	monitor  *Monitor
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStatusReporter creates a status reporter for a worker type.
func NewStatusReporter(client rueidis.Client, workerType string, logger *zap.Logger) *StatusReporter {
	return &StatusReporter{
		monitor:  NewMonitor(client, logger),
		interval: HeartbeatInterval,
		logger:   logger.Named("status_reporter"),
		status: Status{
			WorkerID:   uuid.New().String(),
			WorkerType: workerType,
			IsHealthy:  true,
		},
	}
}

// Start reports immediately and then every heartbeat until Stop or ctx is done.
func (r *StatusReporter) Start(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.report(ctx)

		for {
			select {
			case <-ticker.C:
				r.report(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends reporting and removes the stored status.
func (r *StatusReporter) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	status := r.status
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	ctx, cleanup := context.WithTimeout(context.Background(), 5*time.Second)
	defer cleanup()

	if err := r.monitor.RemoveStatus(ctx, status); err != nil {
		r.logger.Warn("Failed to remove status", zap.Error(err))
	}
}

// UpdateStatus sets the current task and its progress percentage.
func (r *StatusReporter) UpdateStatus(task string, progress int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.CurrentTask = task
	r.status.Progress = progress
}

// SetHealthy updates the health flag.
func (r *StatusReporter) SetHealthy(healthy bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.IsHealthy = healthy
}

// GetWorkerID returns the unique worker ID.
func (r *StatusReporter) GetWorkerID() string {
	return r.status.WorkerID
}

// Snapshot returns the current status.
func (r *StatusReporter) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

func (r *StatusReporter) report(ctx context.Context) {
	if err := r.monitor.ReportStatus(ctx, r.Snapshot()); err != nil && ctx.Err() == nil {
		r.logger.Error("Failed to report status", zap.Error(err))
	}
}
