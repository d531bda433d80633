// Package core holds the pieces shared by every worker.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// HeartbeatInterval is how often workers report their status.
	HeartbeatInterval = 10 * time.Second
	// HeartbeatTTL is how long a reported status is kept.
	HeartbeatTTL = 10 * time.Minute
	// StaleThreshold is how long before a silent worker is considered offline.
	StaleThreshold = time.Minute

	statusKeyPrefix = "worker:"
)

// Status is a worker's last reported state.
type Status struct {
	WorkerID    string    `json:"workerId"`
	WorkerType  string    `json:"workerType"`
	LastSeen    time.Time `json:"lastSeen"`
	CurrentTask string    `json:"currentTask,omitempty"`
	Progress    int       `json:"progress"`
	IsHealthy   bool      `json:"isHealthy"`
}

// IsStale reports whether the worker has not reported within StaleThreshold of now.
func (s Status) IsStale(now time.Time) bool {
	return now.Sub(s.LastSeen) > StaleThreshold
}

// Monitor stores and lists worker statuses in Redis.
type Monitor struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewMonitor creates a new worker status monitor.
func NewMonitor(client rueidis.Client, logger *zap.Logger) *Monitor {
	return &Monitor{
		client: client,
		logger: logger.Named("worker_monitor"),
	}
}

func statusKey(status Status) string {
	return fmt.Sprintf("%s%s:%s", statusKeyPrefix, status.WorkerType, status.WorkerID)
}

// ReportStatus stores a worker's status with a TTL.
func (m *Monitor) ReportStatus(ctx context.Context, status Status) error {
	status.LastSeen = time.Now()

	data, err := sonic.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	cmd := m.client.B().Set().Key(statusKey(status)).Value(string(data)).Ex(HeartbeatTTL).Build()
	if err := m.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to store status: %w", err)
	}

	return nil
}

// RemoveStatus deletes a worker's status.
func (m *Monitor) RemoveStatus(ctx context.Context, status Status) error {
	if err := m.client.Do(ctx, m.client.B().Del().Key(statusKey(status)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to remove status: %w", err)
	}

	return nil
}

// GetAllStatuses returns every stored worker status.
func (m *Monitor) GetAllStatuses(ctx context.Context) ([]Status, error) {
	keys, err := m.client.Do(ctx, m.client.B().Keys().Pattern(statusKeyPrefix+"*").Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to get worker keys: %w", err)
	}

	statuses := make([]Status, 0, len(keys))

	for _, key := range keys {
		data, err := m.client.Do(ctx, m.client.B().Get().Key(key).Build()).AsBytes()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}

			m.logger.Error("Failed to get worker status", zap.String("key", key), zap.Error(err))

			continue
		}

		var status Status
		if err := sonic.Unmarshal(data, &status); err != nil {
			m.logger.Error("Failed to unmarshal worker status", zap.String("key", key), zap.Error(err))
			continue
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}
