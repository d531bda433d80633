package utils

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SleepResult represents the outcome of a context-aware sleep operation.
type SleepResult int

const (
	// SleepCompleted indicates the sleep duration completed normally.
	SleepCompleted SleepResult = iota
	// SleepCancelled indicates the context was cancelled during sleep.
	SleepCancelled
)

// ContextSleep sleeps for the specified duration while respecting context cancellation.
func ContextSleep(ctx context.Context, duration time.Duration) SleepResult {
	if duration <= 0 {
		if ctx.Err() != nil {
			return SleepCancelled
		}

		return SleepCompleted
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return SleepCompleted
	case <-ctx.Done():
		return SleepCancelled
	}
}

// ContextGuard reports whether the context is already cancelled.
// Loops call this before starting the next unit of work.
func ContextGuard(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// ContextGuardWithLog is ContextGuard with an info log when the context is cancelled.
func ContextGuardWithLog(ctx context.Context, logger *zap.Logger, cancelMessage string) bool {
	if !ContextGuard(ctx) {
		return false
	}

	if logger != nil && cancelMessage != "" {
		logger.Info(cancelMessage)
	}

	return true
}

// IntervalSleep pauses between iterations of a worker loop.
// Returns true if the worker should continue, false if it should return.
func IntervalSleep(ctx context.Context, duration time.Duration, logger *zap.Logger, workerName string) bool {
	if ContextSleep(ctx, duration) == SleepCompleted {
		return true
	}

	if logger != nil {
		logger.Info("Context cancelled during pause, stopping " + workerName)
	}

	return false
}

// ErrorSleep pauses after a failed iteration before the worker retries.
// Returns true if the worker should continue, false if it should return.
func ErrorSleep(ctx context.Context, duration time.Duration, logger *zap.Logger, workerName string) bool {
	if ContextSleep(ctx, duration) == SleepCompleted {
		return true
	}

	if logger != nil {
		logger.Info("Context cancelled during error wait, stopping " + workerName)
	}

	return false
}
