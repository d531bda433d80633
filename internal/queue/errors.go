package queue

import "errors"

var (
	// ErrResultTimeout indicates the check did not complete within the wait timeout.
	ErrResultTimeout = errors.New("timed out waiting for check result")
	// ErrUnknownCorrelation indicates no pending check has the given correlation id.
	ErrUnknownCorrelation = errors.New("unknown correlation id")
	// ErrQueueClosed indicates the queue no longer accepts checks.
	ErrQueueClosed = errors.New("check queue is closed")
	// ErrCheckPanicked indicates processing of a single check panicked.
	ErrCheckPanicked = errors.New("check processing panicked")
)
