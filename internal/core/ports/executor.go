// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"time"
)

// WorkItem is the planner→worker message: a named action, its fully
// resolved shell command, and the output paths joined by "|" so a failing
// worker can delete partial outputs.
type WorkItem struct {
	ActionName string
	Command    string
	Targets    string

	// Timeout bounds the command; zero means unbounded. Set for test runs.
	Timeout time.Duration
	// IsTest makes the worker recycle its scratch directory on success.
	IsTest bool
}

// WorkResult is the worker→planner completion message.
type WorkResult struct {
	WorkerID   int
	ActionName string
	Err        error
	Stderr     string
}

// Executor runs work items on a fixed pool of workers.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Start launches the worker pool. Workers terminate when Stop is
	// called; cancelling ctx kills running commands and makes Dispatch fail.
	Start(ctx context.Context, workers int) error

	// Dispatch hands an item to an idle worker. It fails fast once the
	// pool is cancelled.
	Dispatch(item WorkItem) error

	// Results delivers completion messages. The channel is closed after
	// Stop has drained the pool.
	Results() <-chan WorkResult

	// Stop sends shutdown sentinels to all workers and waits for them.
	Stop() error
}
