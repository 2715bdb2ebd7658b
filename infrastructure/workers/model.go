package workers

import (
	"context"
	"errors"
)

// ErrPermanent marks a Process error that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

// Task is anything with an ID.
type Task interface {
	GetID() string
}

// Processor handles the business logic for processing tasks
type Processor[T Task] interface {
	// Checkout gets the next available task. It must be safe for concurrent
	// workers and return ErrNoWorkAvailable when idle.
	Checkout(ctx context.Context, workerID string) (T, error)

	// Process executes the task and returns the processed task
	Process(ctx context.Context, task T) (T, error)

	// Complete is called when a task completes successfully
	Complete(ctx context.Context, task T, processingTimeMS int) error

	// Fail is called when a task fails
	Fail(ctx context.Context, task T, err error) error
}

// Notifier is implemented by processors that can signal new work, waking an
// idle worker before its idle interval runs out.
type Notifier interface {
	Ready() <-chan struct{}
}

// WorkFunc is the signature for the work function
type WorkFunc func(ctx context.Context, workerID string) error

// Middleware wraps a WorkFunc with additional behavior
type Middleware func(WorkFunc) WorkFunc

// PreProcessHook runs before Process
type PreProcessHook[T Task] func(ctx context.Context, task T) error

// PostProcessHook runs after Process (gets the result or error)
type PostProcessHook[T Task] func(ctx context.Context, task T, err error) error
