package events

import (
	"fmt"

	"github.com/jrazmi/devcamper/infrastructure/workers"
)

// NewPool builds the worker pool that drains b, configured from the
// environment under prefix.
func NewPool(prefix string, b *Bus, opts ...workers.Option) (*workers.WorkerPool[Event], error) {
	opts = append([]workers.Option{
		workers.WithName("events"),
		workers.WithLogger(b.log.Logger),
	}, opts...)

	pool, err := workers.NewFromEnv[Event](prefix, b, opts...)
	if err != nil {
		return nil, fmt.Errorf("events pool: %w", err)
	}
	pool.AddPostProcessHooks(workers.LogOutcomeHook[Event](b.log.Logger))
	return pool, nil
}
