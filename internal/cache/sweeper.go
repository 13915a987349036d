package cache

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"readcache/internal/common/logging"
)

// Sweeper periodically evicts local entries older than maxAge to bound
// memory growth. It never touches the remote tier, which expires entries
// natively. Runs until Stop is called at shutdown.
type Sweeper[T any] struct {
	local  *LocalStore[T]
	maxAge time.Duration
	logger logging.Logger
	cron   *cron.Cron
}

// NewSweeper creates a sweeper over the given local store. It does not run
// until Start is called.
func NewSweeper[T any](local *LocalStore[T], interval, maxAge time.Duration, logger logging.Logger) *Sweeper[T] {
	s := &Sweeper[T]{
		local:  local,
		maxAge: maxAge,
		logger: logger.WithFields(logging.Field{Key: "component", Value: "sweeper"}),
		cron:   cron.New(),
	}
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.Sweep))
	return s
}

// Start begins the periodic sweep.
func (s *Sweeper[T]) Start() {
	s.cron.Start()
}

// Sweep runs one eviction pass. Exposed so shutdown-adjacent code and tests
// can force a pass without waiting for the schedule.
func (s *Sweeper[T]) Sweep() {
	if evicted := s.local.EvictOlderThan(s.maxAge); evicted > 0 {
		s.logger.Debug("swept stale local entries",
			logging.Field{Key: "evicted", Value: evicted},
			logging.Field{Key: "max_age", Value: s.maxAge})
	}
}

// Stop cancels the schedule and waits for any in-flight sweep to finish, or
// for ctx to expire.
func (s *Sweeper[T]) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
