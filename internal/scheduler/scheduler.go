package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// CollectFunc runs one collection pass and reports how many locations
// succeeded.
type CollectFunc func(ctx context.Context) (int, error)

// Scheduler drives periodic collection runs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	collect   CollectFunc
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// New creates a Scheduler that invokes collect every interval, bounding each
// run by timeout.
func New(collect CollectFunc, interval, timeout time.Duration, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		collect:   collect,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// Singleton mode keeps a slow run from overlapping the next one. The first
// run fires one interval after start; the caller is expected to have run an
// initial collection already.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().WaitForSchedule().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.collect(ctx); err != nil {
			s.logger.Errorw("scheduled collection failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and blocks until an in-flight run returns.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Running reports whether the underlying scheduler has been started.
func (s *Scheduler) Running() bool {
	return s.scheduler.IsRunning()
}
