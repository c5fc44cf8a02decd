package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/insideout-platform/notify-service/pkg/logger"
)

// Job is one periodic task. Run errors are logged and never stop the ticker.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives independent interval jobs. Each job runs on its own
// goroutine with at most one invocation in flight: ticks that fire while a
// run is still executing are dropped by the ticker, so a slow cycle
// coalesces instead of stacking.
type Scheduler struct {
	jobs   []Job
	logger *logger.Logger
}

func NewScheduler(logger *logger.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

func (s *Scheduler) AddJob(job Job) {
	if job.Interval <= 0 {
		panic("job interval must be greater than 0")
	}
	s.jobs = append(s.jobs, job)
}

// Start blocks until ctx is cancelled and every job goroutine has stopped.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.runJob(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.logger.Info("starting periodic job", "job", job.Name, "interval", job.Interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping periodic job", "job", job.Name)
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

// runOnce isolates a single tick: a panic inside one run is recovered so the
// job keeps ticking, and a failure in one job never affects the other.
func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Errorf("panic: %v", r), "periodic job panicked", "job", job.Name)
		}
	}()

	if err := job.Run(ctx); err != nil {
		s.logger.Error(err, "periodic job failed", "job", job.Name)
	}
}
