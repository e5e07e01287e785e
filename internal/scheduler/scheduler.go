// Package scheduler runs a job on a fixed period in the background.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matheuskafuri/newsdesk/internal/logger"
)

var ErrAlreadyStarted = errors.New("scheduler already started")

// Job is one unit of periodic work. Errors are logged, never fatal.
type Job func(ctx context.Context) error

type Scheduler struct {
	name     string
	interval time.Duration
	job      Job

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool

	runs atomic.Int64
}

func New(name string, interval time.Duration, job Job) *Scheduler {
	return &Scheduler{name: name, interval: interval, job: job}
}

// Start launches the loop. The first run happens one interval from now;
// callers wanting an immediate run do it themselves before Start.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler %s: interval must be > 0, got %v", s.name, s.interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.started = true
	go s.loop(ctx, s.done)

	logger.Infow("scheduler started", "job", s.name, "interval", s.interval)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.started = false
	s.mu.Unlock()

	cancel()
	<-done
	logger.Infow("scheduler stopped", "job", s.name, "runs", s.Runs())
}

// Runs reports how many times the job has been invoked by the loop.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

func (s *Scheduler) Interval() time.Duration { return s.interval }

// loop fires on a fixed period. A run that overruns the interval drops the
// ticks it missed; there is no catch-up.
func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.runs.Add(1)
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("scheduled job panicked", "job", s.name, "panic", r)
		}
	}()
	if err := s.job(ctx); err != nil {
		logger.Warnw("scheduled job failed, retrying next interval", "job", s.name, "error", err)
	}
}
