package fleet

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Runner is one unit of work.
type Runner interface {
	RunOnce(ctx context.Context, page int) error
}

// Scheduler fires a unit of work on every tick without waiting for the
// previous one. The page number rotates through 1..maxInFlight, and at most
// maxInFlight units run at once; a tick that finds them all busy is skipped.
type Scheduler struct {
	run         Runner
	interval    time.Duration
	maxInFlight int
	sem         *semaphore.Weighted
	wg          sync.WaitGroup
	page        int
}

func NewScheduler(run Runner, interval time.Duration, maxInFlight int) *Scheduler {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Scheduler{
		run:         run,
		interval:    interval,
		maxInFlight: maxInFlight,
		sem:         semaphore.NewWeighted(int64(maxInFlight)),
	}
}

// Run fires immediately and then on every tick until ctx is done. It
// returns once every unit it started has finished.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	s.fire(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping, waiting for running cycles")
			return
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

// next advances the rotating page counter. Skipped ticks advance it too.
func (s *Scheduler) next() int {
	s.page = s.page%s.maxInFlight + 1
	return s.page
}

func (s *Scheduler) fire(ctx context.Context) {
	// a tick and the cancellation can be ready together
	if ctx.Err() != nil {
		return
	}
	page := s.next()
	l := slog.With("function", "fire", "page", page)
	if !s.sem.TryAcquire(1) {
		l.Warn("all cycles still running, skipping tick", "max_in_flight", s.maxInFlight)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		logOutcome(l, s.run.RunOnce(ctx, page))
	}()
}
