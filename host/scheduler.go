package host

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// defaultSchedulingLanes is the fixed lane count §2B/§5 describe as "a
// small number of independent scheduling lanes": at most this many sessions
// run at once across the whole executor, regardless of how many plugins or
// callers are involved. Within that bound, sessions run as ordinary
// goroutines and interleave the way they always have — via session.consumeFuel's
// runtime.Gosched — so two sessions in different lane slots still make
// measurable progress against each other rather than one blocking the
// other outright.
const defaultSchedulingLanes = 4

// scheduler is the fixed-capacity pool backing Executor.invoke. A weighted
// semaphore gates how many sessions run concurrently (the "lanes"); an
// errgroup supervises every goroutine the scheduler has ever spawned, so
// close can wait for all of them to drain instead of leaking goroutines
// past shutdown. This pairs the same two libraries SPEC_FULL's backpressure
// section names for this job, used for the two different things each is
// actually good at — semaphore for a context-aware bounded acquire,
// errgroup for join-on-shutdown — rather than errgroup.SetLimit alone,
// which cannot be made to respect a caller's context while blocked waiting
// for a slot.
type scheduler struct {
	sem *semaphore.Weighted
	grp *errgroup.Group
}

// newScheduler creates a scheduler with lanes concurrent slots.
func newScheduler(ctx context.Context, lanes int) *scheduler {
	if lanes < 1 {
		lanes = 1
	}
	grp, _ := errgroup.WithContext(ctx)
	return &scheduler{sem: semaphore.NewWeighted(int64(lanes)), grp: grp}
}

// submit blocks until a lane is free, runs fn on it, and blocks until fn
// completes or ctx is cancelled first. A cancellation after fn has already
// started does not interrupt it — fn is expected to honor ctx itself, the
// way Executor.runSession does via its own derived sessCtx.
func (s *scheduler) submit(ctx context.Context, fn func()) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan struct{})
	s.grp.Go(func() error {
		defer s.sem.Release(1)
		defer close(done)
		runLaneJob(fn)
		return nil
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLaneJob runs fn, recovering a panic so one guest's misbehavior can't
// take the scheduler's errgroup down with it — wazero itself already
// converts host-function panics into traps before they'd reach here, so
// this is a last-resort backstop rather than the primary trap path.
func runLaneJob(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// close waits for every goroutine the scheduler has spawned to finish.
func (s *scheduler) close() {
	_ = s.grp.Wait()
}
