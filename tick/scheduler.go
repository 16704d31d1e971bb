// Package tick paces work to the simulation ticks of a target process.
//
// The target advances its own tick and frame counters at a fixed rate. A
// Scheduler samples those counters once per cycle, skips cycles where nothing
// advanced, and otherwise sleeps one frame period minus however long the
// previous step took before running the next step. The step's own latency is
// fed back into the next sleep so the loop stays on the target's boundary.
package tick

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var (
	// ErrNotYetTime means the target has not advanced since the last step.
	// It is a control signal, not a failure: the caller should simply cycle again.
	ErrNotYetTime = errors.New("not yet time")

	// ErrStepFailed wraps any error returned by the step function.
	ErrStepFailed = errors.New("step failed")
)

// DefaultIdlePeriod is one tick at 64 ticks per second.
const DefaultIdlePeriod = 15625 * time.Microsecond

// State is the scheduler's memory of the last completed step.
type State struct {
	LastTick  float32
	LastFrame int32
	// Latency is how long the last successful step took.
	Latency time.Duration
}

// StepFunc is the caller supplied work run once per target tick.
type StepFunc func(ctx context.Context) error

type Scheduler struct {
	src        Source
	idlePeriod time.Duration
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	state     State
	lastSleep time.Duration
}

type Option func(*Scheduler)

// WithIdlePeriod sets how long a cycle sleeps when the target has not advanced.
func WithIdlePeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		s.idlePeriod = d
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) {
		s.now = now
		s.sleep = sleep
	}
}

func NewScheduler(src Source, options ...Option) *Scheduler {
	s := &Scheduler{
		src:        src,
		idlePeriod: DefaultIdlePeriod,
		now:        time.Now,
		sleep:      Sleep,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Cycle runs one pass of the scheduler state machine.
//
//   - source read fails: sleep the idle period, return the wrapped error
//   - (tick, frame) unchanged: sleep the idle period, return ErrNotYetTime
//   - otherwise: sleep max(0, frame period - previous latency), run step,
//     record its duration and the observed counters
//
// Any change in either counter counts as progress, including wraparound or a
// counter going backwards after the target restarted a match.
//
// A failing step returns an error wrapping ErrStepFailed and leaves the state
// untouched, so the same tick is attempted again on the next cycle.
func (s *Scheduler) Cycle(ctx context.Context, step StepFunc) error {
	sample, err := s.src.Sample(ctx)
	if err != nil {
		if sleepErr := s.sleep(ctx, s.idlePeriod); sleepErr != nil {
			return sleepErr
		}
		return fmt.Errorf("sample tick source: %w", err)
	}

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if !advanced(sample, state) {
		if err := s.sleep(ctx, s.idlePeriod); err != nil {
			return err
		}
		return ErrNotYetTime
	}

	wait := sample.FramePeriod - state.Latency
	if wait < 0 {
		wait = 0
	}

	s.mu.Lock()
	s.lastSleep = wait
	s.mu.Unlock()

	if err := s.sleep(ctx, wait); err != nil {
		return err
	}

	start := s.now()
	err = step(ctx)
	elapsed := s.now().Sub(start)

	if err != nil {
		return fmt.Errorf("%w: %w", ErrStepFailed, err)
	}

	s.mu.Lock()
	s.state = State{
		LastTick:  sample.Tick,
		LastFrame: sample.Frame,
		Latency:   elapsed,
	}
	s.mu.Unlock()

	return nil
}

// advanced compares the tick bit for bit, so a repeated NaN reads as
// unchanged and -0 differs from +0.
func advanced(sample Sample, state State) bool {
	return math.Float32bits(sample.Tick) != math.Float32bits(state.LastTick) ||
		sample.Frame != state.LastFrame
}

// State returns a copy of the tick state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastSleep returns the pacing sleep chosen by the most recent advancing cycle.
func (s *Scheduler) LastSleep() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSleep
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
