// Package poll drives tick.Scheduler cycles forever.
//
// A Loop never stops on its own: "not yet time", failed steps and unreadable
// timing fields are counted, logged at debug level and skipped. The only way
// out is cancelling the context, which is how an outer supervisor (signal
// handler, hotkey listener) ends a monitor.
package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"tickmem/tick"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Stats counts what a Loop did with each cycle.
type Stats struct {
	Cycles   uint64
	Steps    uint64 // step ran and succeeded
	Skips    uint64 // target had not advanced
	Failures uint64 // step returned an error
	Errors   uint64 // tick source could not be read
}

type Loop struct {
	name      string
	scheduler *tick.Scheduler
	step      tick.StepFunc
	log       *logger.Logger

	cycles   atomic.Uint64
	steps    atomic.Uint64
	skips    atomic.Uint64
	failures atomic.Uint64
	errs     atomic.Uint64
}

// NewLoop pairs a scheduler with the step it paces. Each Loop must own its scheduler.
func NewLoop(name string, scheduler *tick.Scheduler, step tick.StepFunc) *Loop {
	return &Loop{
		name:      name,
		scheduler: scheduler,
		step:      step,
		log:       logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("poll-%s", name))),
	}
}

func (l *Loop) Name() string {
	return l.name
}

// Run cycles until ctx is done and then returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	l.log.Infoln("Loop started")
	defer l.log.Infoln("Loop stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := l.scheduler.Cycle(ctx, l.step)
		l.cycles.Add(1)

		switch {
		case err == nil:
			l.steps.Add(1)
		case errors.Is(err, tick.ErrNotYetTime):
			l.skips.Add(1)
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, tick.ErrStepFailed):
			l.failures.Add(1)
			l.log.Debugln("Step skipped:", err)
		default:
			l.errs.Add(1)
			l.log.Debugln("Cycle skipped:", err)
		}
	}
}

func (l *Loop) Stats() Stats {
	return Stats{
		Cycles:   l.cycles.Load(),
		Steps:    l.steps.Load(),
		Skips:    l.skips.Load(),
		Failures: l.failures.Load(),
		Errors:   l.errs.Load(),
	}
}

// Group runs independent loops side by side, one goroutine each. Loops may
// share an Accessor but never a Scheduler.
type Group struct {
	wg    sync.WaitGroup
	mu    sync.Mutex
	loops []*Loop
}

// Go starts loop in its own goroutine.
func (g *Group) Go(ctx context.Context, loop *Loop) {
	g.mu.Lock()
	g.loops = append(g.loops, loop)
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		_ = loop.Run(ctx)
	}()
}

// Wait blocks until every loop has returned, i.e. until their context is done.
func (g *Group) Wait() {
	g.wg.Wait()
}

// Stats returns the counters of every loop keyed by name.
func (g *Group) Stats() map[string]Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]Stats, len(g.loops))
	for _, l := range g.loops {
		out[l.name] = l.Stats()
	}
	return out
}
