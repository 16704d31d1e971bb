package poll

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickmem/process"
	"tickmem/process_blob"
	"tickmem/tick"
)

func instantSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// advancing returns a source whose frame counter moves on every sample.
func advancing() tick.Source {
	var frame atomic.Int32
	return tick.SourceFunc(func(ctx context.Context) (tick.Sample, error) {
		return tick.Sample{Tick: 1, Frame: frame.Add(1)}, nil
	})
}

func newInstantScheduler(src tick.Source) *tick.Scheduler {
	return tick.NewScheduler(src, tick.WithClock(time.Now, instantSleep))
}

func TestLoopSurvivesFailingSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	loop := NewLoop("failing", newInstantScheduler(advancing()), func(ctx context.Context) error {
		calls++
		if calls <= 3 {
			return errors.New("entity list not ready")
		}
		if calls == 8 {
			cancel()
		}
		return nil
	})

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	stats := loop.Stats()
	assert.Equal(t, uint64(3), stats.Failures)
	assert.Equal(t, uint64(5), stats.Steps)
	assert.Equal(t, uint64(8), stats.Cycles)
}

func TestLoopSkipsWhenNotAdvanced(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	samples := 0
	src := tick.SourceFunc(func(ctx context.Context) (tick.Sample, error) {
		samples++
		if samples == 10 {
			cancel()
		}
		return tick.Sample{Tick: 7, Frame: 7}, nil
	})

	loop := NewLoop("idle", newInstantScheduler(src), func(ctx context.Context) error { return nil })

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	stats := loop.Stats()
	assert.Equal(t, uint64(1), stats.Steps)
	assert.Equal(t, uint64(8), stats.Skips)
	assert.Zero(t, stats.Failures)
}

func TestLoopSurvivesSourceErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var frame int32
	src := tick.SourceFunc(func(ctx context.Context) (tick.Sample, error) {
		frame++
		if frame%2 == 1 {
			return tick.Sample{}, process.ErrShortRead
		}
		return tick.Sample{Tick: 1, Frame: frame}, nil
	})

	steps := 0
	loop := NewLoop("flaky", newInstantScheduler(src), func(ctx context.Context) error {
		steps++
		if steps == 3 {
			cancel()
		}
		return nil
	})

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	stats := loop.Stats()
	assert.Equal(t, uint64(3), stats.Steps)
	assert.Equal(t, uint64(3), stats.Errors)
}

func TestLoopReturnsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	loop := NewLoop("cancelled", newInstantScheduler(advancing()), func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, loop.Run(ctx), context.Canceled)
	assert.False(t, called)
	assert.Zero(t, loop.Stats().Cycles)
}

func TestGroupRunsLoopsIndependently(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var a, b atomic.Int64
	period := 10 * time.Millisecond
	periodic := func() tick.Source {
		var frame atomic.Int32
		return tick.SourceFunc(func(ctx context.Context) (tick.Sample, error) {
			return tick.Sample{Frame: frame.Add(1), FramePeriod: period}, nil
		})
	}

	var g Group
	g.Go(ctx, NewLoop("a", tick.NewScheduler(periodic()), func(ctx context.Context) error { a.Add(1); return nil }))
	g.Go(ctx, NewLoop("b", tick.NewScheduler(periodic()), func(ctx context.Context) error { b.Add(1); return nil }))
	g.Wait()

	assert.Positive(t, a.Load())
	assert.Positive(t, b.Load())

	stats := g.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, uint64(a.Load()), stats["a"].Steps)
	assert.Equal(t, uint64(b.Load()), stats["b"].Steps)
}

// The target advances its tick every 100ms and reports a 0.1s frame time.
// The step should run once per target tick.
func TestLoopTracksRemoteTickRate(t *testing.T) {
	if testing.Short() {
		t.Skip("wall clock test")
	}

	const base = process.ProcessMemoryAddress(0x7f0011220000)
	layout := tick.Layout{TickOffset: 0x40, FrameOffset: 0x04, FrameTimeOffset: 0x0C}

	// publish writes the whole block in one transfer so a sample never sees
	// tick and frame from different target ticks.
	blob := process_blob.NewZeroed(base, 0x100)
	publish := func(n int32) error {
		block := make([]byte, 0x44)
		binary.LittleEndian.PutUint32(block[0x04:], uint32(n))
		binary.LittleEndian.PutUint32(block[0x0C:], math.Float32bits(0.1))
		binary.LittleEndian.PutUint32(block[0x40:], math.Float32bits(float32(n)))
		_, err := blob.WriteMemory(base, block)
		return err
	}
	require.NoError(t, publish(1))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for n := int32(2); ; n++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = publish(n)
			}
		}
	}()

	var mu sync.Mutex
	var stamps []time.Time
	src := tick.NewRemoteSource(blob, base, layout)
	loop := NewLoop("remote", tick.NewScheduler(src), func(ctx context.Context) error {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		return nil
	})

	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	require.GreaterOrEqual(t, len(stamps), 15)
	assert.LessOrEqual(t, len(stamps), 21)

	mean := stamps[len(stamps)-1].Sub(stamps[0]) / time.Duration(len(stamps)-1)
	assert.InDelta(t, float64(100*time.Millisecond), float64(mean), float64(10*time.Millisecond))

	intervals := make([]time.Duration, 0, len(stamps)-1)
	outside := 0
	for i := 1; i < len(stamps); i++ {
		d := stamps[i].Sub(stamps[i-1])
		intervals = append(intervals, d)
		if d < 90*time.Millisecond || d > 110*time.Millisecond {
			outside++
		}
	}
	slices.Sort(intervals)
	median := intervals[len(intervals)/2]
	assert.InDelta(t, float64(100*time.Millisecond), float64(median), float64(10*time.Millisecond))
	assert.LessOrEqual(t, outside, len(intervals)/4, "intervals: %v", intervals)
	assert.GreaterOrEqual(t, intervals[0], 80*time.Millisecond, "steps ran in a burst")
}
