package tick

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"tickmem/process"
)

// Sample is one observation of the target's timing counters.
type Sample struct {
	Tick        float32
	Frame       int32
	FramePeriod time.Duration
}

// Source produces a Sample per scheduler cycle.
type Source interface {
	Sample(ctx context.Context) (Sample, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Sample, error)

func (f SourceFunc) Sample(ctx context.Context) (Sample, error) {
	return f(ctx)
}

// Layout locates the timing fields inside the target's global variables block.
// The tick counter is a float32, the frame counter an int32 and the frame
// time a float32 holding seconds.
type Layout struct {
	TickOffset      process.ProcessMemorySize
	FrameOffset     process.ProcessMemorySize
	FrameTimeOffset process.ProcessMemorySize
}

func (l Layout) span() process.ProcessMemorySize {
	end := l.TickOffset
	if l.FrameOffset > end {
		end = l.FrameOffset
	}
	if l.FrameTimeOffset > end {
		end = l.FrameTimeOffset
	}
	return end + 4
}

// MaxFramePeriod bounds the frame time taken from the target. A torn or
// garbage read must not park the scheduler for minutes.
const MaxFramePeriod = time.Second

// RemoteSource reads a Layout from the target with a single transfer per sample.
type RemoteSource struct {
	acc    process.Accessor
	layout Layout
	base   func() (process.ProcessMemoryAddress, error)
	buf    []byte
}

// NewRemoteSource reads the block at a fixed address.
func NewRemoteSource(acc process.Accessor, base process.ProcessMemoryAddress, layout Layout) *RemoteSource {
	return &RemoteSource{
		acc:    acc,
		layout: layout,
		base:   func() (process.ProcessMemoryAddress, error) { return base, nil },
		buf:    make([]byte, layout.span()),
	}
}

// NewRemotePointerSource dereferences pointerAddr every sample to find the
// block, for targets that reallocate their globals between matches.
func NewRemotePointerSource(acc process.Accessor, pointerAddr process.ProcessMemoryAddress, layout Layout) *RemoteSource {
	return &RemoteSource{
		acc:    acc,
		layout: layout,
		base: func() (process.ProcessMemoryAddress, error) {
			ptr, err := process.ReadPointer(acc, pointerAddr)
			if err != nil {
				return 0, err
			}
			if ptr == 0 {
				return 0, fmt.Errorf("globals pointer at %s: %w", pointerAddr.ToString(), process.ErrInvalidPointer)
			}
			return ptr, nil
		},
		buf: make([]byte, layout.span()),
	}
}

func (r *RemoteSource) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	base, err := r.base()
	if err != nil {
		return Sample{}, err
	}

	if err := process.ReadInto(r.acc, base, r.buf); err != nil {
		return Sample{}, err
	}

	return decodeSample(r.buf, r.layout), nil
}

func decodeSample(buf []byte, l Layout) Sample {
	tick := math.Float32frombits(binary.LittleEndian.Uint32(buf[l.TickOffset:]))
	frame := int32(binary.LittleEndian.Uint32(buf[l.FrameOffset:]))
	frameTime := math.Float32frombits(binary.LittleEndian.Uint32(buf[l.FrameTimeOffset:]))

	return Sample{
		Tick:        tick,
		Frame:       frame,
		FramePeriod: secondsToPeriod(frameTime),
	}
}

func secondsToPeriod(sec float32) time.Duration {
	if math.IsNaN(float64(sec)) || sec <= 0 {
		return 0
	}
	if float64(sec) >= MaxFramePeriod.Seconds() {
		return MaxFramePeriod
	}
	return time.Duration(float64(sec) * float64(time.Second))
}
