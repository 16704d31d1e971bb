// Package search locates byte signatures in a remote address space.
package search

import (
	"errors"
	"fmt"

	"tickmem/process"
)

// ErrPatternNotFound is returned once the scan runs out of readable memory or
// reaches its limit without a match.
var ErrPatternNotFound = errors.New("pattern not found")

const DefaultChunkSize = 4096

// Searcher holds configuration for a scan
type Searcher struct {
	Start     process.ProcessMemoryAddress
	Limit     process.ProcessMemoryAddress // exclusive end, 0 means unbounded
	ChunkSize int
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

func WithStart(addr process.ProcessMemoryAddress) Option {
	return func(s *Searcher) {
		s.Start = addr
	}
}

// WithLimit stops the scan before addr.
func WithLimit(addr process.ProcessMemoryAddress) Option {
	return func(s *Searcher) {
		s.Limit = addr
	}
}

func WithChunkSize(size int) Option {
	return func(s *Searcher) {
		s.ChunkSize = size
	}
}

// Find scans forward from the start address (0 unless configured) in chunks
// and returns the address of the first byte of the first match.
//
// Consecutive chunks overlap by len(pattern)-1 bytes so a match straddling a
// chunk boundary is still found. The scan ends with ErrPatternNotFound when a
// read transfers nothing, which is taken as the end of mapped memory, or when
// the limit is reached.
func Find(acc process.Accessor, pattern Pattern, options ...Option) (process.ProcessMemoryAddress, error) {
	s := &Searcher{ChunkSize: DefaultChunkSize}
	for _, opt := range options {
		opt(s)
	}

	if err := pattern.validate(); err != nil {
		return 0, err
	}
	if s.ChunkSize <= 0 {
		return 0, fmt.Errorf("invalid chunk size %d", s.ChunkSize)
	}

	overlap := pattern.Len() - 1
	// window holds the carried tail of the previous chunk followed by the new chunk
	window := make([]byte, overlap+s.ChunkSize)
	carried := 0
	addr := s.Start

	for s.Limit == 0 || addr < s.Limit {
		want := s.ChunkSize
		if s.Limit != 0 && process.ProcessMemoryAddress(want) > s.Limit-addr {
			want = int(s.Limit - addr)
		}

		n, err := acc.ReadMemoryInto(addr, window[carried:carried+want])
		if n <= 0 {
			if errors.Is(err, process.ErrAccessDenied) || errors.Is(err, process.ErrProcessNotFound) {
				return 0, err
			}
			break
		}

		data := window[:carried+n]
		if i := pattern.index(data); i >= 0 {
			return addr - process.ProcessMemoryAddress(carried) + process.ProcessMemoryAddress(i), nil
		}

		// keep the last overlap bytes for the next round
		keep := overlap
		if keep > len(data) {
			keep = len(data)
		}
		copy(window, data[len(data)-keep:])
		carried = keep

		next := addr + process.ProcessMemoryAddress(n)
		if next < addr {
			break
		}
		addr = next
	}

	return 0, fmt.Errorf("%s: %w", pattern.String(), ErrPatternNotFound)
}

// FindInModule scans only the mapping of m.
func FindInModule(acc process.Accessor, m process.Module, pattern Pattern, options ...Option) (process.ProcessMemoryAddress, error) {
	opts := append([]Option{WithStart(m.BaseAddress), WithLimit(m.End())}, options...)
	addr, err := Find(acc, pattern, opts...)
	if err != nil {
		return 0, fmt.Errorf("in %s: %w", m.Name, err)
	}
	return addr, nil
}

// Range is a half-open address interval [Start, End).
type Range struct {
	Start process.ProcessMemoryAddress
	End   process.ProcessMemoryAddress
}

// FindInRanges scans each range in order and returns the first match.
// Useful with a process memory map, where holes would otherwise end a plain Find.
func FindInRanges(acc process.Accessor, ranges []Range, pattern Pattern, options ...Option) (process.ProcessMemoryAddress, error) {
	for _, r := range ranges {
		opts := append([]Option{WithStart(r.Start), WithLimit(r.End)}, options...)
		addr, err := Find(acc, pattern, opts...)
		if err == nil {
			return addr, nil
		}
		if !errors.Is(err, ErrPatternNotFound) {
			return 0, err
		}
	}
	return 0, fmt.Errorf("%s in %d ranges: %w", pattern.String(), len(ranges), ErrPatternNotFound)
}

// FindAll returns up to limit match addresses in ascending order (all of them
// when limit <= 0). Matches may overlap. No match is not an error.
func FindAll(acc process.Accessor, pattern Pattern, limit int, options ...Option) ([]process.ProcessMemoryAddress, error) {
	s := &Searcher{}
	for _, opt := range options {
		opt(s)
	}

	var out []process.ProcessMemoryAddress
	next := s.Start
	for limit <= 0 || len(out) < limit {
		if s.Limit != 0 && next >= s.Limit {
			break
		}
		addr, err := Find(acc, pattern, append(options, WithStart(next))...)
		if errors.Is(err, ErrPatternNotFound) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, addr)
		next = addr + 1
	}
	return out, nil
}
