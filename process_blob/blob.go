// Package process_blob provides an Accessor over a local byte slice placed at
// an arbitrary remote base address. It stands in for a real target in tests
// and can be told to cap every transfer to simulate partially mapped memory.
package process_blob

import (
	"fmt"
	"sync"

	"tickmem/process"
)

type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
	pid         process.ProcessID
	modules     []process.Module

	// transferCap limits how many bytes a single transfer moves. Zero means unlimited.
	transferCap int
	// capSilently makes capped transfers report success with a short count
	// instead of returning ErrShortRead/ErrShortWrite.
	capSilently bool
	closed      bool

	mu sync.RWMutex
}

var _ process.Process = (*ProcessBlob)(nil)

// NewProcessBlob wraps data as the memory found at baseAddress. The slice is owned by the blob.
func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
		pid:         process.ProcessID(-1),
	}
}

// NewZeroed allocates size zero bytes at baseAddress.
func NewZeroed(baseAddress process.ProcessMemoryAddress, size process.ProcessMemorySize) *ProcessBlob {
	return NewProcessBlob(baseAddress, make([]byte, size))
}

func (p *ProcessBlob) BaseAddress() process.ProcessMemoryAddress {
	return p.baseaddress
}

func (p *ProcessBlob) Size() process.ProcessMemorySize {
	return process.ProcessMemorySize(len(p.data))
}

// SetTransferCap limits every following transfer to n bytes. When silent is
// true a capped transfer returns the short count with a nil error, mimicking
// a backend that only reports counts.
func (p *ProcessBlob) SetTransferCap(n int, silent bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transferCap = n
	p.capSilently = silent
}

// AddModule registers a module so ResolveModule can find it.
func (p *ProcessBlob) AddModule(m process.Module) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modules = append(p.modules, m)
}

// Data returns a copy of the current contents
func (p *ProcessBlob) Data() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

func (p *ProcessBlob) GetPID() process.ProcessID {
	return p.pid
}

// span returns how many bytes starting at addr are backed by data, capped to want.
func (p *ProcessBlob) span(addr process.ProcessMemoryAddress, want int) (offset int, n int) {
	end := p.baseaddress + process.ProcessMemoryAddress(len(p.data))
	if addr < p.baseaddress || addr >= end {
		return 0, 0
	}
	offset = int(addr - p.baseaddress)
	n = len(p.data) - offset
	if n > want {
		n = want
	}
	if p.transferCap > 0 && n > p.transferCap {
		n = p.transferCap
	}
	return offset, n
}

func (p *ProcessBlob) ReadMemoryInto(addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, process.ErrProcessNotOpen
	}

	offset, n := p.span(addr, len(buf))
	copy(buf[:n], p.data[offset:offset+n])

	if n != len(buf) && !(p.capSilently && n > 0) {
		return n, fmt.Errorf("blob read at %s: %w: %d of %d bytes", addr.ToString(), process.ErrShortRead, n, len(buf))
	}
	return n, nil
}

func (p *ProcessBlob) WriteMemory(addr process.ProcessMemoryAddress, data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, process.ErrProcessNotOpen
	}

	offset, n := p.span(addr, len(data))
	copy(p.data[offset:offset+n], data[:n])

	if n != len(data) && !(p.capSilently && n > 0) {
		return n, fmt.Errorf("blob write at %s: %w: %d of %d bytes", addr.ToString(), process.ErrShortWrite, n, len(data))
	}
	return n, nil
}

func (p *ProcessBlob) ResolveModule(name string) (process.Module, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if m, ok := process.FindModule(p.modules, name, process.MatchPrefix); ok {
		return m, nil
	}
	return process.Module{}, fmt.Errorf("%q: %w", name, process.ErrModuleNotFound)
}

func (p *ProcessBlob) ListModules() ([]process.Module, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]process.Module, len(p.modules))
	copy(out, p.modules)
	return out, nil
}

func (p *ProcessBlob) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
