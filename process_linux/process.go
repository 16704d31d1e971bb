//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"tickmem/process"
	"tickmem/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// LinuxProcess implements process.Process on top of process_vm_readv and
// process_vm_writev. No OS handle is held; the pid is the only capability,
// and the kernel re-checks ptrace access on every transfer.
type LinuxProcess struct {
	pid process.ProcessID
	log *logger.Logger
	mu  sync.Mutex
}

var _ process.Process = (*LinuxProcess)(nil)

// New creates a new LinuxProcess instance
func New() *LinuxProcess {
	return &LinuxProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (*LinuxProcess, error) {
	p := New()
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d: %w", pid, process.ErrProcessNotFound)
	}

	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
		}
		return fmt.Errorf("stat %s: %w", procPath, err)
	}

	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))

	p.mu.Lock()
	p.pid = pid
	p.log = log
	p.mu.Unlock()

	log.Infoln("Process opened")

	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil
	}

	p.pid = 0
	p.log.Infoln("Process closed")
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// logger returns the current logger; Open and Close replace it.
func (p *LinuxProcess) logger() *logger.Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// MemoryMap returns a fresh, address sorted copy of the target's mappings.
func (p *LinuxProcess) MemoryMap() ([]memory_map.MemoryMapItem, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	mm, err := memory_map.ReadMemoryMap(int(pid))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("read maps of pid %d: %w", pid, process.ErrAccessDenied)
		}
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	memory_map.Sort(mm)
	return mm, nil
}
