//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"sync"

	"tickmem/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

const (
	PROCESS_ALL_ACCESS = 0x1F0FFF
)

// WindowsProcess implements process.Process with a handle opened once with
// full access rights. The handle is released by Close.
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	log    *logger.Logger
	mu     sync.Mutex
}

var _ process.Process = (*WindowsProcess)(nil)

// New creates a new WindowsProcess instance
func New() *WindowsProcess {
	return &WindowsProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new WindowsProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (*WindowsProcess, error) {
	p := New()
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *WindowsProcess) Open(pid process.ProcessID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		return fmt.Errorf("process %d already open", p.pid)
	}

	handle, err := windows.OpenProcess(PROCESS_ALL_ACCESS, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("OpenProcess(%d): %w", pid, mapError(err, process.ErrProcessNotFound))
	}

	p.pid = pid
	p.handle = handle
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))

	p.log.Infoln("Process opened")
	return nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return nil
	}

	if err := windows.CloseHandle(p.handle); err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	p.handle = 0
	p.pid = 0

	p.log.Infoln("Process closed")
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// logger returns the current logger; Open and Close replace it.
func (p *WindowsProcess) logger() *logger.Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.log
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *WindowsProcess) getHandle() (windows.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return 0, process.ErrProcessNotOpen
	}
	return p.handle, nil
}

func (p *WindowsProcess) ReadMemoryInto(addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	handle, err := p.getHandle()
	if err != nil {
		return 0, err
	}

	var bytesRead uintptr
	err = windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(len(buf)), &bytesRead)
	if err != nil && bytesRead == 0 {
		return 0, fmt.Errorf("ReadProcessMemory at %s: %w", addr.ToString(), mapError(err, process.ErrShortRead))
	}

	if int(bytesRead) != len(buf) {
		return int(bytesRead), fmt.Errorf("ReadProcessMemory at %s: %w: %d of %d bytes", addr.ToString(), process.ErrShortRead, bytesRead, len(buf))
	}

	return int(bytesRead), nil
}

func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	handle, err := p.getHandle()
	if err != nil {
		return 0, err
	}

	var written uintptr
	err = windows.WriteProcessMemory(handle, uintptr(addr), &data[0], uintptr(len(data)), &written)
	if err != nil && written == 0 {
		return 0, fmt.Errorf("WriteProcessMemory at %s: %w", addr.ToString(), mapError(err, process.ErrShortWrite))
	}

	if int(written) != len(data) {
		return int(written), fmt.Errorf("WriteProcessMemory at %s: %w: %d of %d bytes", addr.ToString(), process.ErrShortWrite, written, len(data))
	}

	return int(written), nil
}

// mapError folds Win32 errors into the process error taxonomy. ERROR_PARTIAL_COPY,
// ERROR_NOACCESS and ERROR_INVALID_PARAMETER mean "unmapped" for memory calls
// and "no such pid" for OpenProcess, so the caller picks the target error.
func mapError(err error, target error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: %w", process.ErrAccessDenied, err)
	case errors.Is(err, windows.ERROR_PARTIAL_COPY),
		errors.Is(err, windows.ERROR_NOACCESS),
		errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		return fmt.Errorf("%w: %w", target, err)
	}
	return err
}
