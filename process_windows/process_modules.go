//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"unsafe"

	"tickmem/process"

	"golang.org/x/sys/windows"
)

// ResolveModule walks a Toolhelp32 module snapshot and returns the first
// module whose name starts with name.
func (p *WindowsProcess) ResolveModule(name string) (process.Module, error) {
	mods, err := p.ListModules()
	if err != nil {
		return process.Module{}, err
	}

	m, ok := process.FindModule(mods, name, process.MatchPrefix)
	if !ok {
		return process.Module{}, fmt.Errorf("%q in pid %d: %w", name, p.GetPID(), process.ErrModuleNotFound)
	}

	p.logger().Debugln("Resolved module", m.String())
	return m, nil
}

// ListModules snapshots every module loaded in the process, in load order.
func (p *WindowsProcess) ListModules() ([]process.Module, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	snapshot, err := moduleSnapshot(uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot(%d): %w", pid, err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Module32First(snapshot, &entry); err != nil {
		return nil, fmt.Errorf("Module32First: %w", err)
	}

	var out []process.Module
	for {
		out = append(out, process.Module{
			Name:        windows.UTF16ToString(entry.Module[:]),
			BaseAddress: process.ProcessMemoryAddress(entry.ModBaseAddr),
			Size:        process.ProcessMemorySize(entry.ModBaseSize),
		})

		if err := windows.Module32Next(snapshot, &entry); err != nil {
			break
		}
	}

	return out, nil
}

// ErrArchitectureMismatch is returned when a module snapshot is refused
// because the target's bitness differs from this build's.
var ErrArchitectureMismatch = errors.New("target architecture differs from this build")

// snapshotAttempts bounds the retries on ERROR_BAD_LENGTH, which Toolhelp
// returns while the target is loading or unloading modules.
const snapshotAttempts = 5

type snapshotFunc func(flags uint32, pid uint32) (windows.Handle, error)

func moduleSnapshot(pid uint32) (windows.Handle, error) {
	return takeSnapshot(windows.CreateToolhelp32Snapshot, pid)
}

func takeSnapshot(create snapshotFunc, pid uint32) (windows.Handle, error) {
	var err error
	for attempt := 0; attempt < snapshotAttempts; attempt++ {
		var h windows.Handle
		h, err = create(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, pid)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, windows.ERROR_BAD_LENGTH) {
			break
		}
	}
	return 0, mapSnapshotError(err)
}

// mapSnapshotError differs from mapError: for CreateToolhelp32Snapshot,
// ERROR_PARTIAL_COPY means a 32/64-bit mismatch, and ERROR_BAD_LENGTH that
// the module list kept changing.
func mapSnapshotError(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_PARTIAL_COPY):
		return fmt.Errorf("%w: %w", ErrArchitectureMismatch, err)
	case errors.Is(err, windows.ERROR_BAD_LENGTH):
		return fmt.Errorf("module list still changing after %d attempts: %w", snapshotAttempts, err)
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: %w", process.ErrAccessDenied, err)
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		return fmt.Errorf("%w: %w", process.ErrProcessNotFound, err)
	}
	return err
}
