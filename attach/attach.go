// Package attach opens a target process with the backend for the running
// platform and resolves the modules a caller needs before any reads happen.
package attach

import (
	"context"
	"errors"
	"fmt"

	gops "github.com/shirou/gopsutil/v4/process"

	"tickmem/process"
	"tickmem/retry"
)

var ErrUnsupportedPlatform = errors.New("no memory backend for this platform")

// Target is an open process together with the modules resolved at attach time.
type Target struct {
	Process process.Process
	Modules *process.ModuleCache
	names   []string
}

// Open checks that pid exists and opens it with the platform backend.
func Open(pid process.ProcessID) (process.Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
	}

	ok, err := gops.PidExists(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("check pid %d: %w", pid, err)
	}
	if !ok {
		return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotFound)
	}

	return openBackend(pid)
}

// FindPID returns the first running process whose name equals name.
func FindPID(name string) (process.ProcessID, error) {
	procs, err := gops.Processes()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}
	for _, p := range procs {
		n, err := p.Name()
		if err == nil && n == name {
			return process.ProcessID(p.Pid), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", name, process.ErrProcessNotFound)
}

// Attach opens pid and resolves every module in modules. If any module is
// missing the process is closed again and the error wraps ErrModuleNotFound.
func Attach(pid process.ProcessID, modules ...string) (*Target, error) {
	p, err := Open(pid)
	if err != nil {
		return nil, err
	}
	return attachTo(p, modules...)
}

func attachTo(p process.Process, modules ...string) (*Target, error) {
	t := &Target{
		Process: p,
		Modules: process.NewModuleCache(),
		names:   modules,
	}
	if err := t.Modules.Refresh(p, modules...); err != nil {
		p.Close()
		return nil, err
	}
	return t, nil
}

// WaitModules opens pid and keeps resolving modules until all of them are
// loaded or cfg runs out. Use it when attaching to a target that is still
// starting up.
func WaitModules(ctx context.Context, pid process.ProcessID, cfg retry.Config, modules ...string) (*Target, error) {
	p, err := Open(pid)
	if err != nil {
		return nil, err
	}
	return waitModules(ctx, p, cfg, modules...)
}

func waitModules(ctx context.Context, p process.Process, cfg retry.Config, modules ...string) (*Target, error) {
	t := &Target{
		Process: p,
		Modules: process.NewModuleCache(),
		names:   modules,
	}

	err := retry.Do(ctx, cfg, func() error {
		return t.Modules.Refresh(p, modules...)
	}, func(err error) bool {
		return errors.Is(err, process.ErrModuleNotFound)
	})
	if err != nil {
		p.Close()
		return nil, err
	}
	return t, nil
}

// Module returns the module resolved for name at attach time.
func (t *Target) Module(name string) (process.Module, error) {
	return t.Modules.Lookup(name)
}

// Reload resolves the attach-time modules again, e.g. after the target
// unloaded and reloaded a library. The old snapshot survives a failure.
func (t *Target) Reload() error {
	return t.Modules.Refresh(t.Process, t.names...)
}

func (t *Target) Close() error {
	return t.Process.Close()
}
