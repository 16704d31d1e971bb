//go:build linux

package process_linux

import (
	"fmt"

	"tickmem/process"
	"tickmem/process/memory_map"
)

// ResolveModule finds the first executable mapping whose path contains name.
//
// A shared object appears in the maps file once per segment (r--, r-x, rw-);
// only the executable segment is taken as the module, matching how the
// target's code addresses are laid out.
func (p *LinuxProcess) ResolveModule(name string) (process.Module, error) {
	mm, err := p.MemoryMap()
	if err != nil {
		return process.Module{}, err
	}

	m, ok := resolveModule(mm, name)
	if !ok {
		return process.Module{}, fmt.Errorf("%q in pid %d: %w", name, p.GetPID(), process.ErrModuleNotFound)
	}

	p.logger().Debugln("Resolved module", m.String())
	return m, nil
}

// ListModules returns the executable segment of every file-backed mapping.
func (p *LinuxProcess) ListModules() ([]process.Module, error) {
	mm, err := p.MemoryMap()
	if err != nil {
		return nil, err
	}
	return executableModules(mm), nil
}

func resolveModule(mm []memory_map.MemoryMapItem, name string) (process.Module, bool) {
	return process.FindModule(executableModules(mm), name, process.MatchSubstring)
}

func executableModules(mm []memory_map.MemoryMapItem) []process.Module {
	var out []process.Module
	for _, item := range mm {
		if !item.IsFileBacked() || !item.IsExecutable() {
			continue
		}
		out = append(out, process.Module{
			Name:        item.Path,
			BaseAddress: process.ProcessMemoryAddress(item.Address),
			Size:        process.ProcessMemorySize(item.Size),
		})
	}
	return out
}
