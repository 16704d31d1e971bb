package process

import "fmt"

// ProcessID represents a unique identifier for a process
type ProcessID int

// Module describes an executable image or shared library mapped into a target process.
// A Module is a value: once resolved it never changes.
type Module struct {
	Name        string               // File name or path the module was matched on
	BaseAddress ProcessMemoryAddress // First byte of the authoritative mapping
	Size        ProcessMemorySize    // Size of the mapping in bytes
}

// Addr returns the remote address at offset bytes past the module base.
func (m Module) Addr(offset ProcessMemorySize) ProcessMemoryAddress {
	return m.BaseAddress + ProcessMemoryAddress(offset)
}

// End returns the first address past the module mapping.
func (m Module) End() ProcessMemoryAddress {
	return m.BaseAddress + ProcessMemoryAddress(m.Size)
}

func (m Module) Contains(addr ProcessMemoryAddress) bool {
	return addr >= m.BaseAddress && addr < m.End()
}

func (m Module) String() string {
	return fmt.Sprintf("%s@%s+%#x", m.Name, m.BaseAddress.ToString(), uint(m.Size))
}
