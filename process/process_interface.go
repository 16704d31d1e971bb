package process

// Accessor is the raw transfer contract every backend implements.
//
// ReadMemoryInto and WriteMemory report the number of bytes actually transferred.
// A backend returns ErrShortRead or ErrShortWrite when the count is below len(buf),
// but callers should still prefer the typed helpers in this package which enforce
// the exact-size rule regardless of what the backend reports.
//
// Implementations must be safe for concurrent reads. Concurrent writes to
// overlapping remote regions are not coordinated.
type Accessor interface {
	// GetPID returns the process ID
	GetPID() ProcessID

	// ReadMemoryInto copies len(buf) bytes from addr in the target into buf
	ReadMemoryInto(addr ProcessMemoryAddress, buf []byte) (int, error)

	// WriteMemory copies data into the target at addr
	WriteMemory(addr ProcessMemoryAddress, data []byte) (int, error)

	// Close releases the OS-level handle to the process
	Close() error
}

// ModuleResolver locates a loaded module by name.
type ModuleResolver interface {
	// ResolveModule returns the first module matching name
	ResolveModule(name string) (Module, error)

	// ListModules returns every module currently mapped into the process
	ListModules() ([]Module, error)
}

// Process is an attached target: raw memory access plus module lookup.
type Process interface {
	Accessor
	ModuleResolver
}
