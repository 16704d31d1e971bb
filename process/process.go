// Package process defines the platform-neutral contract for reading and writing
// the memory of another process, the module descriptors used to build remote
// addresses, and the typed helpers layered on top of a raw Accessor.
package process

import "errors"

var (
	// ErrProcessNotFound is returned when the target PID does not exist or has exited.
	ErrProcessNotFound = errors.New("process not found")

	// ErrModuleNotFound is returned when no loaded module matches the requested name
	// after a full enumeration pass.
	ErrModuleNotFound = errors.New("module not found")

	// ErrAccessDenied is returned when the operating system rejects the memory operation.
	ErrAccessDenied = errors.New("access denied")

	// ErrShortRead is returned when fewer bytes than requested were transferred from the target.
	ErrShortRead = errors.New("short read")

	// ErrShortWrite is returned when fewer bytes than requested were transferred to the target.
	ErrShortWrite = errors.New("short write")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	ErrInvalidPointer = errors.New("invalid pointer read")

	ErrZeroSizedType = errors.New("zero sized type")

	// ErrPointerType is returned by the typed helpers when T contains Go pointers.
	ErrPointerType = errors.New("type is not plain data")

	// ErrUnterminatedString is returned by ReadString when maxLength bytes were read without
	// finding a NUL terminator. The prefix read so far is still returned.
	ErrUnterminatedString = errors.New("string not terminated within max length")
)
