package process

import (
	"fmt"
	"unsafe"
)

// PointerSize is the width of a remote pointer. Only 64-bit targets are supported.
const PointerSize = ProcessMemorySize(8)

// SizeOf returns the number of bytes a Typed Value of type T occupies in the target.
func SizeOf[T any]() ProcessMemorySize {
	var t T
	return ProcessMemorySize(unsafe.Sizeof(t))
}

// Read transfers exactly SizeOf[T]() bytes from addr and reinterprets them as T.
// T must be plain data: integers, floats, fixed-size arrays or structs of those.
// Any other T fails with ErrPointerType before anything is read.
func Read[T any](acc Accessor, addr ProcessMemoryAddress) (T, error) {
	var t T
	if err := checkPlain[T](); err != nil {
		return t, err
	}
	size := int(unsafe.Sizeof(t))
	if size == 0 {
		return t, ErrZeroSizedType
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(&t)), size)
	if err := ReadInto(acc, addr, dst); err != nil {
		var zero T
		return zero, err
	}
	return t, nil
}

// Write transfers the in-memory representation of v to addr.
func Write[T any](acc Accessor, addr ProcessMemoryAddress, v T) error {
	if err := checkPlain[T](); err != nil {
		return err
	}
	size := int(unsafe.Sizeof(v))
	if size == 0 {
		return ErrZeroSizedType
	}

	src := make([]byte, size)
	copy(src, unsafe.Slice((*byte)(unsafe.Pointer(&v)), size))

	n, err := acc.WriteMemory(addr, src)
	if err != nil {
		return fmt.Errorf("write %d bytes at %s: %w", size, addr.ToString(), err)
	}
	if n != size {
		return fmt.Errorf("write at %s: %w: %d of %d bytes", addr.ToString(), ErrShortWrite, n, size)
	}
	return nil
}

// ReadInto fills buf from addr. Anything other than a full transfer is an error.
func ReadInto(acc Accessor, addr ProcessMemoryAddress, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	n, err := acc.ReadMemoryInto(addr, buf)
	if err != nil {
		return fmt.Errorf("read %d bytes at %s: %w", len(buf), addr.ToString(), err)
	}
	if n != len(buf) {
		return fmt.Errorf("read at %s: %w: %d of %d bytes", addr.ToString(), ErrShortRead, n, len(buf))
	}
	return nil
}

// ReadMemory reads size bytes from addr into a new buffer
func ReadMemory(acc Accessor, addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error) {
	buf := make([]byte, size)
	if err := ReadInto(acc, addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadString reads a NUL terminated string one byte at a time, stopping at the
// terminator, at the first unreadable byte, or after maxLength bytes.
//
// If the very first byte cannot be read the read error is returned. Hitting
// maxLength returns the prefix together with ErrUnterminatedString.
func ReadString(acc Accessor, addr ProcessMemoryAddress, maxLength ProcessMemorySize) (string, error) {
	var out []byte
	var b [1]byte

	for i := ProcessMemorySize(0); i < maxLength; i++ {
		if err := ReadInto(acc, addr+ProcessMemoryAddress(i), b[:]); err != nil {
			if i == 0 {
				return "", err
			}
			return string(out), nil
		}
		if b[0] == 0 {
			return string(out), nil
		}
		out = append(out, b[0])
	}

	return string(out), ErrUnterminatedString
}

// ReadPointer reads a pointer-sized value at addr
func ReadPointer(acc Accessor, addr ProcessMemoryAddress) (ProcessMemoryAddress, error) {
	v, err := Read[uint64](acc, addr)
	if err != nil {
		return 0, err
	}
	return ProcessMemoryAddress(v), nil
}

// ReadPath reads a value of type T at the end of a pointer path.
// It starts at base, adds the first offset, reads a pointer, adds the next offset, reads a pointer, etc.
// The last offset is added to the final pointer, and then T is read from that address.
// If offsets is empty, it reads T from base.
func ReadPath[T any](acc Accessor, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (T, error) {
	finalAddr, err := ResolvePath(acc, base, offsets...)
	if err != nil {
		var zero T
		return zero, err
	}

	val, err := Read[T](acc, finalAddr)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to read final value at 0x%x: %w", finalAddr, err)
	}

	return val, nil
}

// ResolvePath walks the pointer path described by ReadPath and returns the final address
// without reading from it.
func ResolvePath(acc Accessor, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (ProcessMemoryAddress, error) {
	currentAddr := base

	for i := 0; i < len(offsets)-1; i++ {
		ptrAddr := currentAddr + ProcessMemoryAddress(offsets[i])

		ptrVal, err := ReadPointer(acc, ptrAddr)
		if err != nil {
			return 0, fmt.Errorf("failed to read pointer at offset %d (addr 0x%x): %w", i, ptrAddr, err)
		}

		if ptrVal == 0 {
			return 0, fmt.Errorf("pointer at offset %d (addr 0x%x) is null: %w", i, ptrAddr, ErrInvalidPointer)
		}

		currentAddr = ptrVal
	}

	if len(offsets) > 0 {
		currentAddr += ProcessMemoryAddress(offsets[len(offsets)-1])
	}

	return currentAddr, nil
}
