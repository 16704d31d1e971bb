package process

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// ReadSlice reads count consecutive values of T starting at addr with a single transfer.
func ReadSlice[T any](acc Accessor, addr ProcessMemoryAddress, count int) ([]T, error) {
	if count < 0 {
		return nil, fmt.Errorf("read slice: negative count %d", count)
	}
	if err := checkPlain[T](); err != nil {
		return nil, err
	}

	size := int(SizeOf[T]())
	if size == 0 {
		return nil, ErrZeroSizedType
	}

	out := make([]T, count)
	if count == 0 {
		return out, nil
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), size*count)
	if err := ReadInto(acc, addr, dst); err != nil {
		return nil, fmt.Errorf("read %d x %d bytes: %w", count, size, err)
	}
	return out, nil
}

// ReadPointers reads a table of count pointers at addr and returns the
// non-null entries in table order.
func ReadPointers(acc Accessor, addr ProcessMemoryAddress, count int) ([]ProcessMemoryAddress, error) {
	if count < 0 {
		return nil, fmt.Errorf("read pointers: negative count %d", count)
	}

	raw := make([]byte, count*int(PointerSize))
	if err := ReadInto(acc, addr, raw); err != nil {
		return nil, fmt.Errorf("read pointer table at %s: %w", addr.ToString(), err)
	}

	var out []ProcessMemoryAddress
	for i := 0; i < count; i++ {
		if p := binary.LittleEndian.Uint64(raw[i*8:]); p != 0 {
			out = append(out, ProcessMemoryAddress(p))
		}
	}
	return out, nil
}
