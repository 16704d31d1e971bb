package process

import (
	"context"
	"fmt"

	"tickmem/retry"
)

// WaitPointer reads the pointer stored at addr until it becomes non-zero.
// Targets often publish a pointer (local player, global vars) some time after
// startup; the wait is bounded by cfg and ends with retry.ErrTimeout.
//
// Read errors other than a short read are returned immediately.
func WaitPointer(ctx context.Context, acc Accessor, addr ProcessMemoryAddress, cfg retry.Config) (ProcessMemoryAddress, error) {
	var ptr ProcessMemoryAddress

	err := retry.Do(ctx, cfg, func() error {
		v, err := ReadPointer(acc, addr)
		if err != nil {
			return err
		}
		if v == 0 {
			return fmt.Errorf("pointer at %s: %w", addr.ToString(), ErrInvalidPointer)
		}
		ptr = v
		return nil
	}, func(err error) bool {
		return errorsIsAny(err, ErrInvalidPointer, ErrShortRead)
	})
	if err != nil {
		return 0, err
	}
	return ptr, nil
}
