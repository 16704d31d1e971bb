//go:build !linux && !windows

package attach

import (
	"fmt"
	"runtime"

	"tickmem/process"
)

func openBackend(pid process.ProcessID) (process.Process, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, ErrUnsupportedPlatform)
}
