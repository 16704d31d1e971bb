//go:build windows

package attach

import (
	"tickmem/process"
	"tickmem/process_windows"
)

func openBackend(pid process.ProcessID) (process.Process, error) {
	return process_windows.NewWithPID(pid)
}
