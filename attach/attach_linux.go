//go:build linux

package attach

import (
	"tickmem/process"
	"tickmem/process_linux"
)

func openBackend(pid process.ProcessID) (process.Process, error) {
	return process_linux.NewWithPID(pid)
}
