//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"unsafe"

	"tickmem/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv copies len(localBuf) bytes from remoteAddr in pid into localBuf
// with a single syscall, returning the number of bytes the kernel transferred.
func process_vm_readv(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, unix.Errno) {
	// Create iovec for local buffer
	localIov := unix.Iovec{Base: &localBuf[0]}
	localIov.SetLen(len(localBuf))

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return 0, errno
	}
	return int(n), 0
}

// ReadMemoryInto reads len(buf) bytes from the process at addr
func (p *LinuxProcess) ReadMemoryInto(addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	pid := p.GetPID()
	if pid == 0 {
		return 0, process.ErrProcessNotOpen
	}

	n, errno := process_vm_readv(pid, buf, addr)
	if errno != 0 {
		return 0, fmt.Errorf("process_vm_readv at %s: %w", addr.ToString(), mapErrno(errno, process.ErrShortRead))
	}

	if n != len(buf) {
		return n, fmt.Errorf("process_vm_readv at %s: %w: %d of %d bytes", addr.ToString(), process.ErrShortRead, n, len(buf))
	}

	return n, nil
}

// mapErrno folds the kernel's answer into the process error taxonomy.
// short is the error used when the remote range is not (fully) mapped.
func mapErrno(errno unix.Errno, short error) error {
	switch {
	case errors.Is(errno, unix.EPERM), errors.Is(errno, unix.EACCES):
		return fmt.Errorf("%w: %w", process.ErrAccessDenied, errno)
	case errors.Is(errno, unix.ESRCH):
		return fmt.Errorf("%w: %w", process.ErrProcessNotFound, errno)
	case errors.Is(errno, unix.EFAULT):
		return fmt.Errorf("%w: %w", short, errno)
	}
	return errno
}
