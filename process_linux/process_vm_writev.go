//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"tickmem/process"

	"golang.org/x/sys/unix"
)

// process_vm_writev copies localBuf to remoteAddr in pid with a single syscall
func process_vm_writev(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, unix.Errno) {
	localIov := unix.Iovec{Base: &localBuf[0]}
	localIov.SetLen(len(localBuf))

	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
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

// WriteMemory writes data to the process memory at the specified address.
// process_vm_writev honours page protections, so read-only mappings fail with EFAULT.
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	pid := p.GetPID()
	if pid == 0 {
		return 0, process.ErrProcessNotOpen
	}

	n, errno := process_vm_writev(pid, data, addr)
	if errno != 0 {
		return 0, fmt.Errorf("process_vm_writev at %s: %w", addr.ToString(), mapErrno(errno, process.ErrShortWrite))
	}

	if n != len(data) {
		return n, fmt.Errorf("process_vm_writev at %s: %w: %d of %d bytes", addr.ToString(), process.ErrShortWrite, n, len(data))
	}

	return n, nil
}
