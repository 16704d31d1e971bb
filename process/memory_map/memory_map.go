package memory_map

import (
	"fmt"
	"sort"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint   // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
	Offset  uint64 // Offset into the backing file
	Path    string // Backing file or pseudo name ("[heap]"), empty for anonymous mappings
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Path)
}

func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return IsReadablePerms(mmItem.Perms)
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return IsWritablePerms(mmItem.Perms)
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return IsExecutablePerms(mmItem.Perms)
}

// IsFileBacked reports whether the mapping comes from a file on disk rather
// than an anonymous or kernel pseudo mapping such as [heap] or [vdso].
func (mmItem MemoryMapItem) IsFileBacked() bool {
	return mmItem.Path != "" && mmItem.Path[0] != '['
}

func IsReadablePerms(perms string) bool {
	return len(perms) > 0 && perms[0] == 'r'
}

func IsWritablePerms(perms string) bool {
	return len(perms) > 1 && perms[1] == 'w'
}

func IsExecutablePerms(perms string) bool {
	return len(perms) > 2 && perms[2] == 'x'
}

// Sort orders the map by start address, which FindRegion requires
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// FindRegion returns the region containing addr. memoryMap must be sorted by address.
func FindRegion(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}
