package memory_map

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadMemoryMap reads and parses /proc/[pid]/maps
func ReadMemoryMap(pid int) ([]MemoryMapItem, error) {
	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseMemoryMap(file)
}

// ParseMemoryMap parses the /proc/[pid]/maps text format:
//
//	7f2c4a000000-7f2c4a200000 r-xp 00000000 08:01 1234  /usr/lib/libfoo.so
//
// Malformed lines are skipped.
func ParseMemoryMap(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		// Parse address range (e.g., "00400000-0040b000")
		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || endAddr < startAddr {
			continue
		}

		item := MemoryMapItem{
			Address: startAddr,
			Size:    uint(endAddr - startAddr),
			Perms:   fields[1],
		}

		if len(fields) > 2 {
			item.Offset, _ = strconv.ParseUint(fields[2], 16, 64)
		}

		// The path may contain spaces; it is everything after the inode column.
		if len(fields) > 5 {
			item.Path = strings.Join(fields[5:], " ")
		}

		memoryMap = append(memoryMap, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return memoryMap, nil
}
