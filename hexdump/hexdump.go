// Package hexdump renders target memory for the operator, 16 bytes per line:
//
//	00007f0000100040  48 8b 05 00 00 00 00 48 | 85 c0 74 0a 48 8b 40 10 | H......H..t.H.@. | 0x7f0000a01230
//
// A highlighted range (usually a pattern match) is colored, and 8-byte words
// that point into a readable mapping are listed after the ASCII column.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"tickmem/process"
	"tickmem/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

const BytesPerLine = 16

type Options struct {
	// Base is the target address of data[0].
	Base process.ProcessMemoryAddress

	// HighlightOffset and HighlightLen select bytes to color. Zero length disables it.
	HighlightOffset int
	HighlightLen    int

	// Regions enables pointer annotation. It must be sorted by address.
	Regions []memory_map.MemoryMapItem

	Color bool
}

func (o Options) highlighted(i int) bool {
	return o.HighlightLen > 0 && i >= o.HighlightOffset && i < o.HighlightOffset+o.HighlightLen
}

func (o Options) paint(s string) string {
	if !o.Color {
		return s
	}
	return coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, s)
}

func Dump(data []byte, opts Options) string {
	var buf bytes.Buffer
	DumpToWriter(&buf, data, opts)
	return buf.String()
}

func DumpToWriter(w io.Writer, data []byte, opts Options) {
	for off := 0; off < len(data); off += BytesPerLine {
		end := min(off+BytesPerLine, len(data))
		writeLine(w, data[off:end], off, opts)
	}
}

func writeLine(w io.Writer, line []byte, off int, opts Options) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%016x  ", uint64(opts.Base)+uint64(off))

	for i := 0; i < BytesPerLine; i++ {
		if i == BytesPerLine/2 {
			sb.WriteString("| ")
		}
		if i >= len(line) {
			sb.WriteString("   ")
			continue
		}
		hex := fmt.Sprintf("%02x", line[i])
		if opts.highlighted(off + i) {
			hex = opts.paint(hex)
		}
		sb.WriteString(hex)
		sb.WriteByte(' ')
	}

	sb.WriteString("| ")
	for i, c := range line {
		ch := "."
		if c >= 0x20 && c < 0x7f {
			ch = string(rune(c))
		}
		if opts.highlighted(off + i) {
			ch = opts.paint(ch)
		}
		sb.WriteString(ch)
	}

	if len(opts.Regions) > 0 {
		var ptrs []string
		for i := 0; i+8 <= len(line); i += 8 {
			v := binary.LittleEndian.Uint64(line[i : i+8])
			if r := memory_map.FindRegion(v, opts.Regions); r != nil && r.IsReadable() {
				ptrs = append(ptrs, fmt.Sprintf("0x%x", v))
			}
		}
		if len(ptrs) > 0 {
			sb.WriteString(" | ")
			sb.WriteString(strings.Join(ptrs, " "))
		}
	}

	sb.WriteByte('\n')
	io.WriteString(w, sb.String())
}

// Around reads before bytes ahead of addr and after bytes from addr onwards
// and dumps them, highlighting highlightLen bytes at addr. The window shrinks
// to whatever part of it is readable; a fully unreadable window is an error.
func Around(w io.Writer, acc process.Accessor, addr process.ProcessMemoryAddress, before, after, highlightLen int, opts Options) error {
	start := addr
	if process.ProcessMemoryAddress(before) <= addr {
		start = addr - process.ProcessMemoryAddress(before)
	}
	buf := make([]byte, int(addr-start)+after)

	n, err := acc.ReadMemoryInto(start, buf)
	if n == 0 {
		// The leading context may sit in an unmapped page; retry from addr.
		start = addr
		buf = buf[:after]
		n, err = acc.ReadMemoryInto(start, buf)
	}
	if n == 0 {
		if err == nil {
			err = process.ErrShortRead
		}
		return fmt.Errorf("dump %s: %w", addr.ToString(), err)
	}

	opts.Base = start
	opts.HighlightOffset = int(addr - start)
	opts.HighlightLen = highlightLen
	DumpToWriter(w, buf[:n], opts)
	return nil
}
