package search

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Pattern is a byte signature to look for. Mask marks which bytes must match:
// 0xFF compares the whole byte, 0x00 is a wildcard, anything else compares only the set bits.
type Pattern struct {
	Bytes []byte
	Mask  []byte
}

// NewPattern builds an exact-match pattern from raw bytes.
func NewPattern(b []byte) Pattern {
	return Pattern{
		Bytes: append([]byte(nil), b...),
		Mask:  bytes.Repeat([]byte{0xFF}, len(b)),
	}
}

// NewMaskedPattern pairs bytes with a mask of the same length.
func NewMaskedPattern(b, mask []byte) (Pattern, error) {
	if len(b) != len(mask) {
		return Pattern{}, fmt.Errorf("pattern and mask must be of the same length")
	}
	return Pattern{Bytes: append([]byte(nil), b...), Mask: append([]byte(nil), mask...)}, nil
}

// ParsePattern parses text like "48 8B 05 ?? ?? ?? ??" or "48,8b,??,05".
func ParsePattern(s string) (Pattern, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(parts) == 0 {
		return Pattern{}, fmt.Errorf("empty pattern")
	}

	var p Pattern
	for _, part := range parts {
		if part == "??" || part == "?" {
			p.Bytes = append(p.Bytes, 0)
			p.Mask = append(p.Mask, 0)
			continue
		}

		val, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid hex byte: %s", part)
		}
		p.Bytes = append(p.Bytes, byte(val))
		p.Mask = append(p.Mask, 0xFF)
	}

	return p, nil
}

func (p Pattern) Len() int {
	return len(p.Bytes)
}

func (p Pattern) validate() error {
	if len(p.Bytes) == 0 {
		return fmt.Errorf("empty pattern")
	}
	if len(p.Mask) != len(p.Bytes) {
		return fmt.Errorf("mask length (%d) doesn't match pattern length (%d)", len(p.Mask), len(p.Bytes))
	}
	return nil
}

func (p Pattern) String() string {
	var sb strings.Builder
	for i, b := range p.Bytes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if p.Mask[i] == 0 {
			sb.WriteString("??")
		} else {
			fmt.Fprintf(&sb, "%02X", b)
		}
	}
	return sb.String()
}

// index returns the offset of the first match of p in data, or -1.
func (p Pattern) index(data []byte) int {
	n := len(p.Bytes)
	for i := 0; i+n <= len(data); i++ {
		matched := true
		for j := 0; j < n; j++ {
			if p.Mask[j] == 0 {
				continue
			}
			if data[i+j]&p.Mask[j] != p.Bytes[j]&p.Mask[j] {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}
