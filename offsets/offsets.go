// Package offsets loads the per-version table of module names and field
// offsets that locate data inside the target.
//
// A table file looks like:
//
//	targets:
//	  - version: "14011"
//	    modules:
//	      client:
//	        linux: libclient.so
//	        windows: client.dll
//	    fields:
//	      global_vars: 0x1BB5A10
//	      tick_count: 0x40
//	      frame_count: 0x04
//	      frame_time: 0x0C
package offsets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"tickmem/process"
	"tickmem/tick"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrUnknownModule  = errors.New("unknown module")
	ErrUnknownVersion = errors.New("unknown version")
	ErrEmptyBook      = errors.New("offset table has no targets")
)

// Field names consumed by TickLayout.
const (
	FieldTickCount  = "tick_count"
	FieldFrameCount = "frame_count"
	FieldFrameTime  = "frame_time"
)

// Offset accepts decimal or 0x-prefixed hex in YAML.
type Offset uint64

func (o *Offset) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: offset must be a scalar", value.Line)
	}
	v, err := strconv.ParseUint(value.Value, 0, 64)
	if err != nil {
		return fmt.Errorf("line %d: bad offset %q: %w", value.Line, value.Value, err)
	}
	*o = Offset(v)
	return nil
}

type Table struct {
	Version string                       `yaml:"version"`
	Modules map[string]map[string]string `yaml:"modules"`
	Fields  map[string]Offset            `yaml:"fields"`
}

type Book struct {
	Targets []Table `yaml:"targets"`
}

func Load(r io.Reader) (*Book, error) {
	var b Book
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBook
		}
		return nil, fmt.Errorf("decode offset table: %w", err)
	}
	if len(b.Targets) == 0 {
		return nil, ErrEmptyBook
	}

	seen := make(map[string]bool, len(b.Targets))
	for _, t := range b.Targets {
		if seen[t.Version] {
			return nil, fmt.Errorf("duplicate version %q", t.Version)
		}
		seen[t.Version] = true
	}
	return &b, nil
}

func LoadFile(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Table returns the entry for version. An empty version selects the first entry.
func (b *Book) Table(version string) (*Table, error) {
	if len(b.Targets) == 0 {
		return nil, ErrEmptyBook
	}
	if version == "" {
		return &b.Targets[0], nil
	}
	for i := range b.Targets {
		if b.Targets[i].Version == version {
			return &b.Targets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
}

// Offset returns a field offset, relative to whatever base the field belongs to.
func (t *Table) Offset(name string) (process.ProcessMemorySize, error) {
	o, ok := t.Fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return process.ProcessMemorySize(o), nil
}

// ModuleName maps a logical module name to the file name used on this platform.
func (t *Table) ModuleName(logical string) (string, error) {
	return t.ModuleNameFor(logical, runtime.GOOS)
}

func (t *Table) ModuleNameFor(logical, goos string) (string, error) {
	names, ok := t.Modules[logical]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, logical)
	}
	name, ok := names[goos]
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %q has no %s file name", ErrUnknownModule, logical, goos)
	}
	return name, nil
}

// TickLayout builds the tick source layout from the tick_count, frame_count
// and frame_time fields.
func (t *Table) TickLayout() (tick.Layout, error) {
	var l tick.Layout
	var err error

	if l.TickOffset, err = t.Offset(FieldTickCount); err != nil {
		return l, err
	}
	if l.FrameOffset, err = t.Offset(FieldFrameCount); err != nil {
		return l, err
	}
	if l.FrameTimeOffset, err = t.Offset(FieldFrameTime); err != nil {
		return l, err
	}
	return l, nil
}
