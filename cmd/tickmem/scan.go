package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tickmem/attach"
	"tickmem/hexdump"
	"tickmem/process/memory_map"
	"tickmem/search"
)

// memoryMapper is implemented by backends that can list the target's mappings.
type memoryMapper interface {
	MemoryMap() ([]memory_map.MemoryMapItem, error)
}

func newScanCmd() *cobra.Command {
	var (
		target  targetFlags
		module  string
		pattern string
		limit   int
		span    int
		color   bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a module for a byte pattern such as \"48 8B 05 ?? ?? ?? ??\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			pat, err := search.ParsePattern(pattern)
			if err != nil {
				return fmt.Errorf("bad pattern: %w", err)
			}

			pid, err := target.resolve()
			if err != nil {
				return err
			}

			t, err := attach.Attach(pid, module)
			if err != nil {
				return fmt.Errorf("failed to attach to process %d: %w", pid, err)
			}
			defer t.Close()

			m, err := t.Module(module)
			if err != nil {
				return err
			}

			cmd.Printf("Scanning %s for %s\n", m.String(), pat.String())

			matches, err := search.FindAll(t.Process, pat, limit, search.WithStart(m.BaseAddress), search.WithLimit(m.End()))
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			cmd.Printf("Found %d matches\n", len(matches))

			opts := hexdump.Options{Color: color}
			if mapper, ok := t.Process.(memoryMapper); ok {
				if regions, err := mapper.MemoryMap(); err == nil {
					opts.Regions = regions
				}
			}

			for _, addr := range matches {
				cmd.Printf("\n%s (%s+0x%x)\n", addr.ToString(), m.Name, uint64(addr-m.BaseAddress))
				if span <= 0 {
					continue
				}
				if err := hexdump.Around(cmd.OutOrStdout(), t.Process, addr, span, span+pat.Len(), pat.Len(), opts); err != nil {
					cmd.PrintErrf("  %v\n", err)
				}
			}

			if len(matches) == 0 {
				return fmt.Errorf("%s in %s: %w", pat.String(), m.Name, search.ErrPatternNotFound)
			}
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().StringVar(&module, "module", "", "Module to scan")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Byte pattern, ?? for wildcards")
	cmd.Flags().IntVar(&limit, "max", 16, "Stop after this many matches, 0 for all")
	cmd.Flags().IntVar(&span, "context", 16, "Bytes of context to dump around each match")
	cmd.Flags().BoolVar(&color, "color", true, "Highlight matches in the dump")
	_ = cmd.MarkFlagRequired("module")
	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}
