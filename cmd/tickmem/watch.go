package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/spf13/cobra"

	"tickmem/attach"
	"tickmem/offsets"
	"tickmem/poll"
	"tickmem/process"
	"tickmem/retry"
	"tickmem/tick"
)

const fieldGlobalVars = "global_vars"

func newWatchCmd() *cobra.Command {
	var (
		target      targetFlags
		offsetsPath string
		version     string
		module      string
		fields      []string
		idle        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the target's tick and frame counters and read fields once per tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := offsets.LoadFile(offsetsPath)
			if err != nil {
				return err
			}
			table, err := book.Table(version)
			if err != nil {
				return err
			}

			layout, err := table.TickLayout()
			if err != nil {
				return err
			}
			globalsOff, err := table.Offset(fieldGlobalVars)
			if err != nil {
				return err
			}
			fieldOffs := make([]process.ProcessMemorySize, len(fields))
			for i, name := range fields {
				if fieldOffs[i], err = table.Offset(name); err != nil {
					return err
				}
			}

			moduleName, err := table.ModuleName(module)
			if err != nil {
				return err
			}

			pid, err := target.resolve()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			t, err := attach.WaitModules(ctx, pid, retry.DefaultConfig(), moduleName)
			if err != nil {
				return fmt.Errorf("failed to attach to process %d: %w", pid, err)
			}
			defer t.Close()

			m, err := t.Module(moduleName)
			if err != nil {
				return err
			}

			globalsPtr := m.Addr(globalsOff)
			if _, err := process.WaitPointer(ctx, t.Process, globalsPtr, retry.DefaultConfig()); err != nil {
				return fmt.Errorf("global vars never published: %w", err)
			}

			log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("watch-%d", pid)))
			log.Infoln("Watching", m.String())

			src := tick.NewRemotePointerSource(t.Process, globalsPtr, layout)
			sched := tick.NewScheduler(src, tick.WithIdlePeriod(idle))

			step := func(ctx context.Context) error {
				sample, err := src.Sample(ctx)
				if err != nil {
					return err
				}
				line := fmt.Sprintf("tick=%.0f frame=%d period=%s", sample.Tick, sample.Frame, sample.FramePeriod)
				for i, off := range fieldOffs {
					v, err := process.ReadPath[int32](t.Process, m.BaseAddress, globalsOff, off)
					if err != nil {
						return fmt.Errorf("read %s: %w", fields[i], err)
					}
					line += fmt.Sprintf(" %s=%d", fields[i], v)
				}
				log.Infoln(line)
				return nil
			}

			loop := poll.NewLoop(moduleName, sched, step)
			err = loop.Run(ctx)

			stats := loop.Stats()
			log.Infoln(fmt.Sprintf("steps=%d skips=%d failures=%d errors=%d", stats.Steps, stats.Skips, stats.Failures, stats.Errors))

			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	target.register(cmd)
	cmd.Flags().StringVar(&offsetsPath, "offsets", "offsets.yaml", "Offset table file")
	cmd.Flags().StringVar(&version, "version", "", "Target version in the offset table, first entry when empty")
	cmd.Flags().StringVar(&module, "module", "client", "Logical module holding the global vars pointer")
	cmd.Flags().StringSliceVar(&fields, "field", nil, "Global vars field to read each tick as int32, repeatable")
	cmd.Flags().DurationVar(&idle, "idle", tick.DefaultIdlePeriod, "Sleep when the target has not advanced")

	return cmd
}
