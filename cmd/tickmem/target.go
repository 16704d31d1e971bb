package main

import (
	"errors"

	"github.com/spf13/cobra"

	"tickmem/attach"
	"tickmem/process"
)

// targetFlags selects the target by pid or by process name.
type targetFlags struct {
	pid  int
	name string
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.pid, "pid", 0, "Process ID of the target")
	cmd.Flags().StringVar(&f.name, "name", "", "Process name of the target, used when --pid is not set")
	cmd.MarkFlagsMutuallyExclusive("pid", "name")
}

func (f *targetFlags) resolve() (process.ProcessID, error) {
	if f.pid > 0 {
		return process.ProcessID(f.pid), nil
	}
	if f.name != "" {
		return attach.FindPID(f.name)
	}
	return 0, errors.New("one of --pid or --name is required")
}
