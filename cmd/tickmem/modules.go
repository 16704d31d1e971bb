package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tickmem/attach"
)

func newModulesCmd() *cobra.Command {
	var (
		target targetFlags
		module string
	)

	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List the target's modules or resolve one of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := target.resolve()
			if err != nil {
				return err
			}

			proc, err := attach.Open(pid)
			if err != nil {
				return fmt.Errorf("failed to open process %d: %w", pid, err)
			}
			defer proc.Close()

			if module != "" {
				m, err := proc.ResolveModule(module)
				if err != nil {
					return err
				}
				cmd.Println(m.String())
				return nil
			}

			modules, err := proc.ListModules()
			if err != nil {
				return fmt.Errorf("failed to list modules: %w", err)
			}
			for _, m := range modules {
				cmd.Println(m.String())
			}
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().StringVar(&module, "module", "", "Resolve a single module by name")

	return cmd
}
