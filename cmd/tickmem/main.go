// Command tickmem inspects and watches a running target process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "tickmem",
		Short:         "Read a target process's memory in step with its simulation ticks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newModulesCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
