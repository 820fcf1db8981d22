// Package cmd wires the refhub subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refhub",
		Short: "Reference collection and tagging hub for apparel planning.",
		Long: `refhub collects competitor product pages into a capture queue,
renders them to full-page screenshots with headless Chrome, and keeps a
taggable index that exports to CSV/XLSX for downstream planning work.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/refhub, $HOME/.refhub)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWorkCmd())
	cmd.AddCommand(newExportCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
