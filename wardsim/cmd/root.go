// Package cmd provides the command-line interface for wardsim.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCmd creates the wardsim command with all its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wardsim",
		Short: "Discrete-event simulator of priority bed allocation in a ward",
		Long: `wardsim admits patients of several priorities into a ward with ` +
			`a fixed number of beds and reports how long each priority ` +
			`waits for a bed.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newInspectCmd())

	return rootCmd
}

// Execute runs the root command and exits. Exit handlers, such as the ones
// flushing recordings, run before the process ends.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil {
		logrus.WithError(err).Error("wardsim failed")
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
