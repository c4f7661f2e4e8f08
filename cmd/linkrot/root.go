// Package main provides the entry point for the linkrot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for linkrot.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkrot",
		Short: "Broken link checker for websites",
		Long: `Linkrot crawls a website and reports every broken link it finds.

It follows links on the seed site, checks each link it discovers, and
flags responses with HTTP status 400 or above as well as requests that
fail on the wire. Off-site links are checked but never crawled.

The exit status is non-zero when broken links are found, so linkrot
fits directly into CI pipelines.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
