package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for bilicrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bilicrawl",
		Short: "Keyword crawler for Bilibili video search",
		Long: `bilicrawl pages through the Bilibili video search API for one or more
keywords, keeps the videos that mention the subject (and, by default, a
match topic such as 比赛 or 决赛), removes duplicates and exports them.

Rate limiting is handled with exponential backoff. Every run is recorded
in a local history database so that later runs can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
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
