package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd represents the base command when called without any subcommands
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hexpager",
		Short: "HexPager simulates NRU page replacement over reference traces.",
		Long: `HexPager replays a memory reference trace against a fixed number of ` +
			`physical frames. Pages are evicted with the Not-Recently-Used policy while ` +
			`a background sweeper periodically clears reference bits.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newInspectCmd())

	return rootCmd
}
