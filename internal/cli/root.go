package cli

import (
	"github.com/spf13/cobra"
)

// createRootCommand creates the root command with global flags
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dstkit",
		Short: "Don't Starve Together dedicated server manager",
		Long: `dstkit manages Don't Starve Together dedicated server clusters on a
single host: it creates and configures instances, supervises their shard
processes, edits workshop mod lists, and imports saves from existing
installs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	return rootCmd
}
