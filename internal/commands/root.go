package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rsnash92/taxfolio/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "taxfolio",
		Short:   "Capital gains tax from your trade history",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newComputeCommand())
	rootCmd.AddCommand(newYearsCommand())

	return rootCmd
}
