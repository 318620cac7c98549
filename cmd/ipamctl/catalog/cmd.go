package catalog

import "github.com/spf13/cobra"

var (
	// Cmd exposes the top-level catalog command.
	Cmd = &cobra.Command{
		Use:   "catalog",
		Short: "Address space catalog management",
	}
)

func init() {
	Cmd.AddCommand(
		bootstrapCmd,
		lsCmd,
		statsCmd,
	)
}
