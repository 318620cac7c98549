package region

import "github.com/spf13/cobra"

var (
	// Cmd exposes the top-level region command.
	Cmd = &cobra.Command{
		Use:   "region",
		Short: "Region allocation",
	}
)

func init() {
	Cmd.AddCommand(
		allocateCmd,
		releaseCmd,
		lsCmd,
	)
}
