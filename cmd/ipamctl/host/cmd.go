package host

import "github.com/spf13/cobra"

var (
	// Cmd exposes the top-level host command.
	Cmd = &cobra.Command{
		Use:   "host",
		Short: "Host address allocation",
	}
)

func init() {
	Cmd.AddCommand(
		allocateCmd,
		releaseCmd,
		lsCmd,
	)
}
