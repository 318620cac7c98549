package reservation

import "github.com/spf13/cobra"

var (
	// Cmd exposes the top-level reservation command.
	Cmd = &cobra.Command{
		Use:   "reservation",
		Short: "Slot reservations",
	}
)

func init() {
	Cmd.AddCommand(
		createCmd,
		convertCmd,
		cancelCmd,
		sweepCmd,
		lsCmd,
	)
}
