package quota

import "github.com/spf13/cobra"

var (
	// Cmd exposes the top-level quota command.
	Cmd = &cobra.Command{
		Use:   "quota",
		Short: "Per-owner allocation quotas",
	}
)

func init() {
	Cmd.AddCommand(
		setCmd,
		getCmd,
	)
}
