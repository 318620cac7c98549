package auditlog

import "github.com/spf13/cobra"

var (
	// Cmd exposes the top-level audit command.
	Cmd = &cobra.Command{
		Use:   "audit",
		Short: "Audit trail queries",
	}
)

func init() {
	Cmd.AddCommand(
		lsCmd,
		verifyCmd,
	)
}
