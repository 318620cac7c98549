package reservation

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
	"github.com/moby/ipamkit/store"
)

var (
	lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			by := store.By(store.All)
			if status, err := cmd.Flags().GetString("status"); err != nil {
				return err
			} else if status != "" {
				by = store.ByStatus(status)
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			reservations, err := env.Engine.ListReservations(by)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer func() {
				_ = w.Flush()
			}()
			fmt.Fprintln(w, "ID\tTarget\tSlot\tHolder\tStatus\tExpires")
			for _, r := range reservations {
				fmt.Fprintf(w, "%s\t%s\t%d.%d.%d\t%s\t%s\t%s\n",
					r.ID,
					r.Target,
					r.X,
					r.Y,
					r.Z,
					r.ReservedBy,
					r.Status,
					humanize.Time(r.ExpiresAt),
				)
			}
			return nil
		},
	}
)

func init() {
	lsCmd.Flags().String("status", "", "Only show reservations with this status")
}
