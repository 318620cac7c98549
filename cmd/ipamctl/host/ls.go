package host

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
	"github.com/moby/ipamkit/store"
)

var (
	lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List hosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			by := store.By(store.All)
			if owner, err := cmd.Flags().GetString("owner"); err != nil {
				return err
			} else if owner != "" {
				by = store.ByOwner(owner)
			}
			if region, err := cmd.Flags().GetString("region"); err != nil {
				return err
			} else if region != "" {
				by = store.ByRegionID(region)
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			hosts, err := env.Engine.ListHosts(by)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer func() {
				_ = w.Flush()
			}()
			fmt.Fprintln(w, "ID\tAddress\tRegion\tOwner\tHostname\tStatus")
			for _, h := range hosts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					h.ID,
					h.Addr(),
					h.RegionID,
					h.OwnerID,
					h.Hostname,
					h.Status,
				)
			}
			return nil
		},
	}
)

func init() {
	lsCmd.Flags().StringP("owner", "o", "", "Only show hosts of this owner")
	lsCmd.Flags().String("region", "", "Only show hosts in this region")
}
