package region

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
	"github.com/moby/ipamkit/store"
)

var (
	lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List regions",
		RunE: func(cmd *cobra.Command, args []string) error {
			by := store.By(store.All)
			if owner, err := cmd.Flags().GetString("owner"); err != nil {
				return err
			} else if owner != "" {
				by = store.ByOwner(owner)
			}
			if country, err := cmd.Flags().GetString("country"); err != nil {
				return err
			} else if country != "" {
				by = store.ByCountry(country)
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			regions, err := env.Engine.ListRegions(by)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer func() {
				_ = w.Flush()
			}()
			fmt.Fprintln(w, "ID\tCIDR\tCountry\tOwner\tStatus\tHosts\tTags")
			for _, r := range regions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID,
					r.CIDR(),
					r.CountryCode,
					r.OwnerID,
					r.Status,
					r.HostCount,
					strings.Join(r.Tags, ","),
				)
			}
			return nil
		},
	}
)

func init() {
	lsCmd.Flags().StringP("owner", "o", "", "Only show regions of this owner")
	lsCmd.Flags().String("country", "", "Only show regions in this country")
}
