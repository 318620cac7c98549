package catalog

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
)

var (
	lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List countries",
		RunE: func(cmd *cobra.Command, args []string) error {
			continent, err := cmd.Flags().GetString("continent")
			if err != nil {
				return err
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			countries, err := env.Engine.ListCountries(continent)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer func() {
				// Ignore flushing errors - there's nothing we can do.
				_ = w.Flush()
			}()
			fmt.Fprintln(w, "Code\tName\tContinent\tX Range\tAllocated")
			for _, c := range countries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d-%d\t%d\n",
					c.Code,
					c.Name,
					c.Continent,
					c.XStart,
					c.XEnd,
					c.AllocatedRegions,
				)
			}
			return nil
		},
	}
)

func init() {
	lsCmd.Flags().String("continent", "", "Only show countries on this continent")
}
