package catalog

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/cmd/ipamctl/common"
)

var (
	statsCmd = &cobra.Command{
		Use:   "stats [code]",
		Short: "Show capacity statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			var stats []*api.CountryStats
			if len(args) == 1 {
				s, err := env.Engine.GetCountryStats(args[0])
				if err != nil {
					return err
				}
				stats = append(stats, s)
			} else {
				if stats, err = env.Engine.ListCountryStats(); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer func() {
				_ = w.Flush()
			}()
			fmt.Fprintln(w, "Code\tBlocks\tCapacity\tAllocated\tRemaining\tUtilization")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%.2f%%\n",
					s.Country.Code,
					s.TotalBlocks,
					humanize.Comma(int64(s.TotalCapacity)),
					humanize.Comma(int64(s.AllocatedRegions)),
					humanize.Comma(int64(s.RemainingCapacity)),
					s.UtilizationPercent,
				)
			}
			return nil
		},
	}
)
