package quota

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
)

var (
	getCmd = &cobra.Command{
		Use:   "get <owner-id>",
		Short: "Show an owner's quota and usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("owner ID missing")
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			q, err := env.Engine.GetQuota(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer func() {
				_ = w.Flush()
			}()
			fmt.Fprintln(w, "Resource\tLimit\tUsed")
			fmt.Fprintf(w, "regions\t%s\t%d\n", formatLimit(q.Regions), q.CurrentRegions)
			fmt.Fprintf(w, "hosts\t%s\t%d\n", formatLimit(q.Hosts), q.CurrentHosts)
			return nil
		},
	}
)
