package reservation

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
)

var (
	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Expire reservations past their TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			swept, err := env.Engine.SweepExpired(common.Context(cmd))
			if err != nil {
				return err
			}
			if err := env.Save(); err != nil {
				return err
			}

			fmt.Printf("%d reservations expired\n", swept)
			return nil
		},
	}
)
