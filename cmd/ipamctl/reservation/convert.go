package reservation

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
)

var (
	convertCmd = &cobra.Command{
		Use:   "convert <reservation-id>",
		Short: "Convert a reservation into a real allocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("reservation ID missing")
			}
			owner, err := cmd.Flags().GetString("owner")
			if err != nil {
				return err
			}
			if owner == "" {
				return errors.New("--owner is required")
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			region, host, err := env.Engine.Convert(common.Context(cmd), args[0], owner)
			if err != nil {
				return err
			}
			if err := env.Save(); err != nil {
				return err
			}

			if region != nil {
				fmt.Printf("%s %s\n", region.ID, region.CIDR())
			}
			if host != nil {
				fmt.Printf("%s %s\n", host.ID, host.Addr())
			}
			return nil
		},
	}
)

func init() {
	convertCmd.Flags().StringP("owner", "o", "", "Holder of the reservation")
}
