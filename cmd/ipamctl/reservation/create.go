package reservation

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/cmd/ipamctl/common"
	"github.com/moby/ipamkit/ipam"
)

var (
	createCmd = &cobra.Command{
		Use:   "create (region|host)",
		Short: "Reserve a slot for later conversion",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("reservation target missing (region or host)")
			}
			owner, err := cmd.Flags().GetString("owner")
			if err != nil {
				return err
			}
			if owner == "" {
				return errors.New("--owner is required")
			}
			ttl, err := cmd.Flags().GetDuration("ttl")
			if err != nil {
				return err
			}

			req := ipam.ReserveRequest{
				Target:     api.ReservationTarget(args[0]),
				ReservedBy: owner,
				TTL:        ttl,
			}
			if req.CountryCode, err = cmd.Flags().GetString("country"); err != nil {
				return err
			}
			if req.RegionID, err = cmd.Flags().GetString("region"); err != nil {
				return err
			}
			for flag, target := range map[string]**uint32{"x": &req.X, "y": &req.Y, "z": &req.Z} {
				if cmd.Flags().Changed(flag) {
					v, err := cmd.Flags().GetUint32(flag)
					if err != nil {
						return err
					}
					*target = &v
				}
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.Engine.Reserve(common.Context(cmd), req)
			if err != nil {
				return err
			}
			if err := env.Save(); err != nil {
				return err
			}

			fmt.Printf("%s expires %s\n", res.ID, res.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
)

func init() {
	createCmd.Flags().StringP("owner", "o", "", "Holder of the reservation")
	createCmd.Flags().String("country", "", "Country to reserve a region slot in")
	createCmd.Flags().String("region", "", "Region to reserve a host slot in")
	createCmd.Flags().Uint32("x", 0, "Pin the reservation to this X octet")
	createCmd.Flags().Uint32("y", 0, "Pin the reservation to this Y octet")
	createCmd.Flags().Uint32("z", 0, "Pin the reservation to this Z octet")
	createCmd.Flags().Duration("ttl", 0, "How long the hold lasts (engine default when unset)")
}
