package region

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
	"github.com/moby/ipamkit/ipam"
)

var (
	allocateCmd = &cobra.Command{
		Use:   "allocate <country-code>",
		Short: "Allocate a region block",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("country code missing")
			}
			owner, err := cmd.Flags().GetString("owner")
			if err != nil {
				return err
			}
			if owner == "" {
				return errors.New("--owner is required")
			}
			tags, err := cmd.Flags().GetStringSlice("tag")
			if err != nil {
				return err
			}

			req := ipam.RegionRequest{
				CountryCode: args[0],
				OwnerID:     owner,
				Tags:        tags,
			}
			if cmd.Flags().Changed("x") {
				x, err := cmd.Flags().GetUint32("x")
				if err != nil {
					return err
				}
				req.PreferredX = &x
			}
			if cmd.Flags().Changed("y") {
				y, err := cmd.Flags().GetUint32("y")
				if err != nil {
					return err
				}
				req.PreferredY = &y
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			r, err := env.Engine.AllocateRegion(common.Context(cmd), req)
			if err != nil {
				return err
			}
			if err := env.Save(); err != nil {
				return err
			}

			fmt.Printf("%s %s\n", r.ID, r.CIDR())
			return nil
		},
	}
)

func init() {
	allocateCmd.Flags().StringP("owner", "o", "", "Owner of the region")
	allocateCmd.Flags().Uint32("x", 0, "Pin the allocation to this X octet")
	allocateCmd.Flags().Uint32("y", 0, "Pin the allocation to this Y octet")
	allocateCmd.Flags().StringSlice("tag", nil, "Tags to attach to the region")
}
