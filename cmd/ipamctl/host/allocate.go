package host

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
	"github.com/moby/ipamkit/ipam"
)

var (
	allocateCmd = &cobra.Command{
		Use:   "allocate <region-id>",
		Short: "Allocate a host address in a region",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("region ID missing")
			}
			owner, err := cmd.Flags().GetString("owner")
			if err != nil {
				return err
			}
			if owner == "" {
				return errors.New("--owner is required")
			}
			hostname, err := cmd.Flags().GetString("hostname")
			if err != nil {
				return err
			}

			req := ipam.HostRequest{
				RegionID: args[0],
				OwnerID:  owner,
				Hostname: hostname,
			}
			if cmd.Flags().Changed("z") {
				z, err := cmd.Flags().GetUint32("z")
				if err != nil {
					return err
				}
				req.PreferredZ = &z
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			h, err := env.Engine.AllocateHost(common.Context(cmd), req)
			if err != nil {
				return err
			}
			if err := env.Save(); err != nil {
				return err
			}

			fmt.Printf("%s %s\n", h.ID, h.Addr())
			return nil
		},
	}
)

func init() {
	allocateCmd.Flags().StringP("owner", "o", "", "Owner of the host")
	allocateCmd.Flags().String("hostname", "", "Hostname to record")
	allocateCmd.Flags().Uint32("z", 0, "Pin the allocation to this Z octet")
}
