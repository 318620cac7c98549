package quota

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/api"
	"github.com/moby/ipamkit/cmd/ipamctl/common"
	"github.com/moby/ipamkit/ipam"
)

// parseLimit turns a flag value into a tagged limit: "unlimited" or a
// non-negative integer.
func parseLimit(value string) (api.Limit, error) {
	if value == "unlimited" {
		return api.Unlimited(), nil
	}
	max, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return api.Limit{}, errors.Errorf("limit must be a number or \"unlimited\", got %q", value)
	}
	return api.Limited(uint32(max)), nil
}

var (
	setCmd = &cobra.Command{
		Use:   "set <owner-id>",
		Short: "Set an owner's allocation limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("owner ID missing")
			}

			regionsFlag, err := cmd.Flags().GetString("regions")
			if err != nil {
				return err
			}
			hostsFlag, err := cmd.Flags().GetString("hosts")
			if err != nil {
				return err
			}
			actor, err := cmd.Flags().GetString("actor")
			if err != nil {
				return err
			}

			regions, err := parseLimit(regionsFlag)
			if err != nil {
				return err
			}
			hosts, err := parseLimit(hostsFlag)
			if err != nil {
				return err
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			q, err := env.Engine.SetQuota(common.Context(cmd), ipam.SetQuotaRequest{
				OwnerID: args[0],
				Regions: regions,
				Hosts:   hosts,
				Actor:   actor,
			})
			if err != nil {
				return err
			}
			if err := env.Save(); err != nil {
				return err
			}

			fmt.Printf("%s regions=%s hosts=%s\n", q.OwnerID, formatLimit(q.Regions), formatLimit(q.Hosts))
			return nil
		},
	}
)

func formatLimit(l api.Limit) string {
	if l.Mode == api.LimitModeUnlimited {
		return "unlimited"
	}
	return strconv.FormatUint(uint64(l.Max), 10)
}

func init() {
	setCmd.Flags().String("regions", "unlimited", "Region limit (number or \"unlimited\")")
	setCmd.Flags().String("hosts", "unlimited", "Host limit (number or \"unlimited\")")
	setCmd.Flags().String("actor", "", "Administrator applying the change")
}
