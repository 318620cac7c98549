package catalog

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
)

var (
	bootstrapCmd = &cobra.Command{
		Use:   "bootstrap",
		Short: "Seed the catalog with the default country table",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.Engine.Bootstrap(common.Context(cmd), nil); err != nil {
				return err
			}
			if err := env.Save(); err != nil {
				return err
			}

			countries, err := env.Engine.ListCountries("")
			if err != nil {
				return err
			}
			fmt.Printf("catalog holds %d countries\n", len(countries))
			return nil
		},
	}
)
