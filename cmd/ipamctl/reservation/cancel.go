package reservation

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/common"
)

var (
	cancelCmd = &cobra.Command{
		Use:   "cancel <reservation-id>",
		Short: "Cancel a pending reservation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("reservation ID missing")
			}
			actor, err := cmd.Flags().GetString("actor")
			if err != nil {
				return err
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.Engine.Cancel(common.Context(cmd), args[0], actor); err != nil {
				return err
			}
			if err := env.Save(); err != nil {
				return err
			}

			fmt.Println(args[0])
			return nil
		},
	}
)

func init() {
	cancelCmd.Flags().String("actor", "", "Who is cancelling the reservation")
}
