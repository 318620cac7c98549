package auditlog

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/audit"
	"github.com/moby/ipamkit/cmd/ipamctl/common"
)

var (
	lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List audit records",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := cmd.Flags().GetString("actor")
			if err != nil {
				return err
			}
			resourceType, err := cmd.Flags().GetString("resource-type")
			if err != nil {
				return err
			}
			resourceID, err := cmd.Flags().GetString("resource-id")
			if err != nil {
				return err
			}

			env, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			var records []*audit.Record
			switch {
			case actor != "":
				records, err = env.Engine.Audit().ByActor(actor)
			case resourceType != "":
				records, err = env.Engine.Audit().ByResource(resourceType, resourceID)
			default:
				records, err = env.Engine.Audit().All()
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer func() {
				_ = w.Flush()
			}()
			fmt.Fprintln(w, "Seq\tWhen\tAction\tActor\tResource")
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s/%s\n",
					r.Seq,
					humanize.Time(r.Timestamp),
					r.Action,
					r.Actor,
					r.ResourceType,
					r.ResourceID,
				)
			}
			return nil
		},
	}
)

func init() {
	lsCmd.Flags().String("actor", "", "Only show records by this actor")
	lsCmd.Flags().String("resource-type", "", "Only show records for this resource type")
	lsCmd.Flags().String("resource-id", "", "Only show records for this resource ID")
}
