package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/moby/ipamkit/cmd/ipamctl/auditlog"
	"github.com/moby/ipamkit/cmd/ipamctl/catalog"
	"github.com/moby/ipamkit/cmd/ipamctl/host"
	"github.com/moby/ipamkit/cmd/ipamctl/quota"
	"github.com/moby/ipamkit/cmd/ipamctl/region"
	"github.com/moby/ipamkit/cmd/ipamctl/reservation"
)

func main() {
	if c, err := mainCmd.ExecuteC(); err != nil {
		c.Println("Error:", err.Error())
		os.Exit(1)
	}
}

var (
	mainCmd = &cobra.Command{
		Use:           os.Args[0],
		Short:         "Manage a 10.0.0.0/8 address space",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func defaultStateDir() string {
	if dir := os.Getenv("IPAMKIT_STATE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ipamkit"
	}
	return filepath.Join(home, ".ipamkit")
}

func init() {
	mainCmd.PersistentFlags().StringP("state-dir", "d", defaultStateDir(), "Directory holding the state snapshot and audit ledger")

	mainCmd.AddCommand(
		catalog.Cmd,
		region.Cmd,
		host.Cmd,
		reservation.Cmd,
		quota.Cmd,
		auditlog.Cmd,
	)
}
