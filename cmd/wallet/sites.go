package main

import (
	"github.com/Maphikza/flow-wallet-state/internal/ipc"
	"github.com/Maphikza/flow-wallet-state/internal/permission"
	"github.com/spf13/cobra"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Inspect and manage connected dApp sites",
}

func init() {
	sitesCmd.AddCommand(sitesListCmd, sitesRecentCmd, sitesRemoveCmd, sitesPinCmd, sitesUnpinCmd)
}

// runSitesCommand sends command and prints the returned site list.
func runSitesCommand(cmd *cobra.Command, command string, args []string) error {
	var sites []permission.ConnectedSite
	if err := sendCommand(command, args, &sites); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), sites)
}

var sitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected sites, most recently used first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSitesCommand(cmd, ipc.CmdSitesList, nil)
	},
}

var sitesRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List connected sites with pinned sites first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSitesCommand(cmd, ipc.CmdSitesRecent, nil)
	},
}

var sitesRemoveCmd = &cobra.Command{
	Use:   "remove [origin]",
	Short: "Revoke a site's connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSitesCommand(cmd, ipc.CmdSitesRemove, args)
	},
}

var sitesPinCmd = &cobra.Command{
	Use:   "pin [origin] [order]",
	Short: "Pin a site to the top of the recent list",
	Long:  `Pin a connected site. Without an order the site goes after every pinned site.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSitesCommand(cmd, ipc.CmdSitesPin, args)
	},
}

var sitesUnpinCmd = &cobra.Command{
	Use:   "unpin [origin]",
	Short: "Unpin a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSitesCommand(cmd, ipc.CmdSitesUnpin, args)
	},
}
