// Package operations runs the wallet state daemon: it owns the durable store,
// the connected-site cache and the pending transaction ledger, and exposes
// them over HTTP and a local IPC socket.
package operations

import (
	"context"
	"strconv"

	"github.com/Maphikza/flow-wallet-state/internal/api"
	"github.com/Maphikza/flow-wallet-state/internal/config"
	walletstatedb "github.com/Maphikza/flow-wallet-state/internal/database"
	"github.com/Maphikza/flow-wallet-state/internal/ipc"
	"github.com/Maphikza/flow-wallet-state/internal/permission"
	"github.com/Maphikza/flow-wallet-state/internal/persist"
	"github.com/Maphikza/flow-wallet-state/internal/transaction"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type WalletServer struct {
	cfg    config.Config
	store  *walletstatedb.SQLiteStore
	writer *persist.Writer

	Sites  *permission.Service
	Ledger *transaction.Ledger
	API    *api.API

	logger zerolog.Logger
}

func (s *WalletServer) handleIPCCommands(ctx context.Context, server *ipc.Server) {
	for {
		select {
		case cmd := <-server.Commands():
			result, err := s.HandleCommand(cmd.Command, cmd.Args)
			if err != nil {
				s.logger.Debug().Err(err).Str("command", cmd.Command).Msg("ipc command failed")
			}
			server.Reply(cmd.ID, result, err)
		case <-ctx.Done():
			return
		case <-server.Done():
			return
		}
	}
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return errors.Errorf("usage: %s", usage)
	}
	return nil
}

// HandleCommand executes one IPC command against the live state.
func (s *WalletServer) HandleCommand(command string, args []string) (interface{}, error) {
	switch command {
	case ipc.CmdSitesList:
		return s.Sites.GetConnectedSites(), nil

	case ipc.CmdSitesRecent:
		return s.Sites.GetRecentConnectedSites(), nil

	case ipc.CmdSitesRemove:
		if err := requireArgs(args, 1, "sites-remove <origin>"); err != nil {
			return nil, err
		}
		s.Sites.RemoveConnectedSite(args[0])
		return s.Sites.GetConnectedSites(), nil

	case ipc.CmdSitesPin:
		if err := requireArgs(args, 1, "sites-pin <origin> [order]"); err != nil {
			return nil, err
		}
		order := 0
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return nil, errors.Errorf("invalid order %q", args[1])
			}
			order = n
		}
		if _, ok := s.Sites.GetWithoutUpdate(args[0]); !ok {
			return nil, errors.Errorf("site %s is not connected", args[0])
		}
		s.Sites.TopConnectedSite(args[0], order)
		return s.Sites.GetRecentConnectedSites(), nil

	case ipc.CmdSitesUnpin:
		if err := requireArgs(args, 1, "sites-unpin <origin>"); err != nil {
			return nil, err
		}
		s.Sites.UnpinConnectedSite(args[0])
		return s.Sites.GetRecentConnectedSites(), nil

	case ipc.CmdPendingList:
		if err := requireArgs(args, 2, "pending-list <network> <address>"); err != nil {
			return nil, err
		}
		return s.Ledger.ListPending(args[0], args[1]), nil

	case ipc.CmdPendingRemove:
		if err := requireArgs(args, 3, "pending-remove <network> <address> <txId>"); err != nil {
			return nil, err
		}
		s.Ledger.RemovePending(args[0], args[1], args[2])
		return s.Ledger.ListPending(args[0], args[1]), nil

	case ipc.CmdPendingClear:
		if err := requireArgs(args, 2, "pending-clear <network> <address>"); err != nil {
			return nil, err
		}
		s.Ledger.ClearPending(args[0], args[1])
		return s.Ledger.ListPending(args[0], args[1]), nil

	default:
		return nil, errors.Errorf("unknown command: %s", command)
	}
}
