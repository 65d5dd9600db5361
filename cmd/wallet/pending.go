package main

import (
	"fmt"

	"github.com/Maphikza/flow-wallet-state/internal/ipc"
	"github.com/Maphikza/flow-wallet-state/internal/transaction"
	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Inspect and manage pending transactions",
}

func init() {
	pendingCmd.AddCommand(pendingListCmd, pendingRemoveCmd, pendingClearCmd, pendingCopyCmd)
	pendingCopyCmd.Flags().Bool("evm", false, "Copy the last EVM hash instead of the Cadence id")
}

func listPending(command string, args []string) ([]transaction.PendingTransaction, error) {
	var list []transaction.PendingTransaction
	if err := sendCommand(command, args, &list); err != nil {
		return nil, err
	}
	return list, nil
}

var pendingListCmd = &cobra.Command{
	Use:   "list [network] [address]",
	Short: "List pending transactions for an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := listPending(ipc.CmdPendingList, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	},
}

var pendingRemoveCmd = &cobra.Command{
	Use:   "remove [network] [address] [tx-id]",
	Short: "Remove a pending transaction by Cadence id or EVM hash",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := listPending(ipc.CmdPendingRemove, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	},
}

var pendingClearCmd = &cobra.Command{
	Use:   "clear [network] [address]",
	Short: "Drop every pending transaction for an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := listPending(ipc.CmdPendingClear, args); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared pending transactions for %s on %s\n", args[1], args[0])
		return nil
	},
}

var pendingCopyCmd = &cobra.Command{
	Use:   "copy [network] [address]",
	Short: "Copy the newest pending transaction id to the clipboard",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := listPending(ipc.CmdPendingList, args)
		if err != nil {
			return err
		}
		evm, _ := cmd.Flags().GetBool("evm")
		id, err := newestID(list, evm)
		if err != nil {
			return err
		}
		if err := clipboard.WriteAll(id); err != nil {
			return errors.Wrap(err, "failed to write to clipboard")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Copied %s\n", id)
		return nil
	},
}

// newestID picks the id of the most recently submitted record.
func newestID(list []transaction.PendingTransaction, evm bool) (string, error) {
	if len(list) == 0 {
		return "", errors.New("no pending transactions")
	}
	newest := list[len(list)-1]
	if !evm {
		return newest.CadenceTxID, nil
	}
	if len(newest.EVMTxIDs) == 0 {
		return "", errors.Errorf("transaction %s has no EVM hash yet", newest.CadenceTxID)
	}
	return newest.EVMTxIDs[len(newest.EVMTxIDs)-1], nil
}
