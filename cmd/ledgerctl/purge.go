package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"ledgerly/internal/core"
)

func newPurgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <wallet-id>",
		Short: "Delete the transactions left behind by a deleted wallet",
		Long: `Delete every transaction that still references a deleted wallet. Use it
when a background purge was interrupted. Wallets that still exist are
refused, since purging them would leave their balance drifted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			walletID := args[0]
			engine := a.backend.Engine

			_, err := engine.Wallet(cmd.Context(), "", walletID)
			switch {
			case err == nil:
				return fmt.Errorf("wallet %s still exists, delete it first", walletID)
			case core.KindOf(err) != core.KindNotFound:
				return fmt.Errorf("failed to look up wallet: %w", err)
			}

			n, err := engine.PurgeWalletTransactions(cmd.Context(), walletID)
			if err != nil {
				return fmt.Errorf("purge stopped after %d transactions: %w", n, err)
			}
			pterm.Success.Printf("Purged %d transactions of wallet %s\n", n, walletID)
			return nil
		},
	}
}
