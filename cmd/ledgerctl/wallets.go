package main

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"ledgerly/internal/core"
)

func newWalletsCmd(a *app) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "List an owner's wallets with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owner == "" {
				return errors.New("--owner is required")
			}
			wallets, err := a.backend.Engine.Wallets(cmd.Context(), owner)
			if err != nil {
				return fmt.Errorf("failed to list wallets: %w", err)
			}
			renderWallets(wallets)
			return nil
		},
	}
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Owner id")
	return cmd
}

func renderWallets(wallets []core.Wallet) {
	if len(wallets) == 0 {
		pterm.Info.Println("No wallets")
		return
	}

	data := pterm.TableData{{"ID", "Name", "Balance", "Income", "Expenses", "Created"}}
	for _, w := range wallets {
		balance := w.Balance.String()
		if w.Balance.IsNegative() {
			balance = pterm.Red(balance)
		}
		data = append(data, []string{
			w.ID,
			w.Name,
			balance,
			pterm.Green(w.TotalIncome.String()),
			pterm.Red(w.TotalExpenses.String()),
			w.CreatedAt.Format("2006-01-02"),
		})
	}

	totals := core.SumWallets(wallets)
	pterm.DefaultSection.Println("Wallets")
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Info.Printf("Total: %d wallets, balance %s\n", len(wallets), totals.Balance.String())
}
