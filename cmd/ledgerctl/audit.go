package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"ledgerly/internal/ledger"
)

func newAuditCmd(a *app) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "audit <wallet-id>",
		Short: "Compare a wallet's stored totals with its transactions",
		Long: `Recompute a wallet's balance, income and expenses from its transactions
and compare them with the stored figures. With --fix, a drifted wallet is
rewritten from its transactions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				report ledger.AuditReport
				err    error
			)
			if fix {
				report, err = a.backend.Engine.FixWallet(cmd.Context(), args[0])
			} else {
				report, err = a.backend.Engine.Audit(cmd.Context(), args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to audit wallet: %w", err)
			}
			renderAudit(report, fix)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Rewrite drifted totals from the transactions")
	return cmd
}

func renderAudit(r ledger.AuditReport, fixed bool) {
	mark := func(stored, computed string) string {
		if stored == computed {
			return pterm.Green("ok")
		}
		return pterm.Red("drift")
	}

	data := pterm.TableData{
		{"Figure", "Stored", "From transactions", ""},
		{"Balance", r.Wallet.Balance.String(), r.Balance.String(), mark(r.Wallet.Balance.String(), r.Balance.String())},
		{"Income", r.Wallet.TotalIncome.String(), r.TotalIncome.String(), mark(r.Wallet.TotalIncome.String(), r.TotalIncome.String())},
		{"Expenses", r.Wallet.TotalExpenses.String(), r.TotalExpenses.String(), mark(r.Wallet.TotalExpenses.String(), r.TotalExpenses.String())},
	}

	pterm.DefaultSection.Printf("Wallet %s (%s)\n", r.Wallet.Name, r.Wallet.ID)
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Info.Printf("%d transactions\n", r.Transactions)

	switch {
	case !r.Drifted():
		pterm.Success.Println("Wallet is consistent")
	case fixed:
		pterm.Success.Println("Wallet totals rewritten from transactions")
	default:
		pterm.Warning.Println("Wallet has drifted, run again with --fix to repair it")
	}
}
