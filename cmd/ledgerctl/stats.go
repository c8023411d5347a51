package main

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"ledgerly/internal/stats"
)

func newStatsCmd(a *app) *cobra.Command {
	var owner, period string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show income and expenses per bucket for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if owner == "" {
				return errors.New("--owner is required")
			}
			p, err := stats.ParsePeriod(period)
			if err != nil {
				return err
			}
			report, err := a.backend.Stats.Aggregate(cmd.Context(), owner, p)
			if err != nil {
				return fmt.Errorf("failed to aggregate stats: %w", err)
			}
			renderStats(report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Owner id")
	cmd.Flags().StringVarP(&period, "period", "p", string(stats.Week), "week, month or year")
	return cmd
}

func renderStats(r stats.Report) {
	data := pterm.TableData{{"Bucket", "Income", "Expense"}}
	for _, b := range r.Buckets {
		data = append(data, []string{b.Label, pterm.Green(b.Income.String()), pterm.Red(b.Expense.String())})
	}

	pterm.DefaultSection.Printf("Stats for the last %s\n", r.Period)
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Info.Printf("%d transactions in range\n", len(r.Transactions))
}
