package ledger

import (
	"context"
	"fmt"

	"ledgerly/internal/core"
	"ledgerly/internal/log"
)

// AuditReport compares a wallet's stored figures with the ones implied by
// its transactions.
type AuditReport struct {
	Wallet        core.Wallet
	Transactions  int
	Balance       core.Money
	TotalIncome   core.Money
	TotalExpenses core.Money
}

// Drifted reports whether the stored wallet disagrees with its transactions.
func (r AuditReport) Drifted() bool {
	return r.Wallet.Balance != r.Balance ||
		r.Wallet.TotalIncome != r.TotalIncome ||
		r.Wallet.TotalExpenses != r.TotalExpenses
}

// Audit recomputes a wallet's totals from its transactions. A drifted report
// points at a mutation that was interrupted between its wallet and
// transaction writes.
func (e *Engine) Audit(ctx context.Context, walletID string) (AuditReport, error) {
	return e.audit(ctx, e.store, walletID)
}

func (e *Engine) audit(ctx context.Context, s Store, walletID string) (AuditReport, error) {
	const op = "audit wallet"
	w, err := e.loadWallet(ctx, s, op, walletID)
	if err != nil {
		return AuditReport{}, err
	}
	txs, err := s.ListTransactionsByWallet(ctx, walletID, 0)
	if err != nil {
		return AuditReport{}, core.Persistence(op, fmt.Errorf("list transactions of %s: %w", walletID, err))
	}

	r := AuditReport{Wallet: w, Transactions: len(txs)}
	recomputed := core.Wallet{}
	for _, tx := range txs {
		recomputed, err = applyEffect(recomputed, tx.Type, tx.Amount)
		if err != nil {
			return AuditReport{}, core.Validation(op, fmt.Sprintf("Transactions of wallet %s overflow its totals", walletID))
		}
	}
	r.Balance = recomputed.Balance
	r.TotalIncome = recomputed.TotalIncome
	r.TotalExpenses = recomputed.TotalExpenses
	return r, nil
}

// FixWallet rewrites a drifted wallet's balance and totals from its
// transactions. It returns the report taken before the fix.
func (e *Engine) FixWallet(ctx context.Context, walletID string) (AuditReport, error) {
	const op = "fix wallet"
	var report AuditReport
	err := e.run(ctx, func(s Store) error {
		r, err := e.audit(ctx, s, walletID)
		if err != nil {
			return err
		}
		report = r
		if !r.Drifted() {
			return nil
		}
		w := r.Wallet
		w.Balance = r.Balance
		w.TotalIncome = r.TotalIncome
		w.TotalExpenses = r.TotalExpenses
		if _, err := s.PutWallet(context.WithoutCancel(ctx), w); err != nil {
			return core.Persistence(op, fmt.Errorf("put wallet %s: %w", w.ID, err))
		}
		return nil
	})
	if err != nil {
		return AuditReport{}, err
	}
	if report.Drifted() {
		e.logger.WarnContext(ctx, "Wallet totals repaired", log.NewFields().
			WithOperation(log.OpAudit).
			WithWallet(walletID, report.Balance.Cents).
			ToSlice()...)
	}
	return report, nil
}
