package ledger

import (
	"context"
	"errors"

	"ledgerly/internal/core"
)

// applyEffect adds a transaction of the given type and amount to w. It fails
// with core.ErrAmountOverflow instead of wrapping a balance or total.
func applyEffect(w core.Wallet, t core.TransactionType, amount core.Money) (core.Wallet, error) {
	var err1, err2 error
	switch t {
	case core.Income:
		w.Balance, err1 = w.Balance.CheckedAdd(amount)
		w.TotalIncome, err2 = w.TotalIncome.CheckedAdd(amount)
	case core.Expense:
		w.Balance, err1 = w.Balance.CheckedSub(amount)
		w.TotalExpenses, err2 = w.TotalExpenses.CheckedAdd(amount)
	}
	if err := errors.Join(err1, err2); err != nil {
		return core.Wallet{}, core.ErrAmountOverflow
	}
	return w, nil
}

// revertEffect is the exact inverse of applyEffect.
func revertEffect(w core.Wallet, t core.TransactionType, amount core.Money) (core.Wallet, error) {
	var err1, err2 error
	switch t {
	case core.Income:
		w.Balance, err1 = w.Balance.CheckedSub(amount)
		w.TotalIncome, err2 = w.TotalIncome.CheckedSub(amount)
	case core.Expense:
		w.Balance, err1 = w.Balance.CheckedAdd(amount)
		w.TotalExpenses, err2 = w.TotalExpenses.CheckedSub(amount)
	}
	if err := errors.Join(err1, err2); err != nil {
		return core.Wallet{}, core.ErrAmountOverflow
	}
	return w, nil
}

var errLocalImageUnsupported = errors.New("no image host configured for local files")

// PassthroughUploader keeps already-hosted URLs and rejects local files.
type PassthroughUploader struct{}

func (PassthroughUploader) Upload(_ context.Context, img core.Image, _ string) (string, error) {
	if img.URL != "" {
		return img.URL, nil
	}
	return "", errLocalImageUnsupported
}
