package http

import (
	"time"

	"ledgerly/internal/core"
	"ledgerly/internal/stats"
)

// Amounts travel as two-decimal strings next to their integer cents.

type walletDTO struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Image              string    `json:"image,omitempty"`
	Amount             string    `json:"amount"`
	AmountCents        int64     `json:"amountCents"`
	TotalIncome        string    `json:"totalIncome"`
	TotalIncomeCents   int64     `json:"totalIncomeCents"`
	TotalExpenses      string    `json:"totalExpenses"`
	TotalExpensesCents int64     `json:"totalExpensesCents"`
	CreatedAt          time.Time `json:"createdAt"`
}

func toWalletDTO(w core.Wallet) walletDTO {
	return walletDTO{
		ID:                 w.ID,
		Name:               w.Name,
		Image:              w.Image,
		Amount:             w.Balance.String(),
		AmountCents:        w.Balance.Cents,
		TotalIncome:        w.TotalIncome.String(),
		TotalIncomeCents:   w.TotalIncome.Cents,
		TotalExpenses:      w.TotalExpenses.String(),
		TotalExpensesCents: w.TotalExpenses.Cents,
		CreatedAt:          w.CreatedAt,
	}
}

func toWalletDTOs(ws []core.Wallet) []walletDTO {
	out := make([]walletDTO, len(ws))
	for i, w := range ws {
		out[i] = toWalletDTO(w)
	}
	return out
}

type transactionDTO struct {
	ID          string    `json:"id"`
	WalletID    string    `json:"walletId"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amountCents"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Image       string    `json:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:          t.ID,
		WalletID:    t.WalletID,
		Type:        t.Type.String(),
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
		Image:       t.Image,
		CreatedAt:   t.CreatedAt,
	}
}

func toTransactionDTOs(ts []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, len(ts))
	for i, t := range ts {
		out[i] = toTransactionDTO(t)
	}
	return out
}

type totalsDTO struct {
	Balance       string `json:"balance"`
	BalanceCents  int64  `json:"balanceCents"`
	Income        string `json:"income"`
	IncomeCents   int64  `json:"incomeCents"`
	Expenses      string `json:"expenses"`
	ExpensesCents int64  `json:"expensesCents"`
}

func toTotalsDTO(t core.Totals) totalsDTO {
	return totalsDTO{
		Balance:       t.Balance.String(),
		BalanceCents:  t.Balance.Cents,
		Income:        t.Income.String(),
		IncomeCents:   t.Income.Cents,
		Expenses:      t.Expenses.String(),
		ExpensesCents: t.Expenses.Cents,
	}
}

type bucketDTO struct {
	Label        string    `json:"label"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Income       string    `json:"income"`
	IncomeCents  int64     `json:"incomeCents"`
	Expense      string    `json:"expense"`
	ExpenseCents int64     `json:"expenseCents"`
}

type statsDTO struct {
	Period       string           `json:"period"`
	Buckets      []bucketDTO      `json:"buckets"`
	Transactions []transactionDTO `json:"transactions"`
}

func toStatsDTO(r stats.Report) statsDTO {
	out := statsDTO{
		Period:       string(r.Period),
		Buckets:      make([]bucketDTO, len(r.Buckets)),
		Transactions: toTransactionDTOs(r.Transactions),
	}
	for i, b := range r.Buckets {
		out.Buckets[i] = bucketDTO{
			Label:        b.Label,
			Start:        b.Start,
			End:          b.End,
			Income:       b.Income.String(),
			IncomeCents:  b.Income.Cents,
			Expense:      b.Expense.String(),
			ExpenseCents: b.Expense.Cents,
		}
	}
	return out
}
