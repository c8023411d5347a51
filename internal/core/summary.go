package core

// Totals is the aggregate over all of an owner's wallets.
type Totals struct {
	Balance  Money
	Income   Money
	Expenses Money
}

// SumWallets adds up balances and totals across wallets.
func SumWallets(wallets []Wallet) Totals {
	var t Totals
	for _, w := range wallets {
		t.Balance = t.Balance.Add(w.Balance)
		t.Income = t.Income.Add(w.TotalIncome)
		t.Expenses = t.Expenses.Add(w.TotalExpenses)
	}
	return t
}
