package core

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// IncomeCategory is the single category recorded on income transactions.
const IncomeCategory = "income"

type (
	TransactionType string

	// Image is a receipt or wallet icon as handed over by the client: either
	// a URL that is already hosted, or a file that still needs uploading.
	// Open streams the file; it is nil for hosted images.
	Image struct {
		URL  string
		Name string
		Open func() (io.ReadCloser, error)
	}

	Wallet struct {
		ID            string
		OwnerID       string
		Name          string
		Image         string
		Balance       Money
		TotalIncome   Money
		TotalExpenses Money
		CreatedAt     time.Time
	}

	Transaction struct {
		ID          string
		OwnerID     string
		WalletID    string
		Type        TransactionType
		Amount      Money
		Category    string
		Description string
		Date        time.Time
		Image       string
		CreatedAt   time.Time
	}
)

// ExpenseCategories lists the categories an expense may be filed under.
var ExpenseCategories = []string{
	"groceries",
	"rent",
	"utilities",
	"transportation",
	"entertainment",
	"dining",
	"health",
	"insurance",
	"savings",
	"clothing",
	"personal",
	"others",
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType accepts the type case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", Validation("parse type", "transaction type must be income or expense")
	}
	return t, nil
}

// IsExpenseCategory reports whether c is one of ExpenseCategories.
func IsExpenseCategory(c string) bool {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, known := range ExpenseCategories {
		if known == c {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no image was provided.
func (i Image) IsEmpty() bool {
	return strings.TrimSpace(i.URL) == "" && i.Open == nil
}

// FileImage is an image read from a file on disk.
func FileImage(path string) Image {
	return Image{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// Consistent reports whether the wallet satisfies balance == income - expenses.
func (w Wallet) Consistent() bool {
	return w.Balance.Cents == w.TotalIncome.Cents-w.TotalExpenses.Cents
}

// Signed returns the transaction's effect on a wallet balance.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return Money{Cents: -t.Amount.Cents}
	}
	return t.Amount
}

// Matches reports whether the transaction matches a search query on
// category, type or description. Queries shorter than two characters match
// everything.
func (t Transaction) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) <= 1 {
		return true
	}
	return strings.Contains(strings.ToLower(t.Category), q) ||
		strings.Contains(strings.ToLower(string(t.Type)), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}
