package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -5}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestParseTransactionType(t *testing.T) {
	for _, in := range []string{"income", "Expense", " INCOME "} {
		if _, err := ParseTransactionType(in); err != nil {
			t.Errorf("ParseTransactionType(%q) unexpected error: %v", in, err)
		}
	}
	_, err := ParseTransactionType("transfer")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIsExpenseCategory(t *testing.T) {
	if !IsExpenseCategory("Dining") {
		t.Error("dining should be a known category")
	}
	if IsExpenseCategory("yachts") {
		t.Error("yachts should not be a known category")
	}
}

func TestTransactionSignedAndMatches(t *testing.T) {
	tx := Transaction{Type: Expense, Amount: Money{Cents: 300}, Category: "dining", Description: "Pizza night"}
	if got := tx.Signed(); got.Cents != -300 {
		t.Fatalf("Signed() = %d, want -300", got.Cents)
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"z", true}, // single character matches everything
		{"pizza", true},
		{"DIN", true},
		{"exp", true},
		{"salary", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := tx.Matches(tt.query); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSumWallets(t *testing.T) {
	got := SumWallets([]Wallet{
		{Balance: Money{Cents: 700}, TotalIncome: Money{Cents: 1000}, TotalExpenses: Money{Cents: 300}},
		{Balance: Money{Cents: 50}, TotalIncome: Money{Cents: 50}},
	})
	if got.Balance.Cents != 750 || got.Income.Cents != 1050 || got.Expenses.Cents != 300 {
		t.Fatalf("unexpected totals: %+v", got)
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("get wallet", "Wallet not found!"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("expected errors.Is to match ErrNotFound through wrapping")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("not-found must not match validation")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("KindOf = %q", KindOf(err))
	}
	if Message(err) != "Wallet not found!" {
		t.Fatalf("Message = %q", Message(err))
	}

	cause := errors.New("disk full")
	perr := Persistence("put wallet", cause)
	if !errors.Is(perr, cause) {
		t.Fatal("persistence error should unwrap to its cause")
	}
	if perr.Error() != "put wallet: disk full" {
		t.Fatalf("Error() = %q", perr.Error())
	}
}
