package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReopenKeepsSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		if got := repo.SchemaVersion(); got != 1 {
			t.Errorf("open #%d: SchemaVersion() = %d, want 1", i+1, got)
		}
		repo.Close()
	}
}

func TestWalletUpsertMerges(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	w, err := repo.PutWallet(ctx, core.Wallet{OwnerID: "u1", Name: "Cash", Image: "https://img/a.png"})
	if err != nil || w.ID == "" || w.CreatedAt.IsZero() {
		t.Fatalf("create: w=%+v err=%v", w, err)
	}

	got, err := repo.PutWallet(ctx, core.Wallet{ID: w.ID, OwnerID: "someone-else", Balance: core.Money{Cents: -50}, TotalExpenses: core.Money{Cents: 50}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Cash" || got.Image != "https://img/a.png" || got.OwnerID != "u1" || !got.CreatedAt.Equal(w.CreatedAt) {
		t.Fatalf("merge lost fields: %+v", got)
	}
	if got.Balance.Cents != -50 || got.TotalExpenses.Cents != 50 {
		t.Fatalf("money fields not written: %+v", got)
	}

	if err := repo.DeleteWallet(ctx, w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetWallet(ctx, w.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionQueries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	day := func(d int) time.Time { return time.Date(2024, 2, d, 8, 30, 0, 0, time.UTC) }

	var ids []string
	for _, d := range []int{4, 1, 9, 6} {
		tx, err := repo.PutTransaction(ctx, core.Transaction{
			OwnerID: "u1", WalletID: "w1", Type: core.Expense, Amount: core.Money{Cents: int64(d * 100)},
			Category: "rent", Description: "d", Date: day(d),
		})
		if err != nil {
			t.Fatalf("put: %v", err)
		}
		ids = append(ids, tx.ID)
	}

	byWallet, err := repo.ListTransactionsByWallet(ctx, "w1", 3)
	if err != nil || len(byWallet) != 3 {
		t.Fatalf("by wallet: %d %v", len(byWallet), err)
	}
	if !byWallet[0].Date.Equal(day(9)) {
		t.Fatalf("expected newest first, got %v", byWallet[0].Date)
	}

	ranged, err := repo.ListTransactionsByOwner(ctx, "u1", day(2), day(6))
	if err != nil || len(ranged) != 2 {
		t.Fatalf("ranged: %d %v", len(ranged), err)
	}

	if err := repo.DeleteTransactions(ctx, ids[:3]); err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	rest, _ := repo.ListTransactionsByOwner(ctx, "u1", time.Time{}, time.Time{})
	if len(rest) != 1 || rest[0].ID != ids[3] {
		t.Fatalf("unexpected rest: %+v", rest)
	}

	// Update keeps image and creation time when not supplied.
	first, _ := repo.GetTransaction(ctx, ids[3])
	first.Image = "https://img/r.png"
	repo.PutTransaction(ctx, first)
	first.Image = ""
	first.Description = "edited"
	updated, err := repo.PutTransaction(ctx, first)
	if err != nil || updated.Image != "https://img/r.png" || updated.Description != "edited" || !updated.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("merge: %+v err=%v", updated, err)
	}
}

func TestRejectsNonPositiveAmount(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.PutTransaction(context.Background(), core.Transaction{
		OwnerID: "u1", WalletID: "w1", Type: core.Income, Date: time.Now(),
	})
	if err == nil {
		t.Fatal("expected constraint violation for zero amount")
	}
}

func TestRunInTxRollback(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	w, _ := repo.PutWallet(ctx, core.Wallet{OwnerID: "u1", Name: "Cash"})

	boom := errors.New("boom")
	err := repo.RunInTx(ctx, func(s ledger.Store) error {
		if _, err := s.PutWallet(ctx, core.Wallet{ID: w.ID, Balance: core.Money{Cents: 900}, TotalIncome: core.Money{Cents: 900}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := repo.GetWallet(ctx, w.ID)
	if got.Balance.Cents != 0 {
		t.Fatalf("expected rollback, got balance %d", got.Balance.Cents)
	}
}

func TestEngineOnSQLite(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	e := ledger.New(repo, ledger.Config{})
	t.Cleanup(e.Wait)

	w, err := e.SaveWallet(ctx, ledger.WalletInput{OwnerID: "u1", Name: "Main"})
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if _, err := e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: w.ID, Type: core.Income, Amount: core.Money{Cents: 100000}}); err != nil {
		t.Fatalf("income: %v", err)
	}
	exp, err := e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: w.ID, Type: core.Expense, Amount: core.Money{Cents: 30000}, Category: "dining"})
	if err != nil {
		t.Fatalf("expense: %v", err)
	}
	if _, err := e.UpsertTransaction(ctx, ledger.TransactionInput{ID: exp.ID, WalletID: w.ID, Type: core.Expense, Amount: core.Money{Cents: 80000}, Category: "dining"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := repo.GetWallet(ctx, w.ID)
	if got.Balance.Cents != 20000 || got.TotalExpenses.Cents != 80000 {
		t.Fatalf("unexpected wallet %+v", got)
	}

	if err := e.DeleteWallet(ctx, w.ID); err != nil {
		t.Fatalf("delete wallet: %v", err)
	}
	e.Wait()
	left, _ := repo.ListTransactionsByWallet(ctx, w.ID, 0)
	if len(left) != 0 {
		t.Fatalf("expected purge, %d left", len(left))
	}
}
