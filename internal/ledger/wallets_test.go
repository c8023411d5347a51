package ledger_test

import (
	"context"
	"errors"
	"testing"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
	"ledgerly/internal/storage/memory"
)

type failingDispatcher struct{ calls int }

func (d *failingDispatcher) DispatchPurge(context.Context, string) error {
	d.calls++
	return errors.New("broker unavailable")
}

type capturingDispatcher struct{ wallets []string }

func (d *capturingDispatcher) DispatchPurge(_ context.Context, walletID string) error {
	d.wallets = append(d.wallets, walletID)
	return nil
}

func TestSaveWalletCreateAndRename(t *testing.T) {
	ctx := context.Background()
	up := &stubUploader{url: "https://cdn/icon.png"}
	e := newEngine(t, memory.New(), ledger.Config{Uploader: up})

	w, err := e.SaveWallet(ctx, ledger.WalletInput{OwnerID: "u1", Name: "  Savings ", Image: core.FileImage("icon.png")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.Name != "Savings" || w.Image != "https://cdn/icon.png" || !w.CreatedAt.Equal(testNow) {
		t.Fatalf("unexpected wallet: %+v", w)
	}
	if up.folders[0] != "expense-tracker/wallets" {
		t.Fatalf("unexpected folder %q", up.folders[0])
	}
	e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: w.ID, Type: core.Income, Amount: cents(4200)})

	renamed, err := e.SaveWallet(ctx, ledger.WalletInput{ID: w.ID, OwnerID: "u1", Name: "Rainy day"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Rainy day" || renamed.Image != w.Image || renamed.Balance.Cents != 4200 {
		t.Fatalf("rename should only touch the name: %+v", renamed)
	}

	for _, in := range []ledger.WalletInput{
		{OwnerID: "u1"},
		{Name: "no owner"},
	} {
		if _, err := e.SaveWallet(ctx, in); !errors.Is(err, core.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", in, err)
		}
	}
	if _, err := e.SaveWallet(ctx, ledger.WalletInput{ID: w.ID, OwnerID: "u2", Name: "mine"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected foreign wallet hidden, got %v", err)
	}
}

func TestDeleteWalletCascadesInBatches(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := newEngine(t, store, ledger.Config{BatchSize: 2})
	w := seedWallet(t, e, "u1", "Doomed")
	other := seedWallet(t, e, "u1", "Kept")
	for i := 0; i < 3; i++ {
		if _, err := e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: w.ID, Type: core.Income, Amount: cents(100)}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: other.ID, Type: core.Income, Amount: cents(100)})

	if err := e.DeleteWallet(ctx, w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetWallet(ctx, w.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("wallet should be gone, got %v", err)
	}
	e.Wait()

	left, _ := store.ListTransactionsByWallet(ctx, w.ID, 0)
	if len(left) != 0 {
		t.Fatalf("expected cascade to remove all transactions, %d left", len(left))
	}
	kept, _ := store.ListTransactionsByWallet(ctx, other.ID, 0)
	if len(kept) != 1 {
		t.Fatalf("other wallet's transactions touched: %d", len(kept))
	}
}

func TestPurgeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := newEngine(t, store, ledger.Config{Dispatcher: &capturingDispatcher{}})
	w := seedWallet(t, e, "u1", "Main")
	e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: w.ID, Type: core.Income, Amount: cents(1)})

	n, err := e.PurgeWalletTransactions(ctx, w.ID)
	if err != nil || n != 1 {
		t.Fatalf("first purge: n=%d err=%v", n, err)
	}
	n, err = e.PurgeWalletTransactions(ctx, w.ID)
	if err != nil || n != 0 {
		t.Fatalf("second purge: n=%d err=%v", n, err)
	}
}

func TestPurgePublishesOnlyWhenSomethingWasRemoved(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	e := newEngine(t, memory.New(), ledger.Config{Events: pub})
	w := seedWallet(t, e, "u1", "Main")
	e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: w.ID, Type: core.Income, Amount: cents(1)})
	pub.events = nil

	if _, err := e.PurgeWalletTransactions(ctx, w.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, err := e.PurgeWalletTransactions(ctx, w.ID); err != nil {
		t.Fatalf("second purge: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %+v", pub.events)
	}
	if ev := pub.events[0]; ev.Type != ledger.EventWalletPurged || ev.OwnerID != "u1" || ev.WalletID != w.ID {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestDeleteWalletUsesDispatcher(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	d := &capturingDispatcher{}
	e := newEngine(t, store, ledger.Config{Dispatcher: d})
	w := seedWallet(t, e, "u1", "Main")
	e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: w.ID, Type: core.Income, Amount: cents(1)})

	if err := e.DeleteWallet(ctx, w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(d.wallets) != 1 || d.wallets[0] != w.ID {
		t.Fatalf("expected dispatch for %s, got %v", w.ID, d.wallets)
	}
	// The dispatcher owns the purge, so the transaction is still there.
	left, _ := store.ListTransactionsByWallet(ctx, w.ID, 0)
	if len(left) != 1 {
		t.Fatalf("expected transaction to await the worker, got %d", len(left))
	}
}

func TestDeleteWalletFallsBackToInlinePurge(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	d := &failingDispatcher{}
	e := newEngine(t, store, ledger.Config{Dispatcher: d})
	w := seedWallet(t, e, "u1", "Main")
	e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: w.ID, Type: core.Income, Amount: cents(1)})

	if err := e.DeleteWallet(ctx, w.ID); err != nil {
		t.Fatalf("delete should succeed despite dispatch failure: %v", err)
	}
	e.Wait()
	if d.calls != 1 {
		t.Fatalf("expected one dispatch attempt, got %d", d.calls)
	}
	left, _ := store.ListTransactionsByWallet(ctx, w.ID, 0)
	if len(left) != 0 {
		t.Fatalf("expected inline purge, %d left", len(left))
	}
}

func TestPurgeReportsStoreFailure(t *testing.T) {
	ctx := context.Background()
	faulty := &faultyStore{Store: memory.New(), failDeletes: errors.New("locked")}
	e := newEngine(t, faulty, ledger.Config{Dispatcher: &capturingDispatcher{}})
	w := seedWallet(t, e, "u1", "Main")
	e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: w.ID, Type: core.Income, Amount: cents(1)})

	if _, err := e.PurgeWalletTransactions(ctx, w.ID); !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestWalletWriteFailureIsPersistence(t *testing.T) {
	ctx := context.Background()
	faulty := &faultyStore{Store: memory.New()}
	e := newEngine(t, faulty, ledger.Config{})
	w := seedWallet(t, e, "u1", "Main")

	faulty.failPutWal = errors.New("disk full")
	_, err := e.UpsertTransaction(ctx, ledger.TransactionInput{WalletID: w.ID, Type: core.Income, Amount: cents(1)})
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	txs, _ := faulty.ListTransactionsByWallet(ctx, w.ID, 0)
	if len(txs) != 0 {
		t.Fatalf("transaction must not be written after a failed wallet write")
	}
}
