package memory

import (
	"context"
	"time"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
)

// txView reads through to the store and keeps its own writes staged until
// RunInTx commits them. A nil staged entry marks a delete.
type txView struct {
	base         *Store
	wallets      map[string]*core.Wallet
	transactions map[string]*core.Transaction
}

var _ ledger.Store = (*txView)(nil)

func (v *txView) GetWallet(ctx context.Context, id string) (core.Wallet, error) {
	if w, ok := v.wallets[id]; ok {
		if w == nil {
			return core.Wallet{}, core.ErrNotFound
		}
		return *w, nil
	}
	return v.base.GetWallet(ctx, id)
}

func (v *txView) PutWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	var (
		old    core.Wallet
		exists bool
	)
	if w.ID != "" {
		got, err := v.GetWallet(ctx, w.ID)
		exists = err == nil
		old = got
	}
	w = mergeWallet(old, exists, w, v.base.now)
	v.wallets[w.ID] = &w
	return w, nil
}

func (v *txView) DeleteWallet(_ context.Context, id string) error {
	v.wallets[id] = nil
	return nil
}

func (v *txView) ListWallets(_ context.Context, ownerID string) ([]core.Wallet, error) {
	v.base.mu.RLock()
	all := cloneMap(v.base.wallets)
	v.base.mu.RUnlock()
	applyOverlay(all, v.wallets)
	return ownerWallets(all, ownerID), nil
}

func (v *txView) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	if t, ok := v.transactions[id]; ok {
		if t == nil {
			return core.Transaction{}, core.ErrNotFound
		}
		return *t, nil
	}
	return v.base.GetTransaction(ctx, id)
}

func (v *txView) PutTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var (
		old    core.Transaction
		exists bool
	)
	if t.ID != "" {
		got, err := v.GetTransaction(ctx, t.ID)
		exists = err == nil
		old = got
	}
	t = mergeTransaction(old, exists, t, v.base.now)
	v.transactions[t.ID] = &t
	return t, nil
}

func (v *txView) DeleteTransaction(_ context.Context, id string) error {
	v.transactions[id] = nil
	return nil
}

func (v *txView) DeleteTransactions(_ context.Context, ids []string) error {
	for _, id := range ids {
		v.transactions[id] = nil
	}
	return nil
}

func (v *txView) ListTransactionsByWallet(_ context.Context, walletID string, limit int) ([]core.Transaction, error) {
	return walletTransactions(v.allTransactions(), walletID, limit), nil
}

func (v *txView) ListTransactionsByOwner(_ context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error) {
	return ownerTransactions(v.allTransactions(), ownerID, from, to), nil
}

func (v *txView) allTransactions() map[string]core.Transaction {
	v.base.mu.RLock()
	all := cloneMap(v.base.transactions)
	v.base.mu.RUnlock()
	applyOverlay(all, v.transactions)
	return all
}
