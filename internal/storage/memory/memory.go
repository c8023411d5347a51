// Package memory is an in-process ledger store used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"
)

// Store keeps wallets and transactions in maps. RunInTx serialises whole
// ledger operations and restores the previous state when fn fails.
type Store struct {
	txMu sync.Mutex

	mu           sync.RWMutex
	wallets      map[string]core.Wallet
	transactions map[string]core.Transaction
	now          func() time.Time
}

func New() *Store {
	return &Store{
		wallets:      map[string]core.Wallet{},
		transactions: map[string]core.Transaction{},
		now:          time.Now,
	}
}

// WithClock sets the clock used for CreatedAt stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

var (
	_ ledger.Store      = (*Store)(nil)
	_ ledger.Transactor = (*Store)(nil)
)

// RunInTx hands fn a staging view. Its writes reach the store only when fn
// succeeds, so a failed operation leaves no trace and never undoes writes
// made outside it in the meantime.
func (s *Store) RunInTx(_ context.Context, fn func(ledger.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	v := &txView{
		base:         s,
		wallets:      map[string]*core.Wallet{},
		transactions: map[string]*core.Transaction{},
	}
	if err := fn(v); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	applyOverlay(s.wallets, v.wallets)
	applyOverlay(s.transactions, v.transactions)
	return nil
}

func (s *Store) GetWallet(_ context.Context, id string) (core.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return core.Wallet{}, core.ErrNotFound
	}
	return w, nil
}

func (s *Store) PutWallet(_ context.Context, w core.Wallet) (core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.wallets[w.ID]
	w = mergeWallet(old, ok, w, s.now)
	s.wallets[w.ID] = w
	return w, nil
}

func (s *Store) DeleteWallet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wallets, id)
	return nil
}

func (s *Store) ListWallets(_ context.Context, ownerID string) ([]core.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ownerWallets(s.wallets, ownerID), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) PutTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.transactions[t.ID]
	t = mergeTransaction(old, ok, t, s.now)
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transactions, id)
	return nil
}

func (s *Store) DeleteTransactions(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.transactions, id)
	}
	return nil
}

func (s *Store) ListTransactionsByWallet(_ context.Context, walletID string, limit int) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return walletTransactions(s.transactions, walletID, limit), nil
}

func (s *Store) ListTransactionsByOwner(_ context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ownerTransactions(s.transactions, ownerID, from, to), nil
}

func mergeWallet(old core.Wallet, exists bool, w core.Wallet, now func() time.Time) core.Wallet {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if exists {
		w.OwnerID = old.OwnerID
		w.CreatedAt = old.CreatedAt
		if w.Name == "" {
			w.Name = old.Name
		}
		if w.Image == "" {
			w.Image = old.Image
		}
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now()
	}
	return w
}

func mergeTransaction(old core.Transaction, exists bool, t core.Transaction, now func() time.Time) core.Transaction {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if exists {
		t.OwnerID = old.OwnerID
		t.CreatedAt = old.CreatedAt
		if t.Image == "" {
			t.Image = old.Image
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	return t
}

func ownerWallets(wallets map[string]core.Wallet, ownerID string) []core.Wallet {
	out := make([]core.Wallet, 0)
	for _, w := range wallets {
		if ownerID == "" || w.OwnerID == ownerID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func walletTransactions(txs map[string]core.Transaction, walletID string, limit int) []core.Transaction {
	out := filterTransactions(txs, func(t core.Transaction) bool { return t.WalletID == walletID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func ownerTransactions(txs map[string]core.Transaction, ownerID string, from, to time.Time) []core.Transaction {
	return filterTransactions(txs, func(t core.Transaction) bool {
		if t.OwnerID != ownerID {
			return false
		}
		if !from.IsZero() && t.Date.Before(from) {
			return false
		}
		if !to.IsZero() && t.Date.After(to) {
			return false
		}
		return true
	})
}

// filterTransactions returns matching transactions newest first.
func filterTransactions(txs map[string]core.Transaction, keep func(core.Transaction) bool) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, t := range txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// applyOverlay writes staged entries into m; a nil entry is a delete.
func applyOverlay[V any](m map[string]V, staged map[string]*V) {
	for id, v := range staged {
		if v == nil {
			delete(m, id)
			continue
		}
		m[id] = *v
	}
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
