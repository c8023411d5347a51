package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ledgerly/internal/core"
)

// DefaultRecentLimit is how many transactions the home screen lists.
const DefaultRecentLimit = 30

// Wallet returns one wallet, hiding wallets of other owners when ownerID is set.
func (e *Engine) Wallet(ctx context.Context, ownerID, walletID string) (core.Wallet, error) {
	const op = "get wallet"
	w, err := e.loadWallet(ctx, e.store, op, walletID)
	if err != nil {
		return core.Wallet{}, err
	}
	if ownerID != "" && w.OwnerID != ownerID {
		return core.Wallet{}, core.NotFound(op, msgWalletNotFound)
	}
	return w, nil
}

// Transaction returns one transaction, hiding other owners' records when ownerID is set.
func (e *Engine) Transaction(ctx context.Context, ownerID, transactionID string) (core.Transaction, error) {
	const op = "get transaction"
	tx, err := e.loadTransaction(ctx, e.store, op, transactionID)
	if err != nil {
		return core.Transaction{}, err
	}
	if ownerID != "" && tx.OwnerID != ownerID {
		return core.Transaction{}, core.NotFound(op, msgTxNotFound)
	}
	return tx, nil
}

// Wallets lists an owner's wallets, newest first.
func (e *Engine) Wallets(ctx context.Context, ownerID string) ([]core.Wallet, error) {
	wallets, err := e.store.ListWallets(ctx, ownerID)
	if err != nil {
		return nil, core.Persistence("list wallets", err)
	}
	sort.SliceStable(wallets, func(i, j int) bool {
		return wallets[i].CreatedAt.After(wallets[j].CreatedAt)
	})
	return wallets, nil
}

// Totals sums balance, income and expenses over an owner's wallets.
func (e *Engine) Totals(ctx context.Context, ownerID string) (core.Totals, error) {
	wallets, err := e.Wallets(ctx, ownerID)
	if err != nil {
		return core.Totals{}, err
	}
	return core.SumWallets(wallets), nil
}

// RecentTransactions returns an owner's latest transactions by date.
func (e *Engine) RecentTransactions(ctx context.Context, ownerID string, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	txs, err := e.ownerTransactions(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// Search filters an owner's transactions by category, type or description.
func (e *Engine) Search(ctx context.Context, ownerID, query string) ([]core.Transaction, error) {
	txs, err := e.ownerTransactions(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := txs[:0]
	for _, tx := range txs {
		if tx.Matches(query) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// WalletTransactions lists a wallet's transactions, newest first.
func (e *Engine) WalletTransactions(ctx context.Context, walletID string) ([]core.Transaction, error) {
	txs, err := e.store.ListTransactionsByWallet(ctx, walletID, 0)
	if err != nil {
		return nil, core.Persistence("list wallet transactions", fmt.Errorf("wallet %s: %w", walletID, err))
	}
	sortNewestFirst(txs)
	return txs, nil
}

func (e *Engine) ownerTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	txs, err := e.store.ListTransactionsByOwner(ctx, ownerID, time.Time{}, time.Time{})
	if err != nil {
		return nil, core.Persistence("list transactions", err)
	}
	sortNewestFirst(txs)
	return txs, nil
}

func sortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date.Equal(txs[j].Date) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].Date.After(txs[j].Date)
	})
}
