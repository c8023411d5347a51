package ledger

import (
	"context"
	"time"

	"ledgerly/internal/core"
)

// Ports for the stores and collaborators the engine drives.
type (
	WalletStore interface {
		// GetWallet returns core.ErrNotFound when the wallet does not exist.
		GetWallet(ctx context.Context, id string) (core.Wallet, error)
		// PutWallet merges w into the stored record, assigning an id when empty.
		PutWallet(ctx context.Context, w core.Wallet) (core.Wallet, error)
		DeleteWallet(ctx context.Context, id string) error
		// ListWallets returns an owner's wallets, newest first.
		ListWallets(ctx context.Context, ownerID string) ([]core.Wallet, error)
	}

	TransactionStore interface {
		// GetTransaction returns core.ErrNotFound when the transaction does not exist.
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// PutTransaction merges t into the stored record, assigning an id when empty.
		PutTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
		// DeleteTransactions removes a batch of transactions in one write.
		DeleteTransactions(ctx context.Context, ids []string) error
		// ListTransactionsByWallet returns at most limit transactions of a wallet
		// (all of them when limit <= 0).
		ListTransactionsByWallet(ctx context.Context, walletID string, limit int) ([]core.Transaction, error)
		// ListTransactionsByOwner returns an owner's transactions dated within
		// [from, to], newest first. Zero bounds are open.
		ListTransactionsByOwner(ctx context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error)
	}

	Store interface {
		WalletStore
		TransactionStore
	}

	// Transactor is implemented by stores able to run a sequence of reads and
	// writes as one atomic unit.
	Transactor interface {
		RunInTx(ctx context.Context, fn func(Store) error) error
	}

	// Uploader resolves an image to a hosted URL.
	Uploader interface {
		Upload(ctx context.Context, img core.Image, folder string) (string, error)
	}

	// CascadeDispatcher starts the removal of a deleted wallet's transactions.
	// It must not wait for the purge to finish.
	CascadeDispatcher interface {
		DispatchPurge(ctx context.Context, walletID string) error
	}

	// EventPublisher is notified after a mutation has been fully written.
	EventPublisher interface {
		Publish(ctx context.Context, ev Event) error
	}
)

// EventType names a committed ledger mutation.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventWalletSaved        EventType = "wallet.saved"
	EventWalletDeleted      EventType = "wallet.deleted"
	// EventWalletPurged follows a purge that removed at least one transaction.
	EventWalletPurged EventType = "wallet.purged"
)

type Event struct {
	Type          EventType
	OwnerID       string
	WalletID      string
	TransactionID string
	Transaction   *core.Transaction
	At            time.Time
}
