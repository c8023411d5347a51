package ledger

import (
	"context"
	"fmt"
	"strings"

	"ledgerly/internal/core"
	"ledgerly/internal/log"
)

// WalletInput creates a wallet (empty ID) or renames / re-icons an existing one.
// Balances are never set through it.
type WalletInput struct {
	ID      string
	OwnerID string
	Name    string
	Image   core.Image
}

// SaveWallet creates or updates a wallet's name and icon.
func (e *Engine) SaveWallet(ctx context.Context, in WalletInput) (core.Wallet, error) {
	const op = "save wallet"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return core.Wallet{}, core.Validation(op, "Please fill all the fields")
	}
	if in.ID == "" && strings.TrimSpace(in.OwnerID) == "" {
		return core.Wallet{}, core.Validation(op, "Wallet owner is required")
	}

	var saved core.Wallet
	err := e.run(ctx, func(s Store) error {
		w := core.Wallet{OwnerID: in.OwnerID, Name: name, CreatedAt: e.now()}
		if in.ID != "" {
			existing, err := e.loadWallet(ctx, s, op, in.ID)
			if err != nil {
				return err
			}
			if in.OwnerID != "" && existing.OwnerID != in.OwnerID {
				return core.NotFound(op, msgWalletNotFound)
			}
			w = existing
			w.Name = name
		}

		image, err := e.resolveImage(ctx, op, in.Image, e.folder("wallets"))
		if err != nil {
			return err
		}
		if image != "" {
			w.Image = image
		}
		if err := ctx.Err(); err != nil {
			return core.Canceled(op, err)
		}

		saved, err = s.PutWallet(context.WithoutCancel(ctx), w)
		if err != nil {
			return core.Persistence(op, fmt.Errorf("put wallet: %w", err))
		}
		return nil
	})
	if err != nil {
		e.logFailure(ctx, "Wallet save failed", err, log.NewFields().WithWallet(in.ID, 0))
		return core.Wallet{}, err
	}

	e.logger.InfoContext(ctx, "Wallet saved", log.NewFields().
		WithOperation(string(EventWalletSaved)).
		WithWallet(saved.ID, saved.Balance.Cents).
		ToSlice()...)
	e.publish(ctx, Event{Type: EventWalletSaved, OwnerID: saved.OwnerID, WalletID: saved.ID})
	return saved, nil
}

// DeleteWallet removes the wallet record and hands its transactions to the
// cascade dispatcher. It returns once the wallet itself is gone; the purge
// completes in the background.
func (e *Engine) DeleteWallet(ctx context.Context, walletID string) error {
	const op = "delete wallet"
	if strings.TrimSpace(walletID) == "" {
		return core.Validation(op, "Wallet id is required")
	}

	var deleted core.Wallet
	err := e.run(ctx, func(s Store) error {
		w, err := e.loadWallet(ctx, s, op, walletID)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return core.Canceled(op, err)
		}
		if err := s.DeleteWallet(context.WithoutCancel(ctx), w.ID); err != nil {
			return core.Persistence(op, fmt.Errorf("delete wallet %s: %w", w.ID, err))
		}
		deleted = w
		return nil
	})
	if err != nil {
		e.logFailure(ctx, "Wallet delete failed", err, log.NewFields().WithWallet(walletID, 0))
		return err
	}

	dctx := context.WithoutCancel(ctx)
	if err := e.dispatcher.DispatchPurge(dctx, walletID); err != nil {
		e.logger.ErrorContext(ctx, "Purge dispatch failed, purging in process",
			log.NewFields().WithWallet(walletID, 0).WithError(err).ToSlice()...)
		_ = InlineDispatcher{Engine: e}.DispatchPurge(dctx, walletID)
	}

	e.logger.InfoContext(ctx, "Wallet deleted", log.NewFields().
		WithOperation(log.OpDelete).
		WithWallet(walletID, deleted.Balance.Cents).
		ToSlice()...)
	e.publish(ctx, Event{Type: EventWalletDeleted, OwnerID: deleted.OwnerID, WalletID: walletID})
	return nil
}

// PurgeWalletTransactions deletes every transaction of walletID in batches
// until none remain, returning how many were removed. It is safe to run more
// than once for the same wallet. A purge that removed anything publishes
// EventWalletPurged so cached stats of the owner are dropped.
func (e *Engine) PurgeWalletTransactions(ctx context.Context, walletID string) (int, error) {
	const op = "purge wallet"
	var (
		removed int
		ownerID string
	)
	defer func() {
		if removed > 0 {
			e.publish(ctx, Event{Type: EventWalletPurged, OwnerID: ownerID, WalletID: walletID})
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return removed, core.Canceled(op, err)
		}
		batch, err := e.store.ListTransactionsByWallet(ctx, walletID, e.batchSize)
		if err != nil {
			return removed, core.Persistence(op, fmt.Errorf("list transactions of %s: %w", walletID, err))
		}
		if len(batch) == 0 {
			break
		}
		ids := make([]string, 0, len(batch))
		for _, tx := range batch {
			ids = append(ids, tx.ID)
			if ownerID == "" {
				ownerID = tx.OwnerID
			}
		}
		if err := e.store.DeleteTransactions(ctx, ids); err != nil {
			return removed, core.Persistence(op, fmt.Errorf("delete batch of %d: %w", len(ids), err))
		}
		removed += len(ids)
		e.logger.DebugContext(ctx, "Purged transaction batch",
			log.FieldWalletID, walletID, log.FieldCount, len(ids))
	}

	e.logger.InfoContext(ctx, "Wallet transactions purged",
		log.FieldOperation, log.OpPurge, log.FieldWalletID, walletID, log.FieldCount, removed)
	return removed, nil
}

// InlineDispatcher purges on a goroutine owned by the engine.
type InlineDispatcher struct {
	Engine *Engine
}

func (d InlineDispatcher) DispatchPurge(ctx context.Context, walletID string) error {
	e := d.Engine
	e.purges.Add(1)
	go func() {
		defer e.purges.Done()
		if _, err := e.PurgeWalletTransactions(context.WithoutCancel(ctx), walletID); err != nil {
			e.logger.Error("Background purge failed",
				log.FieldWalletID, walletID, log.FieldError, err)
		}
	}()
	return nil
}
