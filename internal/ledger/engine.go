// Package ledger keeps wallet balances consistent with the transactions
// recorded against them.
//
// Every mutation follows the same shape: validate the input, read the records
// it touches, check funds, then write wallets before the transaction record.
// When the store implements Transactor the whole sequence runs inside one
// backing-store transaction; otherwise a failure after the first write leaves
// the wallet adjusted without the matching transaction write, which Audit can
// detect and repair.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ledgerly/internal/core"
	"ledgerly/internal/log"
)

const (
	DefaultBatchSize  = 100
	DefaultFolderRoot = "expense-tracker"

	msgInvalidTransaction = "Invalid transaction data!"
	msgWalletNotFound     = "Wallet not found!"
	msgTxNotFound         = "Transaction not found!"
	msgNotEnoughBalance   = "Selected wallet doesn't have enough balance!"
	msgCannotDelete       = "You can't delete this transaction!"
	msgAmountOutOfRange   = "Amount is out of range for this wallet"
)

// Config wires the engine's collaborators. Only the store is mandatory.
type Config struct {
	Uploader   Uploader
	Dispatcher CascadeDispatcher
	Events     EventPublisher
	Logger     *log.Logger
	BatchSize  int
	FolderRoot string
	Now        func() time.Time
}

type Engine struct {
	store      Store
	uploader   Uploader
	dispatcher CascadeDispatcher
	events     EventPublisher
	logger     *log.Logger
	batchSize  int
	folderRoot string
	now        func() time.Time

	purges sync.WaitGroup
}

// TransactionInput is a create (empty ID) or update request.
type TransactionInput struct {
	ID       string
	OwnerID  string
	WalletID string
	Type     core.TransactionType
	Amount   core.Money
	Category string
	// Description is left untouched on update when nil.
	Description *string
	// Date defaults to now on create and is left untouched on update when zero.
	Date  time.Time
	Image core.Image
}

func New(store Store, cfg Config) *Engine {
	e := &Engine{
		store:      store,
		uploader:   cfg.Uploader,
		dispatcher: cfg.Dispatcher,
		events:     cfg.Events,
		logger:     cfg.Logger,
		batchSize:  cfg.BatchSize,
		folderRoot: strings.Trim(cfg.FolderRoot, "/"),
		now:        cfg.Now,
	}
	if e.uploader == nil {
		e.uploader = PassthroughUploader{}
	}
	if e.dispatcher == nil {
		e.dispatcher = InlineDispatcher{Engine: e}
	}
	if e.logger == nil {
		e.logger = log.Discard()
	}
	e.logger = e.logger.WithComponent(log.ComponentLedger)
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.folderRoot == "" {
		e.folderRoot = DefaultFolderRoot
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Wait blocks until background wallet purges started by the engine finish.
func (e *Engine) Wait() {
	e.purges.Wait()
}

func (in TransactionInput) validate() error {
	const op = "validate transaction"
	if in.Amount.Validate() != nil {
		return core.Validation(op, msgInvalidTransaction)
	}
	if strings.TrimSpace(in.WalletID) == "" {
		return core.Validation(op, msgInvalidTransaction)
	}
	if !in.Type.Valid() {
		return core.Validation(op, msgInvalidTransaction)
	}
	if in.Type == core.Expense {
		if strings.TrimSpace(in.Category) == "" {
			return core.Validation(op, "Please select a category for this expense")
		}
		if !core.IsExpenseCategory(in.Category) {
			return core.Validation(op, fmt.Sprintf("Unknown expense category %q", in.Category))
		}
	}
	return nil
}

// UpsertTransaction creates a transaction (no ID) or updates an existing one,
// adjusting the affected wallets so their balances and totals stay in step.
func (e *Engine) UpsertTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	if err := in.validate(); err != nil {
		return core.Transaction{}, err
	}
	in.Category = normalizeCategory(in.Type, in.Category)

	var (
		saved core.Transaction
		err   error
		ev    EventType
	)
	if in.ID == "" {
		saved, err = e.createTransaction(ctx, in)
		ev = EventTransactionCreated
	} else {
		saved, err = e.updateTransaction(ctx, in)
		ev = EventTransactionUpdated
	}
	if err != nil {
		e.logFailure(ctx, "Transaction upsert failed", err,
			log.NewFields().WithTransaction(in.ID, in.WalletID, in.Type.String(), in.Amount.Cents))
		return core.Transaction{}, err
	}

	e.logger.InfoContext(ctx, "Transaction saved", log.NewFields().
		WithOperation(string(ev)).
		WithTransaction(saved.ID, saved.WalletID, saved.Type.String(), saved.Amount.Cents).
		ToSlice()...)
	e.publish(ctx, Event{Type: ev, OwnerID: saved.OwnerID, WalletID: saved.WalletID, TransactionID: saved.ID, Transaction: &saved})
	return saved, nil
}

func (e *Engine) createTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	const op = "create transaction"
	var saved core.Transaction

	err := e.run(ctx, func(s Store) error {
		w, err := e.loadWallet(ctx, s, op, in.WalletID)
		if err != nil {
			return err
		}
		if in.OwnerID != "" && w.OwnerID != in.OwnerID {
			return core.NotFound(op, msgWalletNotFound)
		}
		if in.Type == core.Expense && w.Balance.Sub(in.Amount).IsNegative() {
			return core.InsufficientFunds(op, msgNotEnoughBalance)
		}
		updated, err := applyEffect(w, in.Type, in.Amount)
		if err != nil {
			return core.Validation(op, msgAmountOutOfRange)
		}

		image, err := e.resolveImage(ctx, op, in.Image, e.folder("transactions"))
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return core.Canceled(op, err)
		}

		wctx := context.WithoutCancel(ctx)
		if _, err := s.PutWallet(wctx, updated); err != nil {
			return core.Persistence(op, fmt.Errorf("put wallet %s: %w", w.ID, err))
		}

		date := in.Date
		if date.IsZero() {
			date = e.now()
		}
		tx := core.Transaction{
			OwnerID:  w.OwnerID,
			WalletID: w.ID,
			Type:     in.Type,
			Amount:   in.Amount,
			Category: in.Category,
			Date:     date,
			Image:    image,
		}
		if in.Description != nil {
			tx.Description = strings.TrimSpace(*in.Description)
		}
		saved, err = s.PutTransaction(wctx, tx)
		if err != nil {
			return core.Persistence(op, fmt.Errorf("wallet %s adjusted but transaction not written: %w", w.ID, err))
		}
		return nil
	})
	return saved, err
}

func (e *Engine) updateTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	const op = "update transaction"
	var saved core.Transaction

	err := e.run(ctx, func(s Store) error {
		old, err := e.loadTransaction(ctx, s, op, in.ID)
		if err != nil {
			return err
		}
		if in.OwnerID != "" && old.OwnerID != in.OwnerID {
			return core.NotFound(op, msgTxNotFound)
		}

		affectsWallets := old.Type != in.Type || old.Amount != in.Amount || old.WalletID != in.WalletID
		if affectsWallets {
			if err := e.revertAndReapply(ctx, s, old, in); err != nil {
				return err
			}
		}

		image, err := e.resolveImage(ctx, op, in.Image, e.folder("transactions"))
		if err != nil {
			return err
		}

		merged := old
		merged.WalletID = in.WalletID
		merged.Type = in.Type
		merged.Amount = in.Amount
		merged.Category = in.Category
		if in.Description != nil {
			merged.Description = strings.TrimSpace(*in.Description)
		}
		if !in.Date.IsZero() {
			merged.Date = in.Date
		}
		if image != "" {
			merged.Image = image
		}

		saved, err = s.PutTransaction(context.WithoutCancel(ctx), merged)
		if err != nil {
			if affectsWallets {
				err = fmt.Errorf("wallets adjusted but transaction %s not written: %w", old.ID, err)
			}
			return core.Persistence(op, err)
		}
		return nil
	})
	return saved, err
}

// revertAndReapply undoes old's effect on its wallet, then applies the new
// type/amount to the destination wallet. The revert is written before the
// destination is re-read, so a same-wallet edit is applied on top of the
// reverted balance.
func (e *Engine) revertAndReapply(ctx context.Context, s Store, old core.Transaction, in TransactionInput) error {
	const op = "update transaction"

	origin, err := e.loadWallet(ctx, s, op, old.WalletID)
	if err != nil {
		return err
	}
	reverted, err := revertEffect(origin, old.Type, old.Amount)
	if err != nil {
		return core.Validation(op, msgAmountOutOfRange)
	}

	sameWallet := old.WalletID == in.WalletID
	dest := reverted
	if !sameWallet {
		dest, err = e.loadWallet(ctx, s, op, in.WalletID)
		if err != nil {
			return err
		}
		if dest.OwnerID != old.OwnerID {
			return core.NotFound(op, msgWalletNotFound)
		}
	}

	if in.Type == core.Expense && dest.Balance.Sub(in.Amount).IsNegative() {
		return core.InsufficientFunds(op, msgNotEnoughBalance)
	}
	if _, err := applyEffect(dest, in.Type, in.Amount); err != nil {
		return core.Validation(op, msgAmountOutOfRange)
	}
	if err := ctx.Err(); err != nil {
		return core.Canceled(op, err)
	}

	wctx := context.WithoutCancel(ctx)
	if _, err := s.PutWallet(wctx, reverted); err != nil {
		return core.Persistence(op, fmt.Errorf("put reverted wallet %s: %w", origin.ID, err))
	}

	dest, err = s.GetWallet(wctx, in.WalletID)
	if err != nil {
		return core.Persistence(op, fmt.Errorf("wallet %s reverted but destination %s not re-read: %w", origin.ID, in.WalletID, err))
	}
	applied, err := applyEffect(dest, in.Type, in.Amount)
	if err != nil {
		return core.Persistence(op, fmt.Errorf("wallet %s reverted but destination %s out of range: %w", origin.ID, dest.ID, err))
	}
	if _, err := s.PutWallet(wctx, applied); err != nil {
		return core.Persistence(op, fmt.Errorf("wallet %s reverted but destination %s not written: %w", origin.ID, dest.ID, err))
	}
	return nil
}

// DeleteTransaction removes a transaction after reversing its effect on the
// wallet. An empty walletID means the wallet the transaction belongs to.
func (e *Engine) DeleteTransaction(ctx context.Context, transactionID, walletID string) error {
	const op = "delete transaction"
	if strings.TrimSpace(transactionID) == "" {
		return core.Validation(op, "Transaction id is required")
	}

	var deleted core.Transaction
	err := e.run(ctx, func(s Store) error {
		tx, err := e.loadTransaction(ctx, s, op, transactionID)
		if err != nil {
			return err
		}
		if walletID == "" {
			walletID = tx.WalletID
		}
		if walletID != tx.WalletID {
			return core.Validation(op, "Transaction does not belong to this wallet")
		}

		w, err := e.loadWallet(ctx, s, op, walletID)
		if err != nil {
			return err
		}
		reverted, err := revertEffect(w, tx.Type, tx.Amount)
		if err != nil {
			return core.Validation(op, msgAmountOutOfRange)
		}
		// Reversing an expense only goes negative when the wallet has drifted
		// from its transactions; refuse rather than compound the drift.
		if tx.Type == core.Expense && reverted.Balance.IsNegative() {
			return core.InsufficientFunds(op, msgCannotDelete)
		}
		if err := ctx.Err(); err != nil {
			return core.Canceled(op, err)
		}

		wctx := context.WithoutCancel(ctx)
		if _, err := s.PutWallet(wctx, reverted); err != nil {
			return core.Persistence(op, fmt.Errorf("put wallet %s: %w", w.ID, err))
		}
		if err := s.DeleteTransaction(wctx, tx.ID); err != nil {
			return core.Persistence(op, fmt.Errorf("wallet %s reverted but transaction %s not deleted: %w", w.ID, tx.ID, err))
		}
		deleted = tx
		return nil
	})
	if err != nil {
		e.logFailure(ctx, "Transaction delete failed", err,
			log.NewFields().WithTransaction(transactionID, walletID, "", 0))
		return err
	}

	e.logger.InfoContext(ctx, "Transaction deleted", log.NewFields().
		WithOperation(log.OpDelete).
		WithTransaction(deleted.ID, deleted.WalletID, deleted.Type.String(), deleted.Amount.Cents).
		ToSlice()...)
	e.publish(ctx, Event{Type: EventTransactionDeleted, OwnerID: deleted.OwnerID, WalletID: deleted.WalletID, TransactionID: deleted.ID, Transaction: &deleted})
	return nil
}

// run executes fn atomically when the store supports it. Once started the
// sequence is not cancelled by the caller; fn checks ctx before its first write.
func (e *Engine) run(ctx context.Context, fn func(Store) error) error {
	if t, ok := e.store.(Transactor); ok {
		return t.RunInTx(context.WithoutCancel(ctx), fn)
	}
	return fn(e.store)
}

func (e *Engine) loadWallet(ctx context.Context, s Store, op, id string) (core.Wallet, error) {
	w, err := s.GetWallet(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Wallet{}, core.NotFound(op, msgWalletNotFound)
	}
	if err != nil {
		return core.Wallet{}, core.Persistence(op, fmt.Errorf("get wallet %s: %w", id, err))
	}
	return w, nil
}

func (e *Engine) loadTransaction(ctx context.Context, s Store, op, id string) (core.Transaction, error) {
	tx, err := s.GetTransaction(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Transaction{}, core.NotFound(op, msgTxNotFound)
	}
	if err != nil {
		return core.Transaction{}, core.Persistence(op, fmt.Errorf("get transaction %s: %w", id, err))
	}
	return tx, nil
}

func (e *Engine) resolveImage(ctx context.Context, op string, img core.Image, folder string) (string, error) {
	if img.IsEmpty() {
		return "", nil
	}
	url, err := e.uploader.Upload(ctx, img, folder)
	if err != nil {
		return "", core.UploadFailed(op, err)
	}
	return url, nil
}

func (e *Engine) folder(kind string) string {
	return e.folderRoot + "/" + kind
}

func (e *Engine) publish(ctx context.Context, ev Event) {
	if e.events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	if err := e.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish ledger event",
			"event", string(ev.Type), log.FieldError, err)
	}
}

// logFailure logs business-rule rejections at warn and everything else at error.
func (e *Engine) logFailure(ctx context.Context, msg string, err error, fields log.LogFields) {
	fields = fields.WithError(err)
	fields[log.FieldErrorKind] = string(core.KindOf(err))
	switch core.KindOf(err) {
	case core.KindValidation, core.KindNotFound, core.KindInsufficientFunds, core.KindCanceled:
		e.logger.WarnContext(ctx, msg, fields.ToSlice()...)
	default:
		e.logger.ErrorContext(ctx, msg, fields.ToSlice()...)
	}
}

func normalizeCategory(t core.TransactionType, category string) string {
	if t == core.Income {
		return core.IncomeCategory
	}
	return strings.ToLower(strings.TrimSpace(category))
}
