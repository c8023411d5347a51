// Package storage is the durable SQLite implementation of the ledger stores.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledgerly/internal/core"
	"ledgerly/internal/ledger"

	_ "modernc.org/sqlite"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db      DBTX
	now     func() time.Time
	version uint
}

var (
	_ ledger.Store      = (*SQLiteRepository)(nil)
	_ ledger.Transactor = (*SQLiteRepository)(nil)
)

// DSN builds the connection string used for dbPath. Transactions take the
// write lock up front so concurrent read-modify-write sequences serialise
// instead of failing with SQLITE_BUSY on upgrade.
func DSN(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + dbPath + "?" + q.Encode()
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := DSN(dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	version, err := migrateSchema(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now, version: version}, nil
}

// SchemaVersion is the migration version the database was brought to on open.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.version
}

func (r *SQLiteRepository) Close() error {
	if db, ok := r.db.(*sql.DB); ok {
		return db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	db, ok := r.db.(*sql.DB)
	if !ok {
		return nil
	}
	return db.PingContext(ctx)
}

// RunInTx runs fn against a repository bound to one database transaction.
func (r *SQLiteRepository) RunInTx(ctx context.Context, fn func(ledger.Store) error) error {
	db, ok := r.db.(*sql.DB)
	if !ok {
		return errors.New("repository is already in a transaction")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&SQLiteRepository{db: tx, now: r.now, version: r.version}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const walletColumns = `id, owner_id, name, image, balance_cents, total_income_cents, total_expenses_cents, created_at`

func (r *SQLiteRepository) GetWallet(ctx context.Context, id string) (core.Wallet, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ?`, id)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Wallet{}, core.ErrNotFound
	}
	if err != nil {
		return core.Wallet{}, fmt.Errorf("get wallet %s: %w", id, err)
	}
	return w, nil
}

func (r *SQLiteRepository) PutWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = r.now()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO wallets (`+walletColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE wallets.name END,
			image = CASE WHEN excluded.image <> '' THEN excluded.image ELSE wallets.image END,
			balance_cents = excluded.balance_cents,
			total_income_cents = excluded.total_income_cents,
			total_expenses_cents = excluded.total_expenses_cents
		RETURNING `+walletColumns,
		w.ID, w.OwnerID, w.Name, w.Image,
		w.Balance.Cents, w.TotalIncome.Cents, w.TotalExpenses.Cents,
		w.CreatedAt.UnixNano(),
	)
	saved, err := scanWallet(row)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("upsert wallet %s: %w", w.ID, err)
	}
	return saved, nil
}

func (r *SQLiteRepository) DeleteWallet(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete wallet %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListWallets(ctx context.Context, ownerID string) ([]core.Wallet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Wallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

const transactionColumns = `id, owner_id, wallet_id, type, amount_cents, category, description, date, image, created_at`

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) PutTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			wallet_id = excluded.wallet_id,
			type = excluded.type,
			amount_cents = excluded.amount_cents,
			category = excluded.category,
			description = excluded.description,
			date = excluded.date,
			image = CASE WHEN excluded.image <> '' THEN excluded.image ELSE transactions.image END
		RETURNING `+transactionColumns,
		t.ID, t.OwnerID, t.WalletID, string(t.Type), t.Amount.Cents,
		t.Category, t.Description, t.Date.UnixNano(), t.Image, t.CreatedAt.UnixNano(),
	)
	saved, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("upsert transaction %s: %w", t.ID, err)
	}
	return saved, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete %d transactions: %w", len(ids), err)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactionsByWallet(ctx context.Context, walletID string, limit int) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE wallet_id = ? ORDER BY date DESC, id`
	args := []any{walletID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.queryTransactions(ctx, query, args...)
}

func (r *SQLiteRepository) ListTransactionsByOwner(ctx context.Context, ownerID string, from, to time.Time) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE owner_id = ?`
	args := []any{ownerID}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from.UnixNano())
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, to.UnixNano())
	}
	query += ` ORDER BY date DESC, id`
	return r.queryTransactions(ctx, query, args...)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWallet(s scanner) (core.Wallet, error) {
	var (
		w       core.Wallet
		created int64
	)
	err := s.Scan(&w.ID, &w.OwnerID, &w.Name, &w.Image,
		&w.Balance.Cents, &w.TotalIncome.Cents, &w.TotalExpenses.Cents, &created)
	if err != nil {
		return core.Wallet{}, err
	}
	w.CreatedAt = time.Unix(0, created).UTC()
	return w, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t             core.Transaction
		txType        string
		date, created int64
	)
	err := s.Scan(&t.ID, &t.OwnerID, &t.WalletID, &txType, &t.Amount.Cents,
		&t.Category, &t.Description, &date, &t.Image, &created)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(txType)
	t.Date = time.Unix(0, date).UTC()
	t.CreatedAt = time.Unix(0, created).UTC()
	return t, nil
}
