// Package sqlite implements the storage ports on an embedded SQLite
// database. Amounts are stored as decimal strings so no float ever touches
// money on its way through the driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"kassa/internal/core"
	"kassa/internal/storage"
)

// dbtx is the slice of database/sql shared by *sql.DB and *sql.Tx, so the
// same queries run inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	q dbtx
}

type Repository struct {
	Store
	db *sql.DB
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// One writer at a time keeps SQLITE_BUSY out of the picture.
	db.SetMaxOpenConns(1)

	return &Repository{Store: Store{q: db}, db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) WithinTx(ctx context.Context, fn func(storage.Store) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Store{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Currency, u.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) User(ctx context.Context, id string) (*core.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, currency, created_at
		 FROM users WHERE id = ?`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, currency, created_at
		 FROM users WHERE email = ?`, email))
}

func (s *Store) scanUser(row *sql.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Currency, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// Accounts

const accountColumns = `id, owner_id, name, currency, color, icon, balance, transaction_count, created_at, updated_at`

func (s *Store) CreateAccount(ctx context.Context, a *core.Account) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.Currency, a.Color, a.Icon,
		a.Balance.String(), a.TransactionCount, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) Account(ctx context.Context, id string) (*core.Account, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)

	a, err := scanAccount(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func (s *Store) AccountsByOwner(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, a *core.Account) error {
	// Balance and transaction_count stay out of this statement; only
	// SetAccountDerived writes them.
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET name = ?, currency = ?, color = ?, icon = ?, updated_at = ?
		 WHERE id = ?`,
		a.Name, a.Currency, a.Color, a.Icon, a.UpdatedAt.UTC(), a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

func (s *Store) SetAccountDerived(ctx context.Context, id string, balance decimal.Decimal, count int64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, transaction_count = ? WHERE id = ?`,
		balance.String(), count, id)
	if err != nil {
		return fmt.Errorf("update account derived state: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

func scanAccount(scan func(...any) error) (*core.Account, error) {
	var (
		a       core.Account
		balance string
	)
	err := scan(&a.ID, &a.OwnerID, &a.Name, &a.Currency, &a.Color, &a.Icon,
		&balance, &a.TransactionCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	return &a, nil
}

// Categories

const categoryColumns = `id, name, type, color, icon, created_at`

func (s *Store) CreateCategory(ctx context.Context, c *core.Category) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Type), c.Color, c.Icon, c.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *Store) Category(ctx context.Context, id string) (*core.Category, error) {
	var c core.Category
	err := s.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Type, &c.Color, &c.Icon, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return &c, nil
}

func (s *Store) Categories(ctx context.Context) ([]core.Category, error) {
	return s.queryCategories(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY created_at, id`)
}

func (s *Store) CategoriesByType(ctx context.Context, t core.EntryType) ([]core.Category, error) {
	return s.queryCategories(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE type = ? ORDER BY created_at, id`,
		string(t))
}

func (s *Store) queryCategories(ctx context.Context, query string, args ...any) ([]core.Category, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// Entries

const entryColumns = `id, owner_id, account_id, category_id, amount, type, date, description, created_at, updated_at`

func (s *Store) CreateEntry(ctx context.Context, e *core.Entry) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.AccountID, e.CategoryID, e.Amount.String(),
		string(e.Type), e.Date.UTC(), e.Description, e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) Entry(ctx context.Context, ownerID, id string) (*core.Entry, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)

	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e *core.Entry) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE entries
		 SET account_id = ?, category_id = ?, amount = ?, type = ?, date = ?, description = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		e.AccountID, e.CategoryID, e.Amount.String(), string(e.Type),
		e.Date.UTC(), e.Description, e.UpdatedAt.UTC(), e.ID, e.OwnerID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteEntry(ctx context.Context, ownerID, id string) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(res)
}

func (s *Store) EntriesMatching(ctx context.Context, c core.FilterCriteria) ([]core.Entry, error) {
	where := []string{"owner_id = ?"}
	args := []any{c.OwnerID}

	if c.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(c.Type))
	}
	if !c.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, c.From.UTC())
	}
	if !c.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, c.To.UTC())
	}
	if c.Search != "" {
		// instr gives plain substring semantics; no LIKE wildcards to escape.
		where = append(where, "instr(lower(description), lower(?)) > 0")
		args = append(args, c.Search)
	}
	if len(c.CategoryIDs) > 0 {
		where = append(where, "category_id IN ("+placeholders(len(c.CategoryIDs))+")")
		for _, id := range c.CategoryIDs {
			args = append(args, id)
		}
	}
	if len(c.AccountIDs) > 0 {
		where = append(where, "account_id IN ("+placeholders(len(c.AccountIDs))+")")
		for _, id := range c.AccountIDs {
			args = append(args, id)
		}
	}

	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY date DESC, created_at DESC, id DESC`

	return s.queryEntries(ctx, query, args...)
}

func (s *Store) EntriesByAccount(ctx context.Context, accountID string) ([]core.Entry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE account_id = ?
		 ORDER BY date DESC, created_at DESC, id DESC`, accountID)
}

func (s *Store) UnexportedEntries(ctx context.Context, limit int) ([]core.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
		 WHERE exported_at IS NULL OR exported_at < updated_at
		 ORDER BY created_at, id`
	if limit > 0 {
		return s.queryEntries(ctx, query+` LIMIT ?`, limit)
	}
	return s.queryEntries(ctx, query)
}

func (s *Store) MarkEntryExported(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE entries SET exported_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark entry exported: %w", err)
	}
	return requireRow(res)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]core.Entry, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanEntry(scan func(...any) error) (*core.Entry, error) {
	var (
		e      core.Entry
		amount string
	)
	err := scan(&e.ID, &e.OwnerID, &e.AccountID, &e.CategoryID, &amount,
		&e.Type, &e.Date, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &e, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
