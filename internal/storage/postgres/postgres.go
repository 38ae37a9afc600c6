// Package postgres implements the storage ports on PostgreSQL via pgx.
// Amounts live in NUMERIC columns and cross the wire as decimal strings in
// both directions.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"kassa/internal/core"
	"kassa/internal/storage"
)

// querier is the slice of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same queries run inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	q querier
}

type Repository struct {
	Store
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{Store: Store{q: pool}, pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) WithinTx(ctx context.Context, fn func(storage.Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Store{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, currency, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Currency, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) User(ctx context.Context, id string) (*core.User, error) {
	return s.scanUser(s.q.QueryRow(ctx,
		`SELECT id, email, name, password_hash, currency, created_at
		 FROM users WHERE id = $1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	return s.scanUser(s.q.QueryRow(ctx,
		`SELECT id, email, name, password_hash, currency, created_at
		 FROM users WHERE email = $1`, email))
}

func (s *Store) scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Currency, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// Accounts

const accountColumns = `id, owner_id, name, currency, color, icon, balance::text, transaction_count, created_at, updated_at`

func (s *Store) CreateAccount(ctx context.Context, a *core.Account) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO accounts (id, owner_id, name, currency, color, icon, balance, transaction_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.OwnerID, a.Name, a.Currency, a.Color, a.Icon,
		a.Balance.String(), a.TransactionCount, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) Account(ctx context.Context, id string) (*core.Account, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	a, err := scanAccount(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func (s *Store) AccountsByOwner(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := s.q.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
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
	tag, err := s.q.Exec(ctx,
		`UPDATE accounts SET name = $1, currency = $2, color = $3, icon = $4, updated_at = $5
		 WHERE id = $6`,
		a.Name, a.Currency, a.Color, a.Icon, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(tag)
}

func (s *Store) SetAccountDerived(ctx context.Context, id string, balance decimal.Decimal, count int64) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE accounts SET balance = $1, transaction_count = $2 WHERE id = $3`,
		balance.String(), count, id)
	if err != nil {
		return fmt.Errorf("update account derived state: %w", err)
	}
	return requireRow(tag)
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(tag)
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
	_, err := s.q.Exec(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, string(c.Type), c.Color, c.Icon, c.CreatedAt)
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
	err := s.q.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Type, &c.Color, &c.Icon, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
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
		`SELECT `+categoryColumns+` FROM categories WHERE type = $1 ORDER BY created_at, id`,
		string(t))
}

func (s *Store) queryCategories(ctx context.Context, query string, args ...any) ([]core.Category, error) {
	rows, err := s.q.Query(ctx, query, args...)
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
	if err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// Entries

const entryColumns = `id, owner_id, account_id, category_id, amount::text, type, date, description, created_at, updated_at`

func (s *Store) CreateEntry(ctx context.Context, e *core.Entry) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO entries (id, owner_id, account_id, category_id, amount, type, date, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.OwnerID, e.AccountID, e.CategoryID, e.Amount.String(),
		string(e.Type), e.Date, e.Description, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) Entry(ctx context.Context, ownerID, id string) (*core.Entry, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1 AND owner_id = $2`, id, ownerID)

	e, err := scanEntry(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e *core.Entry) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE entries
		 SET account_id = $1, category_id = $2, amount = $3, type = $4, date = $5, description = $6, updated_at = $7
		 WHERE id = $8 AND owner_id = $9`,
		e.AccountID, e.CategoryID, e.Amount.String(), string(e.Type),
		e.Date, e.Description, e.UpdatedAt, e.ID, e.OwnerID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireRow(tag)
}

func (s *Store) DeleteEntry(ctx context.Context, ownerID, id string) error {
	tag, err := s.q.Exec(ctx,
		`DELETE FROM entries WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireRow(tag)
}

func (s *Store) EntriesMatching(ctx context.Context, c core.FilterCriteria) ([]core.Entry, error) {
	where := []string{"owner_id = $1"}
	args := []any{c.OwnerID}

	next := func() string { return fmt.Sprintf("$%d", len(args)+1) }

	if c.Type != "" {
		where = append(where, "type = "+next())
		args = append(args, string(c.Type))
	}
	if !c.From.IsZero() {
		where = append(where, "date >= "+next())
		args = append(args, c.From)
	}
	if !c.To.IsZero() {
		where = append(where, "date <= "+next())
		args = append(args, c.To)
	}
	if c.Search != "" {
		// strpos gives plain substring semantics; no LIKE wildcards to escape.
		where = append(where, "strpos(lower(description), lower("+next()+")) > 0")
		args = append(args, c.Search)
	}
	if len(c.CategoryIDs) > 0 {
		where = append(where, "category_id = ANY("+next()+")")
		args = append(args, c.CategoryIDs)
	}
	if len(c.AccountIDs) > 0 {
		where = append(where, "account_id = ANY("+next()+")")
		args = append(args, c.AccountIDs)
	}

	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY date DESC, created_at DESC, id DESC`

	return s.queryEntries(ctx, query, args...)
}

func (s *Store) EntriesByAccount(ctx context.Context, accountID string) ([]core.Entry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE account_id = $1
		 ORDER BY date DESC, created_at DESC, id DESC`, accountID)
}

func (s *Store) UnexportedEntries(ctx context.Context, limit int) ([]core.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
		 WHERE exported_at IS NULL OR exported_at < updated_at
		 ORDER BY created_at, id`
	if limit > 0 {
		return s.queryEntries(ctx, query+` LIMIT $1`, limit)
	}
	return s.queryEntries(ctx, query)
}

func (s *Store) MarkEntryExported(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE entries SET exported_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark entry exported: %w", err)
	}
	return requireRow(tag)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]core.Entry, error) {
	rows, err := s.q.Query(ctx, query, args...)
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

func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
