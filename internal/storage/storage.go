// Package storage defines the persistence ports the ledger service works
// against, plus the shared errors every backend maps its driver errors onto.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"kassa/internal/core"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store is the flat persistence surface. Within a transaction the same
// interface is handed back to the caller bound to that transaction.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *core.User) error
	User(ctx context.Context, id string) (*core.User, error)
	UserByEmail(ctx context.Context, email string) (*core.User, error)

	// Accounts
	CreateAccount(ctx context.Context, a *core.Account) error
	Account(ctx context.Context, id string) (*core.Account, error)
	AccountsByOwner(ctx context.Context, ownerID string) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a *core.Account) error
	// SetAccountDerived writes the projector's output: the derived balance
	// and transaction count. Nothing else may touch these columns.
	SetAccountDerived(ctx context.Context, id string, balance decimal.Decimal, count int64) error
	DeleteAccount(ctx context.Context, id string) error

	// Categories (global, shared; the ledger only ever reads them)
	CreateCategory(ctx context.Context, c *core.Category) error
	Category(ctx context.Context, id string) (*core.Category, error)
	Categories(ctx context.Context) ([]core.Category, error)
	CategoriesByType(ctx context.Context, t core.EntryType) ([]core.Category, error)
	CountCategories(ctx context.Context) (int64, error)

	// Entries
	CreateEntry(ctx context.Context, e *core.Entry) error
	Entry(ctx context.Context, ownerID, id string) (*core.Entry, error)
	UpdateEntry(ctx context.Context, e *core.Entry) error
	DeleteEntry(ctx context.Context, ownerID, id string) error
	// EntriesMatching returns every entry satisfying the criteria, already in
	// listing order (date desc, createdAt desc, id desc). One call feeds both
	// the page slice and the aggregates so they always see the same snapshot.
	EntriesMatching(ctx context.Context, c core.FilterCriteria) ([]core.Entry, error)
	// EntriesByAccount returns every entry referencing the account, for the
	// balance projector's full recompute.
	EntriesByAccount(ctx context.Context, accountID string) ([]core.Entry, error)

	// Export tracking. An entry is pending when it has never been exported
	// or has been updated since its last export.
	UnexportedEntries(ctx context.Context, limit int) ([]core.Entry, error)
	MarkEntryExported(ctx context.Context, id string) error
}

// Repository is a Store that can additionally scope work to a transaction.
type Repository interface {
	Store

	// WithinTx runs fn against a Store bound to a single transaction. If fn
	// returns an error the transaction is rolled back and nothing is applied;
	// a mutation unit (persist + recompute) is therefore all-or-nothing.
	WithinTx(ctx context.Context, fn func(Store) error) error

	Close() error
}
