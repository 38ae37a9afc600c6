// Package memory implements the storage ports in process memory. It backs
// tests and the zero-dependency dev setup.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"kassa/internal/core"
	"kassa/internal/storage"
)

type Store struct {
	mu         sync.RWMutex
	users      map[string]core.User
	accounts   map[string]core.Account
	categories map[string]core.Category
	entries    map[string]core.Entry
	exported   map[string]time.Time
}

func New() *Store {
	return &Store{
		users:      make(map[string]core.User),
		accounts:   make(map[string]core.Account),
		categories: make(map[string]core.Category),
		entries:    make(map[string]core.Entry),
		exported:   make(map[string]time.Time),
	}
}

var _ storage.Repository = (*Store)(nil)

// WithinTx applies fn to a deep copy of the data and swaps the copy in only
// when fn succeeds. A failed unit leaves the store untouched, matching the
// contract the SQL backends get from real transactions.
func (s *Store) WithinTx(_ context.Context, fn func(storage.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The clone carries its own zero-value mutex, so fn can call the normal
	// Store methods on it while this store's write lock serializes units.
	tx := &Store{
		users:      cloneMap(s.users),
		accounts:   cloneMap(s.accounts),
		categories: cloneMap(s.categories),
		entries:    cloneMap(s.entries),
		exported:   cloneMap(s.exported),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.users = tx.users
	s.accounts = tx.accounts
	s.categories = tx.categories
	s.entries = tx.entries
	s.exported = tx.exported
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) lock() func()  { s.mu.Lock(); return s.mu.Unlock }
func (s *Store) rlock() func() { s.mu.RLock(); return s.mu.RUnlock }

func cloneMap[T any](m map[string]T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ---- Users ----

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	defer s.lock()()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return storage.ErrDuplicate
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) User(_ context.Context, id string) (*core.User, error) {
	defer s.rlock()()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*core.User, error) {
	defer s.rlock()()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ---- Accounts ----

func (s *Store) CreateAccount(_ context.Context, a *core.Account) error {
	defer s.lock()()
	s.accounts[a.ID] = *a
	return nil
}

func (s *Store) Account(_ context.Context, id string) (*core.Account, error) {
	defer s.rlock()()
	a, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

func (s *Store) AccountsByOwner(_ context.Context, ownerID string) ([]core.Account, error) {
	defer s.rlock()()
	var out []core.Account
	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sortAccounts(out)
	return out, nil
}

func (s *Store) UpdateAccount(_ context.Context, a *core.Account) error {
	defer s.lock()()
	stored, ok := s.accounts[a.ID]
	if !ok {
		return storage.ErrNotFound
	}
	// Derived fields stay whatever the projector last wrote.
	a.Balance = stored.Balance
	a.TransactionCount = stored.TransactionCount
	s.accounts[a.ID] = *a
	return nil
}

func (s *Store) SetAccountDerived(_ context.Context, id string, balance decimal.Decimal, count int64) error {
	defer s.lock()()
	a, ok := s.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.Balance = balance
	a.TransactionCount = count
	s.accounts[id] = a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

// ---- Categories ----

func (s *Store) CreateCategory(_ context.Context, c *core.Category) error {
	defer s.lock()()
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) Category(_ context.Context, id string) (*core.Category, error) {
	defer s.rlock()()
	c, ok := s.categories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

func (s *Store) Categories(_ context.Context) ([]core.Category, error) {
	defer s.rlock()()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sortCategories(out)
	return out, nil
}

func (s *Store) CategoriesByType(_ context.Context, t core.EntryType) ([]core.Category, error) {
	defer s.rlock()()
	var out []core.Category
	for _, c := range s.categories {
		if c.Type == t {
			out = append(out, c)
		}
	}
	sortCategories(out)
	return out, nil
}

func (s *Store) CountCategories(_ context.Context) (int64, error) {
	defer s.rlock()()
	return int64(len(s.categories)), nil
}

// ---- Entries ----

func (s *Store) CreateEntry(_ context.Context, e *core.Entry) error {
	defer s.lock()()
	s.entries[e.ID] = *e
	return nil
}

func (s *Store) Entry(_ context.Context, ownerID, id string) (*core.Entry, error) {
	defer s.rlock()()
	e, ok := s.entries[id]
	if !ok || e.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return &e, nil
}

func (s *Store) UpdateEntry(_ context.Context, e *core.Entry) error {
	defer s.lock()()
	stored, ok := s.entries[e.ID]
	if !ok || stored.OwnerID != e.OwnerID {
		return storage.ErrNotFound
	}
	s.entries[e.ID] = *e
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, ownerID, id string) error {
	defer s.lock()()
	e, ok := s.entries[id]
	if !ok || e.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(s.entries, id)
	delete(s.exported, id)
	return nil
}

func (s *Store) EntriesMatching(_ context.Context, c core.FilterCriteria) ([]core.Entry, error) {
	defer s.rlock()()
	var out []core.Entry
	for _, e := range s.entries {
		if c.Matches(e) {
			out = append(out, e)
		}
	}
	core.SortEntriesForListing(out)
	return out, nil
}

func sortAccounts(accounts []core.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if !accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		}
		return accounts[i].ID < accounts[j].ID
	})
}

func sortCategories(categories []core.Category) {
	sort.Slice(categories, func(i, j int) bool {
		if !categories[i].CreatedAt.Equal(categories[j].CreatedAt) {
			return categories[i].CreatedAt.Before(categories[j].CreatedAt)
		}
		return categories[i].ID < categories[j].ID
	})
}

func (s *Store) EntriesByAccount(_ context.Context, accountID string) ([]core.Entry, error) {
	defer s.rlock()()
	var out []core.Entry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	core.SortEntriesForListing(out)
	return out, nil
}

func (s *Store) UnexportedEntries(_ context.Context, limit int) ([]core.Entry, error) {
	defer s.rlock()()
	var out []core.Entry
	for id, e := range s.entries {
		at, ok := s.exported[id]
		if !ok || at.Before(e.UpdatedAt) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkEntryExported(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.entries[id]; !ok {
		return storage.ErrNotFound
	}
	s.exported[id] = time.Now()
	return nil
}
