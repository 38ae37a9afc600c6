package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kassa/internal/core"
	"kassa/internal/events"
	"kassa/internal/log"
	"kassa/internal/storage/memory"
)

type capturingPublisher struct {
	events []*events.EntryEvent
	err    error
}

func (p *capturingPublisher) PublishEntryEvent(_ context.Context, ev *events.EntryEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type fixture struct {
	svc       *Service
	store     *memory.Store
	pub       *capturingPublisher
	owner     core.User
	stranger  core.User
	cash      core.Account
	card      core.Account
	groceries core.Category // expense
	salary    core.Category // income
}

func quietLogger() *log.Logger {
	return log.New(log.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	store := memory.New()
	ctx := context.Background()

	f := &fixture{
		store:    store,
		pub:      &capturingPublisher{},
		owner:    core.User{ID: "owner", Email: "owner@example.com", Name: "Owner", Currency: "RUB", CreatedAt: time.Now()},
		stranger: core.User{ID: "stranger", Email: "stranger@example.com", Name: "Stranger", Currency: "RUB", CreatedAt: time.Now()},
	}
	for _, u := range []core.User{f.owner, f.stranger} {
		if err := store.CreateUser(ctx, &u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	f.cash = core.Account{ID: "cash", OwnerID: f.owner.ID, Name: "Cash", Currency: "RUB", CreatedAt: time.Now()}
	f.card = core.Account{ID: "card", OwnerID: f.stranger.ID, Name: "Card", Currency: "RUB", CreatedAt: time.Now()}
	for _, a := range []core.Account{f.cash, f.card} {
		if err := store.CreateAccount(ctx, &a); err != nil {
			t.Fatalf("CreateAccount: %v", err)
		}
	}

	f.groceries = core.Category{ID: "groceries", Name: "Groceries", Type: core.Expense, Color: "#ff0000", Icon: "food", CreatedAt: time.Now()}
	f.salary = core.Category{ID: "salary", Name: "Salary", Type: core.Income, Color: "#00ff00", Icon: "money", CreatedAt: time.Now()}
	for _, c := range []core.Category{f.groceries, f.salary} {
		if err := store.CreateCategory(ctx, &c); err != nil {
			t.Fatalf("CreateCategory: %v", err)
		}
	}

	n := 0
	defaults := []Option{
		WithPublisher(f.pub),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%03d", n) }),
	}
	f.svc = NewService(store, quietLogger(), append(defaults, opts...)...)
	return f
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *fixture) validInput() EntryInput {
	return EntryInput{
		AccountID:   f.cash.ID,
		CategoryID:  f.groceries.ID,
		Amount:      amount("120.50"),
		Type:        core.Expense,
		Date:        date(2026, time.March, 10),
		Description: "Weekly groceries",
	}
}

func (f *fixture) mustCreate(t *testing.T, in EntryInput) *core.Entry {
	t.Helper()
	e, err := f.svc.CreateEntry(context.Background(), f.owner.ID, in)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	return e
}

func (f *fixture) accountState(t *testing.T, id string) (decimal.Decimal, int64) {
	t.Helper()
	a, err := f.store.Account(context.Background(), id)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	return a.Balance, a.TransactionCount
}

func TestCreateEntryRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.validInput()
	created := f.mustCreate(t, in)

	got, err := f.svc.Entry(ctx, f.owner.ID, created.ID)
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if !got.Amount.Equal(in.Amount) || got.Type != in.Type ||
		got.AccountID != in.AccountID || got.CategoryID != in.CategoryID ||
		!got.Date.Equal(in.Date) || got.Description != in.Description {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	balance, count := f.accountState(t, f.cash.ID)
	if balance.String() != "-120.5" || count != 1 {
		t.Fatalf("derived state = %s/%d, want -120.5/1", balance, count)
	}
}

func TestCreateEntryValidationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*EntryInput)
		wantErr *core.Error
	}{
		{
			name:    "non-positive amount",
			mutate:  func(in *EntryInput) { in.Amount = decimal.Zero },
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			mutate:  func(in *EntryInput) { in.Amount = amount("-5") },
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "unknown type",
			mutate:  func(in *EntryInput) { in.Type = "transfer" },
			wantErr: core.ErrInvalidType,
		},
		{
			name: "amount reported before type",
			mutate: func(in *EntryInput) {
				in.Amount = decimal.Zero
				in.Type = "transfer"
			},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "unknown account",
			mutate:  func(in *EntryInput) { in.AccountID = "nope" },
			wantErr: core.ErrAccountNotFound,
		},
		{
			name:    "foreign account",
			mutate:  func(in *EntryInput) { in.AccountID = f.card.ID },
			wantErr: core.ErrAccountNotOwned,
		},
		{
			name:    "unknown category",
			mutate:  func(in *EntryInput) { in.CategoryID = "nope" },
			wantErr: core.ErrCategoryNotFound,
		},
		{
			name:    "category type mismatch",
			mutate:  func(in *EntryInput) { in.CategoryID = f.salary.ID },
			wantErr: core.ErrCategoryTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.validInput()
			tt.mutate(&in)

			_, err := f.svc.CreateEntry(ctx, f.owner.ID, in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateEntry err = %v, want %v", err, tt.wantErr)
			}

			// Nothing may have been persisted by the failed unit.
			balance, count := f.accountState(t, f.cash.ID)
			if !balance.IsZero() || count != 0 {
				t.Fatalf("failed create changed derived state: %s/%d", balance, count)
			}
		})
	}

	if len(f.pub.events) != 0 {
		t.Fatalf("failed creates published %d events", len(f.pub.events))
	}
}

func TestUpdateEntryMovesBetweenAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Second account for the same owner.
	savings := core.Account{ID: "savings", OwnerID: f.owner.ID, Name: "Savings", Currency: "RUB", CreatedAt: time.Now()}
	if err := f.store.CreateAccount(ctx, &savings); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	created := f.mustCreate(t, f.validInput())

	in := f.validInput()
	in.AccountID = savings.ID
	in.Amount = amount("80")
	if _, err := f.svc.UpdateEntry(ctx, f.owner.ID, created.ID, in); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}

	if balance, count := f.accountState(t, f.cash.ID); !balance.IsZero() || count != 0 {
		t.Fatalf("source account not recomputed: %s/%d", balance, count)
	}
	if balance, count := f.accountState(t, savings.ID); balance.String() != "-80" || count != 1 {
		t.Fatalf("target account = %s/%d, want -80/1", balance, count)
	}
}

func TestUpdateEntryRevalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.mustCreate(t, f.validInput())

	in := f.validInput()
	in.CategoryID = f.salary.ID // income category on an expense entry
	if _, err := f.svc.UpdateEntry(ctx, f.owner.ID, created.ID, in); !errors.Is(err, core.ErrCategoryTypeMismatch) {
		t.Fatalf("UpdateEntry err = %v, want ErrCategoryTypeMismatch", err)
	}

	// The failed update must not have altered the stored entry.
	got, err := f.svc.Entry(ctx, f.owner.ID, created.ID)
	if err != nil {
		t.Fatalf("Entry: %v", err)
	}
	if got.CategoryID != f.groceries.ID {
		t.Fatalf("entry category = %s, want %s", got.CategoryID, f.groceries.ID)
	}
}

func TestDeleteEntryRecomputes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.mustCreate(t, f.validInput())
	second := f.validInput()
	second.Amount = amount("30")
	f.mustCreate(t, second)

	if err := f.svc.DeleteEntry(ctx, f.owner.ID, first.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	balance, count := f.accountState(t, f.cash.ID)
	if balance.String() != "-30" || count != 1 {
		t.Fatalf("derived state = %s/%d, want -30/1", balance, count)
	}

	if _, err := f.svc.Entry(ctx, f.owner.ID, first.ID); !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("deleted entry still readable: err = %v", err)
	}
}

func TestEntryOwnershipScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.mustCreate(t, f.validInput())

	if _, err := f.svc.Entry(ctx, f.stranger.ID, created.ID); !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("stranger read entry: err = %v", err)
	}
	if err := f.svc.DeleteEntry(ctx, f.stranger.ID, created.ID); !errors.Is(err, core.ErrEntryNotFound) {
		t.Fatalf("stranger deleted entry: err = %v", err)
	}
}

func TestDeleteAccountBlockedWhileReferenced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.mustCreate(t, f.validInput())

	if err := f.svc.DeleteAccount(ctx, f.owner.ID, f.cash.ID); !errors.Is(err, core.ErrAccountHasEntries) {
		t.Fatalf("DeleteAccount err = %v, want ErrAccountHasEntries", err)
	}

	if err := f.svc.DeleteEntry(ctx, f.owner.ID, created.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := f.svc.DeleteAccount(ctx, f.owner.ID, f.cash.ID); err != nil {
		t.Fatalf("DeleteAccount after draining: %v", err)
	}
}

func TestCreateAccountRejectsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := amount("1000")
	_, err := f.svc.CreateAccount(ctx, f.owner.ID, AccountInput{Name: "New", Balance: &b})
	if !errors.Is(err, core.ErrBalanceNotEditable) {
		t.Fatalf("CreateAccount err = %v, want ErrBalanceNotEditable", err)
	}

	_, err = f.svc.UpdateAccount(ctx, f.owner.ID, f.cash.ID, AccountInput{Balance: &b})
	if !errors.Is(err, core.ErrBalanceNotEditable) {
		t.Fatalf("UpdateAccount err = %v, want ErrBalanceNotEditable", err)
	}
}

func TestCreateAccountDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.CreateAccount(ctx, f.owner.ID, AccountInput{Name: "Wallet"})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if a.Currency != f.owner.Currency {
		t.Fatalf("currency = %q, want owner default %q", a.Currency, f.owner.Currency)
	}
	if a.Color == "" || a.Icon == "" {
		t.Fatalf("defaults not applied: color=%q icon=%q", a.Color, a.Icon)
	}
	if !a.Balance.IsZero() || a.TransactionCount != 0 {
		t.Fatalf("new account derived state = %s/%d, want 0/0", a.Balance, a.TransactionCount)
	}
}

func TestUpdateAccountKeepsDerivedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreate(t, f.validInput())

	updated, err := f.svc.UpdateAccount(ctx, f.owner.ID, f.cash.ID, AccountInput{Name: "Renamed"})
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("name = %q", updated.Name)
	}

	balance, count := f.accountState(t, f.cash.ID)
	if balance.String() != "-120.5" || count != 1 {
		t.Fatalf("derived state changed by rename: %s/%d", balance, count)
	}
}

func TestListEntriesPageAndStatsShareSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		in := f.validInput()
		in.Amount = decimal.NewFromInt(int64(i * 10))
		in.Date = date(2026, time.March, i)
		f.mustCreate(t, in)
	}

	res, err := f.svc.ListEntries(ctx, f.owner.ID, core.FilterCriteria{}, 1, 2)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}

	if len(res.Entries) != 2 {
		t.Fatalf("page size = %d, want 2", len(res.Entries))
	}
	if res.Page.Total != 5 || res.Page.TotalPages != 3 {
		t.Fatalf("page info = %+v", res.Page)
	}
	// Newest first.
	if !res.Entries[0].Date.After(res.Entries[1].Date) {
		t.Fatalf("entries not in date desc order: %v, %v", res.Entries[0].Date, res.Entries[1].Date)
	}
	// Stats cover the whole filtered set, not the page.
	if res.Stats.TotalExpense.String() != "150" {
		t.Fatalf("total expense = %s, want 150", res.Stats.TotalExpense)
	}
}

func TestListEntriesFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	groceries := f.validInput()
	groceries.Date = date(2026, time.March, 5)
	groceries.Description = "Groceries at the market"
	f.mustCreate(t, groceries)

	pay := f.validInput()
	pay.CategoryID = f.salary.ID
	pay.Type = core.Income
	pay.Amount = amount("500")
	pay.Date = date(2026, time.March, 25)
	pay.Description = "Monthly salary"
	f.mustCreate(t, pay)

	tests := []struct {
		name     string
		criteria core.FilterCriteria
		want     int
	}{
		{"no filter", core.FilterCriteria{}, 2},
		{"type income", core.FilterCriteria{Type: core.Income}, 1},
		{"from boundary inclusive", core.FilterCriteria{From: date(2026, time.March, 25)}, 1},
		{"to boundary inclusive", core.FilterCriteria{To: date(2026, time.March, 5)}, 1},
		{"range excludes both", core.FilterCriteria{From: date(2026, time.March, 6), To: date(2026, time.March, 24)}, 0},
		{"search case-insensitive", core.FilterCriteria{Search: "SALARY"}, 1},
		{"category set", core.FilterCriteria{CategoryIDs: []string{f.groceries.ID}}, 1},
		{"account set", core.FilterCriteria{AccountIDs: []string{f.cash.ID}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.ListEntries(ctx, f.owner.ID, tt.criteria, 1, 10)
			if err != nil {
				t.Fatalf("ListEntries: %v", err)
			}
			if res.Page.Total != tt.want {
				t.Fatalf("total = %d, want %d", res.Page.Total, tt.want)
			}
		})
	}
}

func TestPublisherFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")
	ctx := context.Background()

	created, err := f.svc.CreateEntry(ctx, f.owner.ID, f.validInput())
	if err != nil {
		t.Fatalf("CreateEntry with failing publisher: %v", err)
	}
	if _, err := f.svc.Entry(ctx, f.owner.ID, created.ID); err != nil {
		t.Fatalf("entry not persisted: %v", err)
	}
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.mustCreate(t, f.validInput())
	if _, err := f.svc.UpdateEntry(ctx, f.owner.ID, created.ID, f.validInput()); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if err := f.svc.DeleteEntry(ctx, f.owner.ID, created.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}

	if len(f.pub.events) != 3 {
		t.Fatalf("published %d events, want 3", len(f.pub.events))
	}
	wantOps := []events.Op{events.OpCreated, events.OpUpdated, events.OpDeleted}
	for i, ev := range f.pub.events {
		if ev.Op != wantOps[i] || ev.EntryID != created.ID {
			t.Fatalf("event %d = %+v, want op %s for %s", i, ev, wantOps[i], created.ID)
		}
	}
}

func TestCategoriesByType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	income, err := f.svc.CategoriesByType(ctx, core.Income)
	if err != nil {
		t.Fatalf("CategoriesByType: %v", err)
	}
	if len(income) != 1 || income[0].ID != f.salary.ID {
		t.Fatalf("income categories = %+v", income)
	}

	if _, err := f.svc.CategoriesByType(ctx, "transfer"); !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("invalid type err = %v, want ErrInvalidType", err)
	}
}

func TestCacheCleanerSweepsCategoryCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Categories(ctx); err != nil {
		t.Fatalf("Categories: %v", err)
	}

	cleaner := f.svc.CacheCleaner()
	if cleaner == nil {
		t.Fatal("no cache cleaner exposed")
	}
	// The freshly populated cache has nothing expired to sweep.
	if n := cleaner.CleanExpired(); n != 0 {
		t.Fatalf("swept %d entries from a fresh cache, want 0", n)
	}
}
