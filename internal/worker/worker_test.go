package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kassa/internal/core"
	"kassa/internal/events"
	"kassa/internal/export/sheets"
	"kassa/internal/log"
	"kassa/internal/storage/memory"
)

type fakeAppender struct {
	rows []sheets.Row
	err  error
}

func (a *fakeAppender) Append(_ context.Context, row sheets.Row) error {
	if a.err != nil {
		return a.err
	}
	a.rows = append(a.rows, row)
	return nil
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func seedEntry(t *testing.T, store *memory.Store, id string) core.Entry {
	t.Helper()
	ctx := context.Background()

	u := core.User{ID: "u1", Email: "u@example.com", Name: "U", CreatedAt: time.Now()}
	if err := store.CreateUser(ctx, &u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	a := core.Account{ID: "a1", OwnerID: u.ID, Name: "Cash", Currency: "RUB", CreatedAt: time.Now()}
	if err := store.CreateAccount(ctx, &a); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	c := core.Category{ID: "c1", Name: "Groceries", Type: core.Expense, CreatedAt: time.Now()}
	if err := store.CreateCategory(ctx, &c); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	e := core.Entry{
		ID: id, OwnerID: u.ID, AccountID: a.ID, CategoryID: c.ID,
		Amount: decimal.NewFromInt(42), Type: core.Expense,
		Date: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := store.CreateEntry(ctx, &e); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	return e
}

func TestHandleEventExportsAndMarks(t *testing.T) {
	store := memory.New()
	appender := &fakeAppender{}
	w := New(store, appender, nil, quietLogger(), 10, time.Minute)
	ctx := context.Background()

	e := seedEntry(t, store, "e1")

	ev := events.NewEntryEvent(events.OpCreated, e.ID, e.OwnerID)
	if err := w.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(appender.rows) != 1 {
		t.Fatalf("appended %d rows, want 1", len(appender.rows))
	}
	row := appender.rows[0]
	if row.Entry.ID != e.ID || row.Category != "Groceries" || row.Account != "Cash" {
		t.Fatalf("row = %+v", row)
	}

	// Export must be recorded: the sweep has nothing left to do.
	pending, err := store.UnexportedEntries(ctx, 10)
	if err != nil {
		t.Fatalf("UnexportedEntries: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after export = %d, want 0", len(pending))
	}
}

func TestHandleEventDeletionAppendsMarker(t *testing.T) {
	store := memory.New()
	appender := &fakeAppender{}
	w := New(store, appender, nil, quietLogger(), 10, time.Minute)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, events.NewEntryEvent(events.OpDeleted, "e1", "u1")); err != nil {
		t.Fatalf("deleted event: %v", err)
	}
	if len(appender.rows) != 1 {
		t.Fatalf("appended %d rows, want 1", len(appender.rows))
	}
	row := appender.rows[0]
	if !row.Deleted || row.Entry.ID != "e1" {
		t.Fatalf("marker row = %+v", row)
	}
}

func TestHandleEventSkipsGoneEntries(t *testing.T) {
	store := memory.New()
	appender := &fakeAppender{}
	w := New(store, appender, nil, quietLogger(), 10, time.Minute)
	ctx := context.Background()

	if err := w.HandleEvent(ctx, events.NewEntryEvent(events.OpCreated, "missing", "u1")); err != nil {
		t.Fatalf("gone entry event: %v", err)
	}
	if len(appender.rows) != 0 {
		t.Fatalf("appended %d rows, want 0", len(appender.rows))
	}
}

func TestExportPendingSweep(t *testing.T) {
	store := memory.New()
	appender := &fakeAppender{}
	w := New(store, appender, nil, quietLogger(), 10, time.Minute)
	ctx := context.Background()

	seedEntry(t, store, "e1")

	n, err := w.ExportPending(ctx)
	if err != nil {
		t.Fatalf("ExportPending: %v", err)
	}
	if n != 1 || len(appender.rows) != 1 {
		t.Fatalf("exported %d rows, appended %d, want 1/1", n, len(appender.rows))
	}

	// Second sweep finds nothing.
	n, err = w.ExportPending(ctx)
	if err != nil {
		t.Fatalf("second ExportPending: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sweep exported %d, want 0", n)
	}
}

func TestExportPendingStopsOnAppendFailure(t *testing.T) {
	store := memory.New()
	appender := &fakeAppender{err: errors.New("quota exceeded")}
	w := New(store, appender, nil, quietLogger(), 10, time.Minute)
	ctx := context.Background()

	seedEntry(t, store, "e1")

	if _, err := w.ExportPending(ctx); err == nil {
		t.Fatal("expected sweep error")
	}

	// The entry stays pending for the next sweep.
	pending, err := store.UnexportedEntries(ctx, 10)
	if err != nil {
		t.Fatalf("UnexportedEntries: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
}
