// Package worker runs the background export pipeline: it consumes entry
// mutation events and periodically sweeps for entries the event stream
// missed, appending both to the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"kassa/internal/core"
	"kassa/internal/events"
	"kassa/internal/export/sheets"
	"kassa/internal/log"
	"kassa/internal/storage"
)

// RowAppender is the export target.
type RowAppender interface {
	Append(ctx context.Context, row sheets.Row) error
}

// Consumer delivers entry mutation events.
type Consumer interface {
	ConsumeEntryEvents(ctx context.Context, handler func(*events.EntryEvent) error) error
}

type ExportWorker struct {
	repo      storage.Repository
	appender  RowAppender
	consumer  Consumer
	logger    *log.Logger
	batchSize int
	interval  time.Duration
}

func New(repo storage.Repository, appender RowAppender, consumer Consumer, logger *log.Logger, batchSize int, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		repo:      repo,
		appender:  appender,
		consumer:  consumer,
		logger:    logger.WithComponent(log.ComponentWorker),
		batchSize: batchSize,
		interval:  interval,
	}
}

// Run consumes events and sweeps for pending entries until ctx is done. The
// sweep catches entries whose event was lost, and entries written while the
// broker was unreachable.
func (w *ExportWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.consumer != nil {
		g.Go(func() error {
			return w.consumer.ConsumeEntryEvents(ctx, func(ev *events.EntryEvent) error {
				return w.HandleEvent(ctx, ev)
			})
		})
	}
	g.Go(func() error {
		return w.sweepLoop(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent exports the entry an event refers to. A deletion appends a
// reversal marker row, since the sheet is append-only. An entry already gone
// by the time a create or update event arrives is skipped; its own deletion
// event carries the marker.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *events.EntryEvent) error {
	if ev.Op == events.OpDeleted {
		return w.appender.Append(ctx, sheets.Row{
			Entry:   core.Entry{ID: ev.EntryID, Date: ev.Timestamp},
			Deleted: true,
		})
	}

	entry, err := w.repo.Entry(ctx, ev.OwnerID, ev.EntryID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.InfoContext(ctx, "entry gone before export, skipping",
			"entry_id", ev.EntryID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load entry %s: %w", ev.EntryID, err)
	}

	return w.export(ctx, *entry)
}

func (w *ExportWorker) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := w.ExportPending(ctx)
			if err != nil {
				w.logger.Error("pending export sweep failed", "error", err)
				continue
			}
			if n > 0 {
				w.logger.InfoContext(ctx, "pending export sweep finished",
					log.FieldOperation, log.OpExport,
					"exported", n)
			}
		}
	}
}

// ExportPending exports one batch of entries that were never exported or
// changed since their last export. A single failed row stops the batch so
// the next sweep retries from the same point.
func (w *ExportWorker) ExportPending(ctx context.Context) (int, error) {
	pending, err := w.repo.UnexportedEntries(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending entries: %w", err)
	}

	for i, entry := range pending {
		if err := w.export(ctx, entry); err != nil {
			return i, fmt.Errorf("export entry %s: %w", entry.ID, err)
		}
	}
	return len(pending), nil
}

func (w *ExportWorker) export(ctx context.Context, entry core.Entry) error {
	row := sheets.Row{
		Entry:    entry,
		Category: core.UnknownCategoryName,
	}
	if cat, err := w.repo.Category(ctx, entry.CategoryID); err == nil {
		row.Category = cat.Name
	}
	if acc, err := w.repo.Account(ctx, entry.AccountID); err == nil {
		row.Account = acc.Name
	}

	if err := w.appender.Append(ctx, row); err != nil {
		return err
	}
	if err := w.repo.MarkEntryExported(ctx, entry.ID); err != nil {
		return fmt.Errorf("mark entry %s exported: %w", entry.ID, err)
	}
	return nil
}
