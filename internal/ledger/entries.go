package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kassa/internal/core"
	"kassa/internal/events"
	"kassa/internal/log"
	"kassa/internal/storage"
)

// EntryInput carries the caller-supplied fields of an entry. The owner and
// identifiers come from the authenticated request, never from the body.
type EntryInput struct {
	AccountID   string
	CategoryID  string
	Amount      decimal.Decimal
	Type        core.EntryType
	Date        time.Time
	Description string
}

// ListResult is one page of a filtered listing plus the aggregates computed
// over the full filtered set. Page and stats come from the same snapshot.
type ListResult struct {
	Entries []core.Entry
	Page    core.PageInfo
	Stats   core.Stats
}

// CreateEntry validates the entry, persists it, and recomputes the target
// account's derived state, all inside one transaction. The mutation event is
// published only after the commit.
func (s *Service) CreateEntry(ctx context.Context, ownerID string, in EntryInput) (*core.Entry, error) {
	now := s.now()
	entry := &core.Entry{
		ID:          s.newID(),
		OwnerID:     ownerID,
		AccountID:   in.AccountID,
		CategoryID:  in.CategoryID,
		Amount:      in.Amount,
		Type:        in.Type,
		Date:        in.Date,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.repo.WithinTx(ctx, func(tx storage.Store) error {
		if err := validateEntry(ctx, tx, entry); err != nil {
			return err
		}
		if err := tx.CreateEntry(ctx, entry); err != nil {
			return fmt.Errorf("persist entry: %w", err)
		}
		return s.recomputeAccount(ctx, tx, entry.AccountID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "entry created",
		log.FieldOperation, log.OpCreate,
		"entry_id", entry.ID,
		"account_id", entry.AccountID,
		"type", entry.Type,
		"amount", entry.Amount.String())

	s.publish(ctx, events.OpCreated, entry.ID, ownerID)
	return entry, nil
}

// UpdateEntry replaces the caller-editable fields of an existing entry. The
// replacement is validated from scratch, and both the previous and the new
// account are recomputed when the entry moved between accounts.
func (s *Service) UpdateEntry(ctx context.Context, ownerID, id string, in EntryInput) (*core.Entry, error) {
	var updated *core.Entry

	err := s.repo.WithinTx(ctx, func(tx storage.Store) error {
		existing, err := tx.Entry(ctx, ownerID, id)
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("load entry %s: %w", id, err)
		}

		next := *existing
		next.AccountID = in.AccountID
		next.CategoryID = in.CategoryID
		next.Amount = in.Amount
		next.Type = in.Type
		next.Date = in.Date
		next.Description = in.Description
		next.UpdatedAt = s.now()

		if err := validateEntry(ctx, tx, &next); err != nil {
			return err
		}
		if err := tx.UpdateEntry(ctx, &next); err != nil {
			return fmt.Errorf("persist entry %s: %w", id, err)
		}

		if err := s.recomputeAccount(ctx, tx, next.AccountID); err != nil {
			return err
		}
		if existing.AccountID != next.AccountID {
			if err := s.recomputeAccount(ctx, tx, existing.AccountID); err != nil {
				return err
			}
		}

		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "entry updated",
		log.FieldOperation, log.OpUpdate,
		"entry_id", id)

	s.publish(ctx, events.OpUpdated, id, ownerID)
	return updated, nil
}

// DeleteEntry removes the entry and recomputes the account it referenced.
func (s *Service) DeleteEntry(ctx context.Context, ownerID, id string) error {
	var accountID string

	err := s.repo.WithinTx(ctx, func(tx storage.Store) error {
		existing, err := tx.Entry(ctx, ownerID, id)
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrEntryNotFound
		}
		if err != nil {
			return fmt.Errorf("load entry %s: %w", id, err)
		}
		accountID = existing.AccountID

		if err := tx.DeleteEntry(ctx, ownerID, id); err != nil {
			return fmt.Errorf("delete entry %s: %w", id, err)
		}
		return s.recomputeAccount(ctx, tx, accountID)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "entry deleted",
		log.FieldOperation, log.OpDelete,
		"entry_id", id,
		"account_id", accountID)

	s.publish(ctx, events.OpDeleted, id, ownerID)
	return nil
}

// Entry returns one entry of the owner.
func (s *Service) Entry(ctx context.Context, ownerID, id string) (*core.Entry, error) {
	e, err := s.repo.Entry(ctx, ownerID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, core.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load entry %s: %w", id, err)
	}
	return e, nil
}

// ListEntries runs the shared filter once and derives both the requested
// page and the aggregates from that single result set.
func (s *Service) ListEntries(ctx context.Context, ownerID string, criteria core.FilterCriteria, page, limit int) (*ListResult, error) {
	matched, err := s.repo.EntriesMatching(ctx, criteria.WithOwner(ownerID))
	if err != nil {
		return nil, fmt.Errorf("filter entries: %w", err)
	}

	pageEntries, info := core.Paginate(matched, page, limit)

	lookup, err := s.categoryLookup(ctx)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Entries: pageEntries,
		Page:    info,
		Stats:   core.Aggregate(matched, lookup),
	}, nil
}

// RecentEntries returns the owner's newest entries, at most limit of them.
func (s *Service) RecentEntries(ctx context.Context, ownerID string, limit int) ([]core.Entry, error) {
	if limit < 1 {
		limit = 5
	}
	matched, err := s.repo.EntriesMatching(ctx, core.FilterCriteria{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("filter entries: %w", err)
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// EntriesByAccount lists one account's entries, newest first. The account
// must exist and belong to the owner.
func (s *Service) EntriesByAccount(ctx context.Context, ownerID, accountID string, page, limit int) (*ListResult, error) {
	if _, err := s.Account(ctx, ownerID, accountID); err != nil {
		return nil, err
	}
	return s.ListEntries(ctx, ownerID, core.FilterCriteria{AccountIDs: []string{accountID}}, page, limit)
}

// EntriesByCategory lists the owner's entries in one category, newest first.
func (s *Service) EntriesByCategory(ctx context.Context, ownerID, categoryID string, page, limit int) (*ListResult, error) {
	if _, err := s.Category(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.ListEntries(ctx, ownerID, core.FilterCriteria{CategoryIDs: []string{categoryID}}, page, limit)
}
