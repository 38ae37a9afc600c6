package ledger

import (
	"context"
	"errors"
	"fmt"

	"kassa/internal/core"
	"kassa/internal/storage"
)

// validateEntry runs the full check sequence for an entry about to be
// persisted. The order is fixed: field shape first, then the account
// reference (existence before ownership), then the category reference
// (existence before type agreement). The first failure wins, so a request
// with several problems always reports the same one.
func validateEntry(ctx context.Context, st storage.Store, e *core.Entry) error {
	if err := e.ValidateShape(); err != nil {
		return err
	}

	account, err := st.Account(ctx, e.AccountID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("load account %s: %w", e.AccountID, err)
	}
	if account.OwnerID != e.OwnerID {
		return core.ErrAccountNotOwned
	}

	category, err := st.Category(ctx, e.CategoryID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("load category %s: %w", e.CategoryID, err)
	}
	if category.Type != e.Type {
		return core.ErrCategoryTypeMismatch
	}

	return nil
}
