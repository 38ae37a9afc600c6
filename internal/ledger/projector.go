package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"kassa/internal/core"
	"kassa/internal/log"
	"kassa/internal/storage"
)

// recomputeAccount rebuilds the account's derived state from scratch: the
// balance is the sum of its income entries minus the sum of its expense
// entries, the count is the number of entries referencing it. A full
// recompute is idempotent, so a replayed or repeated unit converges on the
// same state as a single one.
func (s *Service) recomputeAccount(ctx context.Context, st storage.Store, accountID string) error {
	entries, err := st.EntriesByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load entries for account %s: %w", accountID, err)
	}

	balance := decimal.Zero
	for _, e := range entries {
		switch e.Type {
		case core.Income:
			balance = balance.Add(e.Amount)
		case core.Expense:
			balance = balance.Sub(e.Amount)
		}
	}

	if balance.IsNegative() {
		// Overdrafts are allowed; surface them for operators without
		// blocking the unit.
		s.logger.Warn("account balance went negative",
			log.FieldOperation, log.OpRecompute,
			"account_id", accountID,
			"balance", balance.String())
	}

	if err := st.SetAccountDerived(ctx, accountID, balance, int64(len(entries))); err != nil {
		return fmt.Errorf("store derived state for account %s: %w", accountID, err)
	}
	return nil
}
