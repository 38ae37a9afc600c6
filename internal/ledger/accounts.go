package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"kassa/internal/core"
	"kassa/internal/log"
	"kassa/internal/storage"
)

const (
	defaultAccountColor = "#3B82F6"
	defaultAccountIcon  = "wallet"
)

// AccountInput carries the caller-editable account fields. Balance is
// present only to reject it explicitly: derived state is never writable.
type AccountInput struct {
	Name     string
	Currency string
	Color    string
	Icon     string
	Balance  *decimal.Decimal
}

// CreateAccount creates an account for the owner with a zero derived state.
func (s *Service) CreateAccount(ctx context.Context, ownerID string, in AccountInput) (*core.Account, error) {
	if in.Balance != nil {
		return nil, core.ErrBalanceNotEditable
	}

	owner, err := s.repo.User(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", ownerID, err)
	}

	now := s.now()
	account := &core.Account{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Name:      in.Name,
		Currency:  in.Currency,
		Color:     in.Color,
		Icon:      in.Icon,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if account.Currency == "" {
		account.Currency = owner.Currency
	}
	if account.Color == "" {
		account.Color = defaultAccountColor
	}
	if account.Icon == "" {
		account.Icon = defaultAccountIcon
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("persist account: %w", err)
	}

	s.logger.InfoContext(ctx, "account created",
		log.FieldOperation, log.OpCreate,
		"account_id", account.ID,
		"name", account.Name)

	return account, nil
}

// UpdateAccount changes the caller-editable fields of the owner's account.
// Derived state survives the update untouched.
func (s *Service) UpdateAccount(ctx context.Context, ownerID, id string, in AccountInput) (*core.Account, error) {
	if in.Balance != nil {
		return nil, core.ErrBalanceNotEditable
	}

	account, err := s.Account(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		account.Name = in.Name
	}
	if in.Currency != "" {
		account.Currency = in.Currency
	}
	if in.Color != "" {
		account.Color = in.Color
	}
	if in.Icon != "" {
		account.Icon = in.Icon
	}
	account.UpdatedAt = s.now()

	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("persist account %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "account updated",
		log.FieldOperation, log.OpUpdate,
		"account_id", id)

	return account, nil
}

// DeleteAccount removes an account that no entry references anymore. The
// check and the delete run in one transaction so a concurrent entry insert
// cannot slip between them.
func (s *Service) DeleteAccount(ctx context.Context, ownerID, id string) error {
	err := s.repo.WithinTx(ctx, func(tx storage.Store) error {
		account, err := tx.Account(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return core.ErrAccountMissing
		}
		if err != nil {
			return fmt.Errorf("load account %s: %w", id, err)
		}
		if account.OwnerID != ownerID {
			return core.ErrAccountMissing
		}
		if account.TransactionCount > 0 {
			return core.ErrAccountHasEntries
		}
		if err := tx.DeleteAccount(ctx, id); err != nil {
			return fmt.Errorf("delete account %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "account deleted",
		log.FieldOperation, log.OpDelete,
		"account_id", id)

	return nil
}

// Account returns one account of the owner. A foreign or unknown id reads
// the same from the outside: not found.
func (s *Service) Account(ctx context.Context, ownerID, id string) (*core.Account, error) {
	account, err := s.repo.Account(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, core.ErrAccountMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", id, err)
	}
	if account.OwnerID != ownerID {
		return nil, core.ErrAccountMissing
	}
	return account, nil
}

// Accounts lists the owner's accounts in creation order.
func (s *Service) Accounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	accounts, err := s.repo.AccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}
