package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/bxcodec/faker/v3"
	"github.com/shopspring/decimal"

	"kassa/internal/auth"
	"kassa/internal/core"
	"kassa/internal/ledger"
	"kassa/internal/log"
	"kassa/internal/storage"
)

const (
	demoEmail    = "demo@kassa.local"
	demoPassword = "demo12345"
	demoEntries  = 40
)

// Demo registers a demo user with a few accounts and three months of
// generated entries. It goes through the regular services so every entry is
// validated and every balance projected the normal way. Re-running against a
// store that already has the demo user is a no-op.
func Demo(ctx context.Context, repo storage.Repository, ledgerSvc *ledger.Service, authSvc *auth.Service, logger *log.Logger) error {
	logger = logger.WithComponent(log.ComponentSeed)

	if _, err := repo.UserByEmail(ctx, demoEmail); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check demo user: %w", err)
	}

	user, _, err := authSvc.Register(ctx, auth.RegisterInput{
		Email:    demoEmail,
		Name:     faker.Name(),
		Password: demoPassword,
	})
	if err != nil {
		return fmt.Errorf("register demo user: %w", err)
	}

	var accounts []*core.Account
	for _, def := range []struct{ name, icon string }{
		{"Наличные", "cash"},
		{"Карта", "credit-card"},
	} {
		a, err := ledgerSvc.CreateAccount(ctx, user.ID, ledger.AccountInput{Name: def.name, Icon: def.icon})
		if err != nil {
			return fmt.Errorf("create demo account %q: %w", def.name, err)
		}
		accounts = append(accounts, a)
	}

	categories, err := ledgerSvc.Categories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return fmt.Errorf("no categories to seed entries with")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()
	for i := 0; i < demoEntries; i++ {
		cat := categories[rng.Intn(len(categories))]
		amount := decimal.NewFromInt(int64(rng.Intn(9500) + 500)).Div(decimal.NewFromInt(10))
		if cat.Type == core.Income {
			amount = amount.Mul(decimal.NewFromInt(10))
		}
		_, err := ledgerSvc.CreateEntry(ctx, user.ID, ledger.EntryInput{
			AccountID:   accounts[rng.Intn(len(accounts))].ID,
			CategoryID:  cat.ID,
			Amount:      amount,
			Type:        cat.Type,
			Date:        now.AddDate(0, 0, -rng.Intn(90)),
			Description: faker.Sentence(),
		})
		if err != nil {
			return fmt.Errorf("create demo entry: %w", err)
		}
	}

	logger.InfoContext(ctx, "seeded demo data",
		log.FieldOperation, log.OpSeed,
		"user", demoEmail,
		"accounts", len(accounts),
		"entries", demoEntries)
	return nil
}
