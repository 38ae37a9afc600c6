// Package seed fills an empty database: the shared category directory on
// every start, and optional demo data for local development.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kassa/internal/core"
	"kassa/internal/log"
	"kassa/internal/storage"
)

type defaultCategory struct {
	name  string
	typ   core.EntryType
	color string
	icon  string
}

var defaultCategories = []defaultCategory{
	{"Зарплата", core.Income, "#10B981", "salary"},
	{"Фриланс", core.Income, "#a6c9f6", "salary"},
	{"Инвестиции", core.Income, "#009dd6", "investment"},
	{"Подарки", core.Income, "#9370db", "gift"},
	{"Другой доход", core.Income, "#fa873f", "other"},

	{"Продукты", core.Expense, "#EF4444", "food"},
	{"Транспорт", core.Expense, "#F59E0B", "car"},
	{"Жилье", core.Expense, "#8B5CF6", "house"},
	{"Развлечения", core.Expense, "#EC4899", "entertainment"},
	{"Здоровье", core.Expense, "#06B6D4", "health"},
	{"Образование", core.Expense, "#84CC16", "education"},
	{"Одежда", core.Expense, "#F97316", "shopping"},
	{"Прочие расходы", core.Expense, "#6B7280", "other"},
}

// Categories creates the default category directory if the store has none
// yet, and reports how many were created.
func Categories(ctx context.Context, repo storage.Repository, logger *log.Logger) (int, error) {
	logger = logger.WithComponent(log.ComponentSeed)

	count, err := repo.CountCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	err = repo.WithinTx(ctx, func(tx storage.Store) error {
		now := time.Now()
		for i, dc := range defaultCategories {
			c := &core.Category{
				ID:    uuid.NewString(),
				Name:  dc.name,
				Type:  dc.typ,
				Color: dc.color,
				Icon:  dc.icon,
				// Stagger timestamps so the directory lists in this order.
				CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			}
			if err := tx.CreateCategory(ctx, c); err != nil {
				return fmt.Errorf("create category %q: %w", dc.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.InfoContext(ctx, "seeded default categories",
		log.FieldOperation, log.OpSeed,
		"count", len(defaultCategories))
	return len(defaultCategories), nil
}
