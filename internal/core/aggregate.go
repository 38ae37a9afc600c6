package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Fallback display values for breakdown rows whose category has since been
// removed from the directory.
const (
	UnknownCategoryName  = "Unknown category"
	UnknownCategoryColor = "#6c757d"
	UnknownCategoryIcon  = "other"
)

type (
	// CategoryStat is one row of a category breakdown: the summed amount and
	// entry count for a category, decorated with display metadata.
	CategoryStat struct {
		CategoryID string
		Name       string
		Color      string
		Icon       string
		Amount     decimal.Decimal
		Count      int64
		// Percentage of this breakdown's own sum, rounded to one decimal, so
		// the percentages of a single breakdown always close to 100.
		Percentage decimal.Decimal
	}

	// Stats are the aggregates for an entire filtered entry set, computed
	// alongside (but independently of) the paginated page.
	Stats struct {
		TotalIncome   decimal.Decimal
		TotalExpense  decimal.Decimal
		IncomeCount   int64
		ExpenseCount  int64
		CategoryStats []CategoryStat
	}
)

// CategoryLookup resolves a category id to its directory record.
type CategoryLookup func(id string) (Category, bool)

// Aggregate computes income/expense totals and the per-category breakdown
// over the full filtered set. The caller must pass the unpaginated set: page
// boundaries must never influence the totals shown next to a page.
func Aggregate(entries []Entry, lookup CategoryLookup) Stats {
	stats := Stats{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}

	type group struct {
		amount decimal.Decimal
		count  int64
	}
	groups := make(map[string]*group)

	for _, e := range entries {
		switch e.Type {
		case Income:
			stats.TotalIncome = stats.TotalIncome.Add(e.Amount)
			stats.IncomeCount++
		case Expense:
			stats.TotalExpense = stats.TotalExpense.Add(e.Amount)
			stats.ExpenseCount++
		}
		g, ok := groups[e.CategoryID]
		if !ok {
			g = &group{amount: decimal.Zero}
			groups[e.CategoryID] = g
		}
		g.amount = g.amount.Add(e.Amount)
		g.count++
	}

	breakdownTotal := decimal.Zero
	for _, g := range groups {
		breakdownTotal = breakdownTotal.Add(g.amount)
	}

	for id, g := range groups {
		row := CategoryStat{
			CategoryID: id,
			Name:       UnknownCategoryName,
			Color:      UnknownCategoryColor,
			Icon:       UnknownCategoryIcon,
			Amount:     g.amount,
			Count:      g.count,
			Percentage: decimal.Zero,
		}
		if lookup != nil {
			if cat, ok := lookup(id); ok {
				row.Name = cat.Name
				row.Color = cat.Color
				row.Icon = cat.Icon
			}
		}
		if breakdownTotal.IsPositive() {
			row.Percentage = g.amount.Div(breakdownTotal).Mul(decimal.NewFromInt(100)).Round(1)
		}
		stats.CategoryStats = append(stats.CategoryStats, row)
	}

	sort.Slice(stats.CategoryStats, func(i, j int) bool {
		a, b := stats.CategoryStats[i], stats.CategoryStats[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.CategoryID < b.CategoryID
	})

	return stats
}
