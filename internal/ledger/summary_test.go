package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kassa/internal/core"
)

func TestSummaryTotalsAndBreakdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	spend := f.validInput()
	spend.Amount = amount("100")
	spend.Date = date(2026, time.April, 2)
	f.mustCreate(t, spend)

	pay := f.validInput()
	pay.CategoryID = f.salary.ID
	pay.Type = core.Income
	pay.Amount = amount("300")
	pay.Date = date(2026, time.April, 20)
	f.mustCreate(t, pay)

	stats, err := f.svc.Summary(ctx, f.owner.ID, date(2026, time.April, 1), date(2026, time.April, 30))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}

	if stats.TotalIncome.String() != "300" || stats.TotalExpense.String() != "100" {
		t.Fatalf("totals = %s/%s, want 300/100", stats.TotalIncome, stats.TotalExpense)
	}
	if len(stats.CategoryStats) != 2 {
		t.Fatalf("breakdown rows = %d, want 2", len(stats.CategoryStats))
	}
	// Largest first; percentages of the breakdown's own sum.
	if stats.CategoryStats[0].CategoryID != f.salary.ID || stats.CategoryStats[0].Percentage.String() != "75" {
		t.Fatalf("row 0 = %+v", stats.CategoryStats[0])
	}
	if stats.CategoryStats[1].Percentage.String() != "25" {
		t.Fatalf("row 1 = %+v", stats.CategoryStats[1])
	}
}

func TestDailySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, day := range []int{3, 3, 7} {
		in := f.validInput()
		in.Amount = amount("10")
		in.Date = date(2026, time.May, day)
		f.mustCreate(t, in)
	}

	points, err := f.svc.DailySummary(ctx, f.owner.ID, date(2026, time.May, 1), date(2026, time.May, 31))
	if err != nil {
		t.Fatalf("DailySummary: %v", err)
	}

	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}
	if points[0].Date != "2026-05-03" || points[0].Expense.String() != "20" {
		t.Fatalf("point 0 = %+v", points[0])
	}
	if points[0].Net.String() != "-20" || points[0].Count != 2 {
		t.Fatalf("point 0 net/count = %s/%d, want -20/2", points[0].Net, points[0].Count)
	}
	if points[1].Date != "2026-05-07" || points[1].Expense.String() != "10" {
		t.Fatalf("point 1 = %+v", points[1])
	}
	if points[1].Net.String() != "-10" || points[1].Count != 1 {
		t.Fatalf("point 1 net/count = %s/%d, want -10/1", points[1].Net, points[1].Count)
	}
}

func TestExpenseBreakdownIgnoresIncome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	spend := f.validInput()
	spend.Amount = amount("40")
	spend.Date = date(2026, time.June, 1)
	f.mustCreate(t, spend)

	pay := f.validInput()
	pay.CategoryID = f.salary.ID
	pay.Type = core.Income
	pay.Amount = amount("1000")
	pay.Date = date(2026, time.June, 1)
	f.mustCreate(t, pay)

	rows, err := f.svc.ExpenseBreakdown(ctx, f.owner.ID, date(2026, time.June, 1), date(2026, time.June, 30))
	if err != nil {
		t.Fatalf("ExpenseBreakdown: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].CategoryID != f.groceries.ID || rows[0].Percentage.String() != "100" {
		t.Fatalf("row = %+v", rows[0])
	}
}

func TestIncomeByAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	savings := core.Account{ID: "savings", OwnerID: f.owner.ID, Name: "Savings", Currency: "RUB", CreatedAt: time.Now()}
	if err := f.store.CreateAccount(ctx, &savings); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	first := f.validInput()
	first.CategoryID = f.salary.ID
	first.Type = core.Income
	first.Amount = amount("750")
	first.Date = date(2026, time.July, 1)
	f.mustCreate(t, first)

	second := first
	second.AccountID = savings.ID
	second.Amount = amount("250")
	f.mustCreate(t, second)

	shares, err := f.svc.IncomeByAccount(ctx, f.owner.ID, date(2026, time.July, 1), date(2026, time.July, 31))
	if err != nil {
		t.Fatalf("IncomeByAccount: %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("shares = %d, want 2", len(shares))
	}
	if shares[0].AccountID != f.cash.ID || shares[0].Percentage.String() != "75" {
		t.Fatalf("share 0 = %+v", shares[0])
	}
	if shares[1].AccountID != "savings" || shares[1].Name != "Savings" || shares[1].Percentage.String() != "25" {
		t.Fatalf("share 1 = %+v", shares[1])
	}
}

func TestTrendFillsEmptyMonths(t *testing.T) {
	now := date(2026, time.August, 15)
	f := newFixture(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	in := f.validInput()
	in.Amount = amount("50")
	in.Date = date(2026, time.June, 10)
	f.mustCreate(t, in)

	points, err := f.svc.Trend(ctx, f.owner.ID, 3)
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}

	if len(points) != 3 {
		t.Fatalf("points = %d, want 3", len(points))
	}
	wantMonths := []string{"2026-06", "2026-07", "2026-08"}
	for i, p := range points {
		if p.Month != wantMonths[i] {
			t.Fatalf("month %d = %s, want %s", i, p.Month, wantMonths[i])
		}
	}
	if points[0].Expense.String() != "50" {
		t.Fatalf("june expense = %s, want 50", points[0].Expense)
	}
	if !points[1].Expense.IsZero() || !points[2].Expense.IsZero() {
		t.Fatalf("empty months not zero: %+v", points[1:])
	}
}

func TestSummaryUnknownCategoryFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// An entry whose category was later removed from the directory.
	orphan := core.Entry{
		ID: "orphan", OwnerID: f.owner.ID, AccountID: f.cash.ID, CategoryID: "gone",
		Amount: decimal.NewFromInt(10), Type: core.Expense,
		Date: date(2026, time.September, 1), CreatedAt: time.Now(),
	}
	if err := f.store.CreateEntry(ctx, &orphan); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	stats, err := f.svc.Summary(ctx, f.owner.ID, date(2026, time.September, 1), date(2026, time.September, 30))
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(stats.CategoryStats) != 1 {
		t.Fatalf("rows = %d, want 1", len(stats.CategoryStats))
	}
	row := stats.CategoryStats[0]
	if row.Name != core.UnknownCategoryName || row.Color != core.UnknownCategoryColor {
		t.Fatalf("fallback row = %+v", row)
	}
}
