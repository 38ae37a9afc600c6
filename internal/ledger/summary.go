package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kassa/internal/core"
)

type (
	// DailyPoint is one day of a daily income/expense series.
	DailyPoint struct {
		Date    string // 2006-01-02
		Income  decimal.Decimal
		Expense decimal.Decimal
		Net     decimal.Decimal
		Count   int64
	}

	// AccountShare is one account's slice of an income breakdown.
	AccountShare struct {
		AccountID  string
		Name       string
		Color      string
		Icon       string
		Amount     decimal.Decimal
		Percentage decimal.Decimal
	}

	// TrendPoint is one month of the income/expense trend.
	TrendPoint struct {
		Month   string // 2006-01
		Income  decimal.Decimal
		Expense decimal.Decimal
	}
)

// Summary aggregates the owner's entries in the inclusive date range:
// income/expense totals plus the category breakdown.
func (s *Service) Summary(ctx context.Context, ownerID string, from, to time.Time) (*core.Stats, error) {
	matched, err := s.repo.EntriesMatching(ctx, core.FilterCriteria{OwnerID: ownerID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("filter entries: %w", err)
	}
	lookup, err := s.categoryLookup(ctx)
	if err != nil {
		return nil, err
	}
	stats := core.Aggregate(matched, lookup)
	return &stats, nil
}

// DailySummary buckets the range's entries by calendar day, in ascending
// date order. Days without entries are omitted.
func (s *Service) DailySummary(ctx context.Context, ownerID string, from, to time.Time) ([]DailyPoint, error) {
	matched, err := s.repo.EntriesMatching(ctx, core.FilterCriteria{OwnerID: ownerID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("filter entries: %w", err)
	}

	byDay := make(map[string]*DailyPoint)
	for _, e := range matched {
		day := e.Date.Format("2006-01-02")
		p, ok := byDay[day]
		if !ok {
			p = &DailyPoint{Date: day, Income: decimal.Zero, Expense: decimal.Zero}
			byDay[day] = p
		}
		switch e.Type {
		case core.Income:
			p.Income = p.Income.Add(e.Amount)
		case core.Expense:
			p.Expense = p.Expense.Add(e.Amount)
		}
		p.Count++
	}

	points := make([]DailyPoint, 0, len(byDay))
	for _, p := range byDay {
		p.Net = p.Income.Sub(p.Expense)
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

// ExpenseBreakdown returns the per-category breakdown of the range's
// expenses, largest first.
func (s *Service) ExpenseBreakdown(ctx context.Context, ownerID string, from, to time.Time) ([]core.CategoryStat, error) {
	matched, err := s.repo.EntriesMatching(ctx, core.FilterCriteria{
		OwnerID: ownerID,
		Type:    core.Expense,
		From:    from,
		To:      to,
	})
	if err != nil {
		return nil, fmt.Errorf("filter entries: %w", err)
	}
	lookup, err := s.categoryLookup(ctx)
	if err != nil {
		return nil, err
	}
	return core.Aggregate(matched, lookup).CategoryStats, nil
}

// IncomeByAccount splits the range's income across the accounts it arrived
// on, largest first, with percentages of the total income.
func (s *Service) IncomeByAccount(ctx context.Context, ownerID string, from, to time.Time) ([]AccountShare, error) {
	matched, err := s.repo.EntriesMatching(ctx, core.FilterCriteria{
		OwnerID: ownerID,
		Type:    core.Income,
		From:    from,
		To:      to,
	})
	if err != nil {
		return nil, fmt.Errorf("filter entries: %w", err)
	}

	accounts, err := s.repo.AccountsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	byID := make(map[string]core.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	total := decimal.Zero
	sums := make(map[string]*AccountShare)
	for _, e := range matched {
		total = total.Add(e.Amount)
		share, ok := sums[e.AccountID]
		if !ok {
			share = &AccountShare{AccountID: e.AccountID, Amount: decimal.Zero, Percentage: decimal.Zero}
			if a, found := byID[e.AccountID]; found {
				share.Name = a.Name
				share.Color = a.Color
				share.Icon = a.Icon
			}
			sums[e.AccountID] = share
		}
		share.Amount = share.Amount.Add(e.Amount)
	}

	shares := make([]AccountShare, 0, len(sums))
	for _, share := range sums {
		if total.IsPositive() {
			share.Percentage = share.Amount.Div(total).Mul(decimal.NewFromInt(100)).Round(1)
		}
		shares = append(shares, *share)
	}
	sort.Slice(shares, func(i, j int) bool {
		a, b := shares[i], shares[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.AccountID < b.AccountID
	})
	return shares, nil
}

// Trend returns a month-by-month income/expense series for the last months
// calendar months, oldest first, including the current one. Empty months
// appear with zero totals so charts keep a continuous axis.
func (s *Service) Trend(ctx context.Context, ownerID string, months int) ([]TrendPoint, error) {
	if months < 1 {
		months = 6
	}

	now := s.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)

	matched, err := s.repo.EntriesMatching(ctx, core.FilterCriteria{OwnerID: ownerID, From: first})
	if err != nil {
		return nil, fmt.Errorf("filter entries: %w", err)
	}

	points := make([]TrendPoint, months)
	index := make(map[string]*TrendPoint, months)
	for i := range points {
		month := first.AddDate(0, i, 0).Format("2006-01")
		points[i] = TrendPoint{Month: month, Income: decimal.Zero, Expense: decimal.Zero}
		index[month] = &points[i]
	}

	for _, e := range matched {
		p, ok := index[e.Date.Format("2006-01")]
		if !ok {
			continue
		}
		switch e.Type {
		case core.Income:
			p.Income = p.Income.Add(e.Amount)
		case core.Expense:
			p.Expense = p.Expense.Add(e.Amount)
		}
	}
	return points, nil
}
