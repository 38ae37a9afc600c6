package http

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"kassa/internal/ledger"
)

type (
	dailyPointResponse struct {
		Date      string          `json:"date"`
		Income    decimal.Decimal `json:"income"`
		Expense   decimal.Decimal `json:"expense"`
		NetIncome decimal.Decimal `json:"netIncome"`
		Count     int64           `json:"count"`
	}

	accountShareResponse struct {
		AccountID  string          `json:"accountId"`
		Name       string          `json:"name"`
		Color      string          `json:"color"`
		Icon       string          `json:"icon"`
		Amount     decimal.Decimal `json:"amount"`
		Percentage decimal.Decimal `json:"percentage"`
	}

	trendPointResponse struct {
		Month   string          `json:"month"`
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
	}

	summaryResponse struct {
		statsResponse
		IncomeCount       int64           `json:"incomeCount"`
		ExpenseCount      int64           `json:"expenseCount"`
		Net               decimal.Decimal `json:"net"`
		TotalBalance      decimal.Decimal `json:"totalBalance"`
		IncomePercentage  decimal.Decimal `json:"incomePercentage"`
		ExpensePercentage decimal.Decimal `json:"expensePercentage"`
	}
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	owner := ownerID(r)

	stats, err := s.ledger.Summary(r.Context(), owner, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	accounts, err := s.ledger.Accounts(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	totalBalance := decimal.Zero
	for _, a := range accounts {
		totalBalance = totalBalance.Add(a.Balance)
	}

	res := summaryResponse{
		statsResponse: toStatsResponse(*stats),
		IncomeCount:   stats.IncomeCount,
		ExpenseCount:  stats.ExpenseCount,
		Net:           stats.TotalIncome.Sub(stats.TotalExpense),
		TotalBalance:  totalBalance,
	}
	if flow := stats.TotalIncome.Add(stats.TotalExpense); flow.IsPositive() {
		hundred := decimal.NewFromInt(100)
		res.IncomePercentage = stats.TotalIncome.Mul(hundred).Div(flow).Round(1)
		res.ExpensePercentage = stats.TotalExpense.Mul(hundred).Div(flow).Round(1)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	points, err := s.ledger.DailySummary(r.Context(), ownerID(r), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]dailyPointResponse, len(points))
	for i, p := range points {
		out[i] = dailyPointResponse{
			Date:      p.Date,
			Income:    p.Income,
			Expense:   p.Expense,
			NetIncome: p.Net,
			Count:     p.Count,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExpenseBreakdown(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := s.ledger.ExpenseBreakdown(r.Context(), ownerID(r), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]categoryStatResponse, len(rows))
	for i, row := range rows {
		out[i] = categoryStatResponse{
			CategoryID:   row.CategoryID,
			CategoryName: row.Name,
			Amount:       row.Amount,
			Count:        row.Count,
			Color:        row.Color,
			Icon:         row.Icon,
			Percentage:   row.Percentage,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIncomeByAccount(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	shares, err := s.ledger.IncomeByAccount(r.Context(), ownerID(r), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]accountShareResponse, len(shares))
	for i, sh := range shares {
		out[i] = toAccountShareResponse(sh)
	}
	writeJSON(w, http.StatusOK, out)
}

func toAccountShareResponse(sh ledger.AccountShare) accountShareResponse {
	return accountShareResponse{
		AccountID:  sh.AccountID,
		Name:       sh.Name,
		Color:      sh.Color,
		Icon:       sh.Icon,
		Amount:     sh.Amount,
		Percentage: sh.Percentage,
	}
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))
	points, err := s.ledger.Trend(r.Context(), ownerID(r), months)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]trendPointResponse, len(points))
	for i, p := range points {
		out[i] = trendPointResponse{Month: p.Month, Income: p.Income, Expense: p.Expense}
	}
	writeJSON(w, http.StatusOK, out)
}
