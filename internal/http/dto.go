package http

import (
	"time"

	"github.com/shopspring/decimal"

	"kassa/internal/core"
	"kassa/internal/ledger"
)

type (
	userResponse struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Name      string    `json:"name"`
		Currency  string    `json:"currency"`
		CreatedAt time.Time `json:"createdAt"`
	}

	accountResponse struct {
		ID               string          `json:"id"`
		Name             string          `json:"name"`
		Currency         string          `json:"currency"`
		Color            string          `json:"color"`
		Icon             string          `json:"icon"`
		Balance          decimal.Decimal `json:"balance"`
		TransactionCount int64           `json:"transactionCount"`
		CreatedAt        time.Time       `json:"createdAt"`
		UpdatedAt        time.Time       `json:"updatedAt"`
	}

	categoryResponse struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Type  string `json:"type"`
		Color string `json:"color"`
		Icon  string `json:"icon"`
	}

	entryResponse struct {
		ID          string          `json:"id"`
		AccountID   string          `json:"accountId"`
		CategoryID  string          `json:"categoryId"`
		Amount      decimal.Decimal `json:"amount"`
		Type        string          `json:"type"`
		Date        time.Time       `json:"date"`
		Description string          `json:"description"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	paginationResponse struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
		Pages int `json:"pages"`
	}

	categoryStatResponse struct {
		CategoryID   string          `json:"categoryId"`
		CategoryName string          `json:"categoryName"`
		Amount       decimal.Decimal `json:"amount"`
		Count        int64           `json:"count"`
		Color        string          `json:"color"`
		Icon         string          `json:"icon"`
		Percentage   decimal.Decimal `json:"percentage"`
	}

	statsResponse struct {
		TotalIncome   decimal.Decimal        `json:"totalIncome"`
		TotalExpenses decimal.Decimal        `json:"totalExpenses"`
		CategoryStats []categoryStatResponse `json:"categoryStats"`
	}

	listResponse struct {
		Transactions []entryResponse    `json:"transactions"`
		Pagination   paginationResponse `json:"pagination"`
		Stats        statsResponse      `json:"stats"`
	}
)

func toUserResponse(u *core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Currency:  u.Currency,
		CreatedAt: u.CreatedAt,
	}
}

func toAccountResponse(a *core.Account) accountResponse {
	return accountResponse{
		ID:               a.ID,
		Name:             a.Name,
		Currency:         a.Currency,
		Color:            a.Color,
		Icon:             a.Icon,
		Balance:          a.Balance,
		TransactionCount: a.TransactionCount,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:    c.ID,
		Name:  c.Name,
		Type:  string(c.Type),
		Color: c.Color,
		Icon:  c.Icon,
	}
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		AccountID:   e.AccountID,
		CategoryID:  e.CategoryID,
		Amount:      e.Amount,
		Type:        string(e.Type),
		Date:        e.Date,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toEntryResponses(entries []core.Entry) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	return out
}

func toStatsResponse(stats core.Stats) statsResponse {
	rows := make([]categoryStatResponse, len(stats.CategoryStats))
	for i, row := range stats.CategoryStats {
		rows[i] = categoryStatResponse{
			CategoryID:   row.CategoryID,
			CategoryName: row.Name,
			Amount:       row.Amount,
			Count:        row.Count,
			Color:        row.Color,
			Icon:         row.Icon,
			Percentage:   row.Percentage,
		}
	}
	return statsResponse{
		TotalIncome:   stats.TotalIncome,
		TotalExpenses: stats.TotalExpense,
		CategoryStats: rows,
	}
}

func toListResponse(res *ledger.ListResult) listResponse {
	return listResponse{
		Transactions: toEntryResponses(res.Entries),
		Pagination: paginationResponse{
			Page:  res.Page.Page,
			Limit: res.Page.Limit,
			Total: res.Page.Total,
			Pages: res.Page.TotalPages,
		},
		Stats: toStatsResponse(res.Stats),
	}
}
