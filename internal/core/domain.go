package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

const (
	MaxAccountNameLen  = 30
	MaxCategoryNameLen = 30
	MaxUserNameLen     = 50
	MaxDescriptionLen  = 500
)

type (
	EntryType string

	// User owns accounts and entries. The ledger core never mutates users;
	// they are managed by the auth surface.
	User struct {
		ID           string
		Email        string
		Name         string
		PasswordHash string
		Currency     string
		CreatedAt    time.Time
	}

	// Account is a money container. Balance and TransactionCount are derived
	// state: they are written only by the balance projector, never directly.
	Account struct {
		ID               string
		OwnerID          string
		Name             string
		Currency         string
		Color            string
		Icon             string
		Balance          decimal.Decimal
		TransactionCount int64
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}

	// Category is a global shared classification tag, read-only to the ledger.
	Category struct {
		ID        string
		Name      string
		Type      EntryType
		Color     string
		Icon      string
		CreatedAt time.Time
	}

	// Entry is the atomic recorded money movement: one amount, one account,
	// one category, one effective date.
	Entry struct {
		ID          string
		OwnerID     string
		AccountID   string
		CategoryID  string
		Amount      decimal.Decimal
		Type        EntryType
		Date        time.Time
		Description string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

// Currencies supported for users and accounts.
var Currencies = []string{"RUB", "USD", "EUR", "KZT"}

// AccountIcons are the icon identifiers the clients know how to render.
var AccountIcons = []string{
	"wallet", "credit-card", "bank", "cash", "piggy-bank",
	"mobile", "savings", "invest", "loan",
}

var colorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

func ValidCurrency(c string) bool {
	for _, v := range Currencies {
		if v == c {
			return true
		}
	}
	return false
}

func validAccountIcon(icon string) bool {
	for _, v := range AccountIcons {
		if v == icon {
			return true
		}
	}
	return false
}

// Validate checks the account's own field shapes. Derived fields are not
// inspected here; they belong to the projector.
func (a Account) Validate() error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return ErrAccountNameRequired
	}
	if len([]rune(name)) > MaxAccountNameLen {
		return ErrAccountNameTooLong
	}
	if !ValidCurrency(a.Currency) {
		return ErrInvalidCurrency
	}
	if a.Color != "" && !colorPattern.MatchString(a.Color) {
		return ErrInvalidColor
	}
	if a.Icon != "" && !validAccountIcon(a.Icon) {
		return ErrInvalidIcon
	}
	return nil
}

// ValidateShape checks the entry's standalone field shapes: amount, type,
// description bound, date presence. Referential rules (account ownership,
// category type) need directory lookups and live in the ledger validator.
func (e Entry) ValidateShape() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !e.Type.Valid() {
		return ErrInvalidType
	}
	if len([]rune(e.Description)) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ParseAmount converts a decimal string to a positive amount. Both dot and
// comma decimal separators are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
