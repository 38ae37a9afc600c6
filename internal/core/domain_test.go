package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 2.50 ", "2.5", true},
		{"0.01", "0.01", true},
		{"0", "", false},
		{"-1", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestEntryValidateShape(t *testing.T) {
	good := Entry{
		Amount:      decimal.NewFromInt(100),
		Type:        Income,
		Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "salary",
	}
	if err := good.ValidateShape(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Entry)
		want error
	}{
		{"zero amount", func(e *Entry) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(e *Entry) { e.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"bad type", func(e *Entry) { e.Type = "transfer" }, ErrInvalidType},
		{"zero date", func(e *Entry) { e.Date = time.Time{} }, ErrInvalidDate},
		{"long description", func(e *Entry) { e.Description = strings.Repeat("x", MaxDescriptionLen+1) }, ErrDescriptionTooLong},
	}
	for _, tc := range cases {
		e := good
		tc.mut(&e)
		if err := e.ValidateShape(); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestAccountValidate(t *testing.T) {
	good := Account{Name: "Cash", Currency: "RUB", Color: "#3B82F6", Icon: "wallet"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		mut  func(*Account)
		want error
	}{
		{"empty name", func(a *Account) { a.Name = "  " }, ErrAccountNameRequired},
		{"long name", func(a *Account) { a.Name = strings.Repeat("n", MaxAccountNameLen+1) }, ErrAccountNameTooLong},
		{"bad currency", func(a *Account) { a.Currency = "GBP" }, ErrInvalidCurrency},
		{"bad color", func(a *Account) { a.Color = "blue" }, ErrInvalidColor},
		{"bad icon", func(a *Account) { a.Icon = "rocket" }, ErrInvalidIcon},
	}
	for _, tc := range cases {
		a := good
		tc.mut(&a)
		if err := a.Validate(); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestAccountValidateOptionalDisplayFields(t *testing.T) {
	a := Account{Name: "Cash", Currency: "USD"}
	if err := a.Validate(); err != nil {
		t.Fatalf("empty color/icon should be allowed, got %v", err)
	}
}
