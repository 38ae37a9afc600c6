package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"kassa/internal/core"
	"kassa/internal/log"
	"kassa/internal/storage/memory"
)

func newService(t *testing.T) *Service {
	t.Helper()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	return NewService(memory.New(), NewTokenManager("test-secret", time.Hour), logger)
}

func validRegister() RegisterInput {
	return RegisterInput{
		Email:    "user@example.com",
		Name:     "User",
		Password: "correct horse",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, validRegister())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" {
		t.Fatal("no token issued")
	}
	if user.Currency != "RUB" {
		t.Fatalf("default currency = %q, want RUB", user.Currency)
	}
	if user.PasswordHash == "correct horse" {
		t.Fatal("password stored in plain text")
	}

	got, token, err := svc.Login(ctx, "USER@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID || token == "" {
		t.Fatalf("login user = %s, token = %q", got.ID, token)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*RegisterInput)
		wantErr error
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, core.ErrInvalidEmail},
		{"empty name", func(in *RegisterInput) { in.Name = "  " }, core.ErrNameRequired},
		{"short password", func(in *RegisterInput) { in.Password = "short" }, core.ErrPasswordTooShort},
		{"bad currency", func(in *RegisterInput) { in.Currency = "BTC" }, core.ErrInvalidCurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegister()
			tt.mutate(&in)
			if _, _, err := svc.Register(ctx, in); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, validRegister()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	in := validRegister()
	in.Email = "User@Example.com" // same address, different case
	if _, _, err := svc.Register(ctx, in); !errors.Is(err, core.ErrEmailAlreadyRegistered) {
		t.Fatalf("Register err = %v, want ErrEmailAlreadyRegistered", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, validRegister()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "user@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != "user-1" {
		t.Fatalf("subject = %q, want user-1", id)
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	token, err := other.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature err = %v, want ErrInvalidToken", err)
	}
	if _, err := m.Verify("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	base := time.Now()

	m.now = func() time.Time { return base }
	token, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token err = %v, want ErrInvalidToken", err)
	}
}
