package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"kassa/internal/core"
	"kassa/internal/log"
	"kassa/internal/storage"
)

const minPasswordLen = 8

var ErrInvalidCredentials = errors.New("invalid email or password")

type Service struct {
	repo   storage.Repository
	tokens *TokenManager
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(repo storage.Repository, tokens *TokenManager, logger *log.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		logger: logger.WithComponent(log.ComponentAuth),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Currency string
}

// Register creates a user and returns it with a fresh session token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*core.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", core.ErrInvalidEmail
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, "", core.ErrNameRequired
	}
	if len([]rune(name)) > core.MaxUserNameLen {
		return nil, "", core.ErrNameTooLong
	}
	if len(in.Password) < minPasswordLen {
		return nil, "", core.ErrPasswordTooShort
	}
	currency := in.Currency
	if currency == "" {
		currency = core.Currencies[0]
	}
	if !core.ValidCurrency(currency) {
		return nil, "", core.ErrInvalidCurrency
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	user := &core.User{
		ID:           s.newID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Currency:     currency,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, "", core.ErrEmailAlreadyRegistered
		}
		return nil, "", fmt.Errorf("persist user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "user registered",
		log.FieldOperation, log.OpCreate,
		"user_id", user.ID)

	return user, token, nil
}

// Login verifies the credentials and returns the user with a fresh token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*core.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.UserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// User returns the profile behind a session.
func (s *Service) User(ctx context.Context, id string) (*core.User, error) {
	user, err := s.repo.User(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	return user, nil
}
