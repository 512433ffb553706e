// Package authpw provides email/password accounts.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/julienreichel/on-track-career-os-sub005/internal/store"
)

const minPasswordLength = 8

var (
	ErrMissingFields      = errors.New("email, password, and display name are required")
	ErrInvalidEmail       = errors.New("email address is invalid")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateUser(ctx context.Context, displayName, email, passwordHash string) (store.User, error)
}

// Service provides email/password authentication
type Service struct {
	store UserStore
	cost  int
}

func NewService(users UserStore) *Service {
	return &Service{store: users, cost: bcrypt.DefaultCost}
}

// NewServiceWithCost lets tests trade hash strength for speed.
func NewServiceWithCost(users UserStore, cost int) *Service {
	return &Service{store: users, cost: cost}
}

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// SignUp creates a new user account together with its empty profile.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	displayName := strings.TrimSpace(req.DisplayName)
	if email == "" || req.Password == "" || displayName == "" {
		return store.User{}, ErrMissingFields
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return store.User{}, ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return store.User{}, ErrWeakPassword
	}

	_, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return store.User{}, ErrEmailTaken
	case !errors.Is(err, sql.ErrNoRows):
		return store.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, displayName, email, string(hash))
	if err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn authenticates a user. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}
