// Package app is the business core: account lifecycle, login and token
// refresh, and the bounded message history. Handlers translate its sentinel
// errors to HTTP statuses; it does no HTTP itself.
package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatvault/internal/history"
	"chatvault/internal/token"
	"chatvault/pkg/auth"
	"chatvault/pkg/domain"
	"chatvault/pkg/store"
)

// Config wires the app's collaborators.
type Config struct {
	Store  store.Store
	Tokens *token.Service
}

// App coordinates the credential store, token service, and persistence.
type App struct {
	store  store.Store
	tokens *token.Service
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("app requires a store")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("app requires a token service")
	}
	return &App{store: cfg.Store, tokens: cfg.Tokens}, nil
}

// RegisterInput is the registration payload. Age is optional.
type RegisterInput struct {
	Name     string
	SurName  string
	Email    string
	Password string
	Age      *int
}

const defaultAge = 3

// Register creates a new account after normalizing and validating the input.
// The password is hashed exactly once, here, because this is the only path
// that writes the password field.
func (a *App) Register(in RegisterInput) (domain.Account, error) {
	name := strings.ToLower(strings.TrimSpace(in.Name))
	surName := strings.ToLower(strings.TrimSpace(in.SurName))
	email := auth.NormalizeEmail(in.Email)

	if name == "" || surName == "" {
		return domain.Account{}, fmt.Errorf("%w: name and surName are required", ErrValidation)
	}
	if err := auth.ValidateEmail(email); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	_, exists, err := a.store.GetAccountByEmail(email)
	if err != nil {
		return domain.Account{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.Account{}, ErrEmailTaken
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.Account{}, err
	}

	age := defaultAge
	if in.Age != nil {
		age = *in.Age
	}
	now := time.Now().UTC()
	account := domain.Account{
		ID:           uuid.NewString(),
		Name:         name,
		SurName:      surName,
		Email:        email,
		PasswordHash: passwordHash,
		Age:          age,
		Messages:     []domain.MessagePair{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateAccount(account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

// Login verifies credentials and issues both tokens. Unknown email and wrong
// password are indistinguishable to the caller.
func (a *App) Login(email, password string) (domain.TokenPair, error) {
	email = auth.NormalizeEmail(email)
	account, ok, err := a.store.GetAccountByEmail(email)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("lookup account: %w", err)
	}
	if !ok || !auth.CheckPassword(password, account.PasswordHash) {
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	accessToken, err := a.tokens.IssueAccess(account.Email)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refreshToken, err := a.tokens.IssueRefresh(account.Email)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// GetProfile returns the subject's account.
func (a *App) GetProfile(subject string) (domain.Account, error) {
	account, ok, err := a.store.GetAccountByEmail(subject)
	if err != nil {
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	return account, nil
}

// ProfileInput carries the optional profile fields; nil means unchanged.
// Email and password cannot be modified through this path.
type ProfileInput struct {
	Name    *string
	SurName *string
	Age     *int
}

// UpdateProfile applies a partial update and returns the updated account.
func (a *App) UpdateProfile(subject string, in ProfileInput) (domain.Account, error) {
	update := store.ProfileUpdate{Age: in.Age}
	if in.Name != nil {
		name := strings.ToLower(strings.TrimSpace(*in.Name))
		if name == "" {
			return domain.Account{}, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		update.Name = &name
	}
	if in.SurName != nil {
		surName := strings.ToLower(strings.TrimSpace(*in.SurName))
		if surName == "" {
			return domain.Account{}, fmt.Errorf("%w: surName must not be empty", ErrValidation)
		}
		update.SurName = &surName
	}
	account, ok, err := a.store.UpdateProfile(subject, update)
	if err != nil {
		return domain.Account{}, fmt.Errorf("update profile: %w", err)
	}
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	return account, nil
}

// Refresh verifies a refresh token and mints a new access token. The refresh
// token itself is not rotated.
func (a *App) Refresh(refreshToken string) (string, error) {
	subject, status := a.tokens.Verify(refreshToken, token.KindRefresh)
	if status != token.StatusValid {
		return "", ErrRefreshRejected
	}
	return a.tokens.IssueAccess(subject)
}

// MergeMessages folds an incoming batch into the subject's stored history:
// keyed-overwrite dedup, then the trailing window. The read-modify-write is
// not serialized across requests; concurrent merges race and the last row
// write wins.
func (a *App) MergeMessages(subject string, incoming []domain.MessagePair) (domain.Account, error) {
	account, ok, err := a.store.GetAccountByEmail(subject)
	if err != nil {
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	merged := history.Merge(account.Messages, incoming)
	updated, ok, err := a.store.ReplaceMessages(subject, merged)
	if err != nil {
		return domain.Account{}, fmt.Errorf("replace messages: %w", err)
	}
	if !ok {
		return domain.Account{}, ErrAccountNotFound
	}
	return updated, nil
}

// DeleteAllMessages empties the subject's history and reports rows matched.
func (a *App) DeleteAllMessages(subject string) (int64, error) {
	count, err := a.store.ClearMessages(subject)
	if err != nil {
		return 0, fmt.Errorf("clear messages: %w", err)
	}
	return count, nil
}
