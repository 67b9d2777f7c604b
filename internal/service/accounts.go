package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sakif/literary-diary/internal/apperror"
	"github.com/sakif/literary-diary/internal/auth"
	"github.com/sakif/literary-diary/internal/model"
	"github.com/sakif/literary-diary/internal/repository"
)

// Account rules.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 6
)

// invalidCredentials is deliberately vague: it never says whether the email
// or the password was wrong.
const invalidCredentials = "invalid email or password"

// AccountService handles registration, login and the few things a user may
// change about their own account.
//
//	AccountHandler (HTTP) → AccountService → UserRepository / ReviewRepository
//	                                       ↘ PasswordService, TokenService
type AccountService struct {
	repos     repository.Repositories
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAccountService(
	repos repository.Repositories,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		repos:     repos,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the freshly issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register validates the form, hashes the password and creates the user.
// A taken username or email comes back from the store as
// apperror.ErrUniqueness with Field "username" or "email".
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.repos.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/account: registering %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks the email and password and issues a token.
// Unknown email and wrong password both return apperror.ErrUnauthorized.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	user, err := s.repos.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/account: looking up %q: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Warn("login failed", slog.Int64("userID", user.ID))
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/account: verifying password: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: issuing token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "user id must be positive")
	}
	user, err := s.repos.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: fetching user %d: %w", id, err)
	}
	return user, nil
}

// GetProfile returns the public profile page: the user and their diary,
// most recently read first.
func (s *AccountService) GetProfile(ctx context.Context, username string) (*model.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	user, err := s.repos.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/account: fetching profile %q: %w", username, err)
	}
	reviews, err := s.repos.Reviews().ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: listing reviews of %q: %w", username, err)
	}
	return &model.Profile{User: user, Reviews: reviews}, nil
}

// ChangePassword rotates the password hash, the only mutable user field.
// The current password must be supplied.
func (s *AccountService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return apperror.Unauthorized("current password is incorrect")
		}
		return fmt.Errorf("service/account: verifying password: %w", err)
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return fmt.Errorf("service/account: hashing password: %w", err)
	}
	if err := s.repos.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/account: updating password of user %d: %w", userID, err)
	}

	s.logger.Info("password changed", slog.Int64("userID", userID))
	return nil
}

// DeleteAccount removes the user with their reviews and wishlist.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.repos.Users().Delete(ctx, userID); err != nil {
		return fmt.Errorf("service/account: deleting user %d: %w", userID, err)
	}
	s.logger.Info("account deleted", slog.Int64("userID", userID))
	return nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n == 0 {
		return apperror.ValidationFailed("username", "username is required")
	}
	if n < MinUsernameLength || n > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
	}
	return nil
}

// validateEmail accepts a bare address ("reader@example.com"). Display-name
// forms like "Reader <reader@example.com>" are rejected.
func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	invalid := apperror.ValidationFailed("email", "invalid email format")
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	if !strings.Contains(domain, ".") {
		return invalid
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	return nil
}
