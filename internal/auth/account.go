package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"auction-marketplace/internal/auctionerrors"
	model "auction-marketplace/internal/models"
	"auction-marketplace/utils"
)

const minPasswordLength = 8

// UserStore is the persistence AccountService needs
type UserStore interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
}

// AccountService registers users and issues tokens
type AccountService struct {
	users  UserStore
	tokens *TokenIssuer
	now    func() time.Time
}

func NewAccountService(users UserStore, tokens *TokenIssuer) *AccountService {
	return &AccountService{
		users:  users,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a bidder account
func (s *AccountService) Register(ctx context.Context, email, username, password string) (model.User, error) {
	return s.create(ctx, email, username, password, model.RoleBidder)
}

// Login checks credentials and returns a signed access token
func (s *AccountService) Login(ctx context.Context, email, password string) (string, model.User, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, auctionerrors.ErrUserNotFound) {
		return "", model.User{}, fmt.Errorf("account: %w", auctionerrors.ErrInvalidCredentials)
	}
	if err != nil {
		return "", model.User{}, fmt.Errorf("account: failed to load user %s: %w", email, err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return "", model.User{}, fmt.Errorf("account: %w", auctionerrors.ErrInvalidCredentials)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", model.User{}, fmt.Errorf("account: %w - %v", auctionerrors.ErrDependencyFailure, err)
	}
	return token, user, nil
}

// GetUser returns the account behind a token subject
func (s *AccountService) GetUser(ctx context.Context, userID string) (model.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return model.User{}, fmt.Errorf("account: failed to get user %s: %w", userID, err)
	}
	return user, nil
}

// EnsureAdmin creates the admin account once; later calls return the existing user
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) (model.User, error) {
	existing, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err == nil {
		if !existing.IsAdmin() {
			return model.User{}, fmt.Errorf("account: %w - %s exists without admin role", auctionerrors.ErrEmailTaken, email)
		}
		return existing, nil
	}
	if !errors.Is(err, auctionerrors.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("account: failed to look up admin: %w", err)
	}
	return s.create(ctx, email, "admin", password, model.RoleAdmin)
}

func (s *AccountService) create(ctx context.Context, email, username, password string, role model.Role) (model.User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return model.User{}, fmt.Errorf("account: %w - malformed email", auctionerrors.ErrInvalidAccount)
	}
	if len(password) < minPasswordLength {
		return model.User{}, fmt.Errorf("account: %w - password must be at least %d characters", auctionerrors.ErrInvalidAccount, minPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return model.User{}, fmt.Errorf("account: %w - %v", auctionerrors.ErrDependencyFailure, err)
	}
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	user := model.User{
		UserID:       utils.GenerateID(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return model.User{}, fmt.Errorf("account: failed to create user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
