package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
	"github.com/rrrobertsson/airmango-admin-panel/internal/util"
)

var ErrInvalidUser = errors.New("invalid user")

const (
	defaultUserLimit = 100
	maxUserLimit     = 500
)

// UserService lists accounts for the trip creator picker.
type UserService struct {
	users ports.UserRepository
}

func NewUserService(users ports.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = defaultUserLimit
	}
	if limit > maxUserLimit {
		limit = maxUserLimit
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

type NewUser struct {
	Email    string
	FullName string
	Role     string
	Password string
}

// Provision creates an account with a freshly salted password hash. Role
// defaults to editor.
func (s *UserService) Provision(ctx context.Context, in NewUser) (*domain.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, fmt.Errorf("%w: email: %w", ErrInvalidUser, err)
	}
	if err := util.CheckPasswordStrength(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	hash, salt, err := util.DerivePassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        strings.ToLower(addr.Address),
		Role:         strings.TrimSpace(in.Role),
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	if user.Role == "" {
		user.Role = domain.RoleEditor
	}
	if name := strings.TrimSpace(in.FullName); name != "" {
		user.FullName = &name
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
