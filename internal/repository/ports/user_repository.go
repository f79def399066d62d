package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}
