package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, full_name, role, password_hash, password_salt, created_at, updated_at`

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE lower(email) = lower($1)
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        WHERE id = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	query := `
        SELECT ` + userColumns + `
        FROM users
        ORDER BY created_at DESC, id
        LIMIT $1 OFFSET $2
    `
	users := []domain.User{}
	if err := r.db.SelectContext(ctx, &users, query, limit, offset); err != nil {
		return nil, err
	}
	return users, nil
}

// Create inserts user and fills in its generated id and timestamps. A taken
// email maps to ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
        INSERT INTO users (email, full_name, role, password_hash, password_salt)
        VALUES (lower($1), $2, $3, $4, $5)
        RETURNING id, email, created_at, updated_at
    `
	row := r.db.QueryRowxContext(ctx, query, user.Email, user.FullName, user.Role, user.PasswordHash, user.PasswordSalt)
	if err := row.Scan(&user.ID, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return classify(err)
	}
	return nil
}

var _ ports.UserRepository = (*UserRepository)(nil)
