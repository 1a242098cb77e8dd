package port

import (
	"context"

	"github.com/arklim/signup-iam/internal/core/domain"
)

// PendingUserRepository exposes persistence behavior for signups awaiting approval.
type PendingUserRepository interface {
	Create(ctx context.Context, user domain.PendingUser) error
	GetByUsername(ctx context.Context, username string) (*domain.PendingUser, error)
	GetByEmail(ctx context.Context, email string) (*domain.PendingUser, error)
	GetByPhone(ctx context.Context, phone string) (*domain.PendingUser, error)
	List(ctx context.Context) ([]domain.PendingUser, error)
	Delete(ctx context.Context, username string) error
}

// UserRepository exposes persistence behavior for validated users.
type UserRepository interface {
	Create(ctx context.Context, user domain.ValidatedUser) error
	GetByID(ctx context.Context, id string) (*domain.ValidatedUser, error)
	GetByUsername(ctx context.Context, username string) (*domain.ValidatedUser, error)
	GetByEmail(ctx context.Context, email string) (*domain.ValidatedUser, error)
	GetByPhone(ctx context.Context, phone string) (*domain.ValidatedUser, error)
	List(ctx context.Context) ([]domain.ValidatedUser, error)
	Update(ctx context.Context, id string, update domain.UserUpdate) error
	Delete(ctx context.Context, id string) error
}
