package port

import (
	"context"

	"github.com/arklim/signup-iam/internal/core/domain"
)

// ProfileRepository persists user profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, id string, update domain.ProfileUpdate) error
	Delete(ctx context.Context, id string) error
}
