package port

import (
	"context"

	"github.com/arklim/signup-iam/internal/core/domain"
)

// PermissionRepository manages permission reference data and user grants.
type PermissionRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Permission, error)
	GetByID(ctx context.Context, id string) (*domain.Permission, error)
	List(ctx context.Context) ([]domain.Permission, error)
	Grant(ctx context.Context, permissionID, userID string) error
	Revoke(ctx context.Context, permissionID, userID string) error
	GetGrant(ctx context.Context, permissionID, userID string) (*domain.PermissionGrant, error)
	ListGrantsByUser(ctx context.Context, userID string) ([]domain.PermissionGrant, error)
}
