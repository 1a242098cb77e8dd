package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
	applog "github.com/arklim/signup-iam/internal/infra/logger"
	"github.com/arklim/signup-iam/internal/repository"
)

// UserService administers validated users and their permission grants.
type UserService struct {
	users       port.UserRepository
	permissions port.PermissionRepository
	authorizer  *ScopeAuthorizer
	events      port.EventPublisher
	metrics     port.AuthMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(users port.UserRepository, permissions port.PermissionRepository, authorizer *ScopeAuthorizer) *UserService {
	return &UserService{
		users:       users,
		permissions: permissions,
		authorizer:  authorizer,
		metrics:     port.NopMetrics{},
		logger:      zap.NewNop(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithEventPublisher attaches a publisher for account lifecycle events.
func (s *UserService) WithEventPublisher(events port.EventPublisher) *UserService {
	s.events = events
	return s
}

// WithMetrics attaches the observability collaborator.
func (s *UserService) WithMetrics(metrics port.AuthMetrics) *UserService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// WithLogger attaches a structured logger.
func (s *UserService) WithLogger(logger *zap.Logger) *UserService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *UserService) lookup(ctx context.Context, username string) (*domain.ValidatedUser, error) {
	user, err := s.users.GetByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// GetUser returns the public view of a validated user.
func (s *UserService) GetUser(ctx context.Context, username string) (*domain.PublicUser, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	view := user.Public()
	return &view, nil
}

// ListUsers returns the public view of every validated user.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	views := make([]domain.PublicUser, 0, len(users))
	for _, user := range users {
		views = append(views, user.Public())
	}
	return views, nil
}

// CountActiveUsers returns the number of validated users able to authenticate.
func (s *UserService) CountActiveUsers(ctx context.Context) (int, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	count := 0
	for _, user := range users {
		if user.Active {
			count++
		}
	}
	return count, nil
}

// DeleteUser removes a validated user. Grants are cascade-deleted by the store.
func (s *UserService) DeleteUser(ctx context.Context, username, deletedBy string) error {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if user.Active {
		s.metrics.AddActiveUsers(-1)
	}

	s.logger.Info("user deleted", append(applog.ContextFields(ctx),
		zap.String("user_id", user.ID),
		zap.String("deleted_by", deletedBy),
	)...)

	if s.events != nil {
		event := domain.UserDeletedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			Username:  user.Username,
			State:     user.State(),
			DeletedBy: deletedBy,
			DeletedAt: s.now(),
		}
		publishBestEffort(ctx, s.logger, "user_deleted", func() error {
			return s.events.PublishUserDeleted(ctx, event)
		})
	}
	return nil
}

// GetUserPermissions returns the sorted scopes granted to a validated user.
func (s *UserService) GetUserPermissions(ctx context.Context, username string) ([]string, error) {
	return s.authorizer.ResolveGrantedScopes(ctx, username)
}

// SetActive moves a validated user between the active and inactive states. Setting the current state is a no-op.
func (s *UserService) SetActive(ctx context.Context, username string, active bool, changedBy string) (*domain.PublicUser, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	if user.Active != active {
		if err := s.users.Update(ctx, user.ID, domain.UserUpdate{Active: &active}); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, domain.ErrUserNotFound
			}
			return nil, fmt.Errorf("update activation: %w", err)
		}
		user.Active = active
		if active {
			s.metrics.AddActiveUsers(1)
		} else {
			s.metrics.AddActiveUsers(-1)
		}

		if s.events != nil {
			event := domain.UserActivationChangedEvent{
				EventID:   uuid.NewString(),
				UserID:    user.ID,
				Username:  user.Username,
				Active:    active,
				ChangedBy: changedBy,
				ChangedAt: s.now(),
			}
			publishBestEffort(ctx, s.logger, "user_activation_changed", func() error {
				return s.events.PublishUserActivationChanged(ctx, event)
			})
		}
	}

	view := user.Public()
	return &view, nil
}

func (s *UserService) lookupPermission(ctx context.Context, name string) (*domain.Permission, error) {
	permission, err := s.permissions.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown permission %q", domain.ErrValidationFailed, name)
		}
		return nil, fmt.Errorf("lookup permission: %w", err)
	}
	return permission, nil
}

// GrantPermission grants a named permission to a validated user and returns the resulting scopes.
// Granting a held permission is a no-op.
func (s *UserService) GrantPermission(ctx context.Context, username, permissionName, changedBy string) ([]string, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	permission, err := s.lookupPermission(ctx, permissionName)
	if err != nil {
		return nil, err
	}

	if err := s.permissions.Grant(ctx, permission.ID, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("grant permission: %w", err)
	}
	s.publishPermissionsChanged(ctx, user, []string{permission.Name}, nil, changedBy)

	return s.authorizer.grantedScopes(ctx, user.ID)
}

// RevokePermission removes a named permission from a validated user and returns the resulting scopes.
// Revoking a permission that is not held is a no-op.
func (s *UserService) RevokePermission(ctx context.Context, username, permissionName, changedBy string) ([]string, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	permission, err := s.lookupPermission(ctx, permissionName)
	if err != nil {
		return nil, err
	}

	err = s.permissions.Revoke(ctx, permission.ID, user.ID)
	switch {
	case err == nil:
		s.publishPermissionsChanged(ctx, user, nil, []string{permission.Name}, changedBy)
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("revoke permission: %w", err)
	}

	return s.authorizer.grantedScopes(ctx, user.ID)
}

// EnsureGrants grants any of scopes that username does not hold yet.
func (s *UserService) EnsureGrants(ctx context.Context, username string, scopes []string) error {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}

	added := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		permission, err := s.lookupPermission(ctx, scope)
		if err != nil {
			return err
		}
		_, err = s.permissions.GetGrant(ctx, permission.ID, user.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup grant %s: %w", scope, err)
		}
		if err := s.permissions.Grant(ctx, permission.ID, user.ID); err != nil {
			return fmt.Errorf("grant %s: %w", scope, err)
		}
		added = append(added, permission.Name)
	}

	if len(added) > 0 {
		s.logger.Info("grants ensured", zap.String("user_id", user.ID), zap.Strings("added", added))
		s.publishPermissionsChanged(ctx, user, added, nil, "system")
	}
	return nil
}

func (s *UserService) publishPermissionsChanged(ctx context.Context, user *domain.ValidatedUser, added, removed []string, changedBy string) {
	if s.events == nil {
		return
	}
	event := domain.PermissionsChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Added:     added,
		Removed:   removed,
		ChangedBy: changedBy,
		ChangedAt: s.now(),
	}
	publishBestEffort(ctx, s.logger, "permissions_changed", func() error {
		return s.events.PublishPermissionsChanged(ctx, event)
	})
}
