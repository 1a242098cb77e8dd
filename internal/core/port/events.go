package port

import (
	"context"

	"github.com/arklim/signup-iam/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserSignedUp(ctx context.Context, event domain.UserSignedUpEvent) error
	PublishUserApproved(ctx context.Context, event domain.UserApprovedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error
	PublishPermissionsChanged(ctx context.Context, event domain.PermissionsChangedEvent) error
	PublishUserActivationChanged(ctx context.Context, event domain.UserActivationChangedEvent) error
}
