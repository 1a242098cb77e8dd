package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
	"github.com/arklim/signup-iam/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(ctx context.Context, eventType, userID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	base := []zap.Field{
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
	}
	base = append(base, logger.ContextFields(ctx)...)
	p.logger.Info("stub event published", append(base, fields...)...)
}

func (p *StubPublisher) PublishUserSignedUp(ctx context.Context, event domain.UserSignedUpEvent) error {
	email := ""
	if event.Email != nil {
		email = *event.Email
	}
	p.logEvent(ctx, EventUserSignedUp, event.UserID, event.CreatedAt,
		zap.String("username", event.Username),
		zap.String("email", logger.MaskEmail(email)),
		zap.String("phone", logger.MaskPhone(event.Phone)),
	)
	return nil
}

func (p *StubPublisher) PublishUserApproved(ctx context.Context, event domain.UserApprovedEvent) error {
	p.logEvent(ctx, EventUserApproved, event.UserID, event.RegisteredAt,
		zap.String("username", event.Username),
		zap.Strings("granted_scopes", event.GrantedScopes),
		zap.String("approved_by", event.ApprovedBy),
	)
	return nil
}

func (p *StubPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent(ctx, EventPasswordChanged, event.UserID, event.ChangedAt,
		zap.String("changed_by", event.ChangedBy),
	)
	return nil
}

func (p *StubPublisher) PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error {
	p.logEvent(ctx, deletedEventType(event.State), event.UserID, event.DeletedAt,
		zap.String("username", event.Username),
		zap.String("deleted_by", event.DeletedBy),
	)
	return nil
}

func (p *StubPublisher) PublishPermissionsChanged(ctx context.Context, event domain.PermissionsChangedEvent) error {
	p.logEvent(ctx, EventPermissionsChanged, event.UserID, event.ChangedAt,
		zap.String("username", event.Username),
		zap.Strings("added", event.Added),
		zap.Strings("removed", event.Removed),
		zap.String("changed_by", event.ChangedBy),
	)
	return nil
}

func (p *StubPublisher) PublishUserActivationChanged(ctx context.Context, event domain.UserActivationChangedEvent) error {
	p.logEvent(ctx, EventUserActivationChange, event.UserID, event.ChangedAt,
		zap.String("username", event.Username),
		zap.Bool("active", event.Active),
		zap.String("changed_by", event.ChangedBy),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
