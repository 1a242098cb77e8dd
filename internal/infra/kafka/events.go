package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
	"github.com/arklim/signup-iam/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types, also used as topic suffixes.
const (
	EventUserSignedUp         = "iam.user.signed_up"
	EventUserApproved         = "iam.user.approved"
	EventPasswordChanged      = "iam.user.password.changed"
	EventUserDeleted          = "iam.user.deleted"
	EventSignupDeleted        = "iam.signup.deleted"
	EventPermissionsChanged   = "iam.user.permissions.changed"
	EventUserActivationChange = "iam.user.activation.changed"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}
	// Keyed by user so every event of one identity lands on the same partition, in order.
	if userID != "" {
		message.Key = sarama.StringEncoder(userID)
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserSignedUp publishes iam.user.signed_up events.
func (p *EventPublisher) PublishUserSignedUp(ctx context.Context, event domain.UserSignedUpEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		Username  string    `json:"username"`
		Email     *string   `json:"email,omitempty"`
		Phone     string    `json:"phone"`
		CreatedAt time.Time `json:"created_at"`
	}{
		UserID:    event.UserID,
		Username:  event.Username,
		Email:     event.Email,
		Phone:     event.Phone,
		CreatedAt: event.CreatedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventUserSignedUp, event.UserID, event.CreatedAt, payload)
}

// PublishUserApproved publishes iam.user.approved events.
func (p *EventPublisher) PublishUserApproved(ctx context.Context, event domain.UserApprovedEvent) error {
	payload := struct {
		UserID        string    `json:"user_id"`
		Username      string    `json:"username"`
		GrantedScopes []string  `json:"granted_scopes"`
		ApprovedBy    string    `json:"approved_by"`
		RegisteredAt  time.Time `json:"registered_at"`
	}{
		UserID:        event.UserID,
		Username:      event.Username,
		GrantedScopes: event.GrantedScopes,
		ApprovedBy:    event.ApprovedBy,
		RegisteredAt:  event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventUserApproved, event.UserID, event.RegisteredAt, payload)
}

// PublishPasswordChanged publishes iam.user.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		ChangedAt time.Time `json:"changed_at"`
		ChangedBy string    `json:"changed_by"`
	}{
		UserID:    event.UserID,
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
	}

	return p.publish(ctx, event.EventID, EventPasswordChanged, event.UserID, event.ChangedAt, payload)
}

// PublishUserDeleted publishes iam.user.deleted, or iam.signup.deleted for pending identities.
func (p *EventPublisher) PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		Username  string    `json:"username"`
		State     string    `json:"state"`
		DeletedBy string    `json:"deleted_by"`
		DeletedAt time.Time `json:"deleted_at"`
	}{
		UserID:    event.UserID,
		Username:  event.Username,
		State:     string(event.State),
		DeletedBy: event.DeletedBy,
		DeletedAt: event.DeletedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, deletedEventType(event.State), event.UserID, event.DeletedAt, payload)
}

// PublishPermissionsChanged publishes iam.user.permissions.changed events.
func (p *EventPublisher) PublishPermissionsChanged(ctx context.Context, event domain.PermissionsChangedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		Username  string    `json:"username"`
		Added     []string  `json:"added,omitempty"`
		Removed   []string  `json:"removed,omitempty"`
		ChangedBy string    `json:"changed_by"`
		ChangedAt time.Time `json:"changed_at"`
	}{
		UserID:    event.UserID,
		Username:  event.Username,
		Added:     event.Added,
		Removed:   event.Removed,
		ChangedBy: event.ChangedBy,
		ChangedAt: event.ChangedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventPermissionsChanged, event.UserID, event.ChangedAt, payload)
}

// PublishUserActivationChanged publishes iam.user.activation.changed events.
func (p *EventPublisher) PublishUserActivationChanged(ctx context.Context, event domain.UserActivationChangedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		Username  string    `json:"username"`
		Active    bool      `json:"active"`
		ChangedBy string    `json:"changed_by"`
		ChangedAt time.Time `json:"changed_at"`
	}{
		UserID:    event.UserID,
		Username:  event.Username,
		Active:    event.Active,
		ChangedBy: event.ChangedBy,
		ChangedAt: event.ChangedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventUserActivationChange, event.UserID, event.ChangedAt, payload)
}

func deletedEventType(state domain.UserState) string {
	if state == domain.UserStatePending {
		return EventSignupDeleted
	}
	return EventUserDeleted
}

var _ port.EventPublisher = (*EventPublisher)(nil)
