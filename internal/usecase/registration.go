package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
	applog "github.com/arklim/signup-iam/internal/infra/logger"
	"github.com/arklim/signup-iam/internal/repository"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 50
	phoneMinLength    = 10
	phoneMaxLength    = 15
)

// RegistrationService handles signups and their administrative approval.
type RegistrationService struct {
	pending     port.PendingUserRepository
	users       port.UserRepository
	permissions port.PermissionRepository
	hasher      port.PasswordHasher
	policy      port.PasswordPolicyValidator
	events      port.EventPublisher
	metrics     port.AuthMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	pending port.PendingUserRepository,
	users port.UserRepository,
	permissions port.PermissionRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
) *RegistrationService {
	return &RegistrationService{
		pending:     pending,
		users:       users,
		permissions: permissions,
		hasher:      hasher,
		policy:      policy,
		metrics:     port.NopMetrics{},
		logger:      zap.NewNop(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithEventPublisher attaches a publisher for signup lifecycle events.
func (s *RegistrationService) WithEventPublisher(events port.EventPublisher) *RegistrationService {
	s.events = events
	return s
}

// WithMetrics attaches the observability collaborator.
func (s *RegistrationService) WithMetrics(metrics port.AuthMetrics) *RegistrationService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// WithLogger attaches a structured logger.
func (s *RegistrationService) WithLogger(logger *zap.Logger) *RegistrationService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Signup records a pending user awaiting approval.
func (s *RegistrationService) Signup(ctx context.Context, candidate domain.SignupCandidate) (*domain.PublicPendingUser, error) {
	pending, err := s.signup(ctx, candidate)
	if err != nil {
		s.metrics.ObserveSignup(port.OutcomeFailure)
		return nil, err
	}
	s.metrics.ObserveSignup(port.OutcomeSuccess)

	s.logger.Info("signup recorded", append(applog.ContextFields(ctx),
		zap.String("user_id", pending.ID),
		zap.String("phone", applog.MaskPhone(pending.Phone)),
	)...)

	if s.events != nil {
		event := domain.UserSignedUpEvent{
			EventID:   uuid.NewString(),
			UserID:    pending.ID,
			Username:  pending.Username,
			Email:     pending.Email,
			Phone:     pending.Phone,
			CreatedAt: pending.CreatedAt,
		}
		publishBestEffort(ctx, s.logger, "user_signed_up", func() error {
			return s.events.PublishUserSignedUp(ctx, event)
		})
	}

	view := pending.Public()
	return &view, nil
}

func (s *RegistrationService) signup(ctx context.Context, candidate domain.SignupCandidate) (*domain.PendingUser, error) {
	candidate = normalizeCandidate(candidate)
	if err := validateCandidate(candidate); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}

	pctx := port.PasswordContext{Username: candidate.Username, Email: candidate.Email, Phone: candidate.Phone}
	if err := s.policy.Validate(candidate.Password, pctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}

	if err := s.ensureAvailable(ctx, candidate); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(candidate.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	pending := domain.PendingUser{
		ID:           uuid.NewString(),
		Username:     candidate.Username,
		PasswordHash: hash,
		Phone:        candidate.Phone,
		CreatedAt:    s.now(),
	}
	if candidate.Email != "" {
		email := candidate.Email
		pending.Email = &email
	}

	if err := s.pending.Create(ctx, pending); err != nil {
		if mapped, ok := translateConflict(err, domain.ErrUserNotValid); ok {
			return nil, mapped
		}
		return nil, fmt.Errorf("create pending user: %w", err)
	}
	return &pending, nil
}

func normalizeCandidate(candidate domain.SignupCandidate) domain.SignupCandidate {
	candidate.Username = normalizeUsername(candidate.Username)
	candidate.Email = strings.ToLower(strings.TrimSpace(candidate.Email))
	candidate.Phone = strings.TrimSpace(candidate.Phone)
	return candidate
}

func validateCandidate(candidate domain.SignupCandidate) error {
	return validation.ValidateStruct(&candidate,
		validation.Field(&candidate.Username, validation.Required, validation.RuneLength(usernameMinLength, usernameMaxLength)),
		validation.Field(&candidate.Password, validation.Required),
		validation.Field(&candidate.Email, is.EmailFormat),
		validation.Field(&candidate.Phone, validation.Required, validation.RuneLength(phoneMinLength, phoneMaxLength)),
	)
}

// ensureAvailable checks uniqueness across both namespaces in the documented error order.
func (s *RegistrationService) ensureAvailable(ctx context.Context, candidate domain.SignupCandidate) error {
	_, err := s.pending.GetByUsername(ctx, candidate.Username)
	if taken, err := found(err); err != nil {
		return fmt.Errorf("check pending username: %w", err)
	} else if taken {
		return domain.ErrUserNotValid
	}

	_, err = s.users.GetByUsername(ctx, candidate.Username)
	if taken, err := found(err); err != nil {
		return fmt.Errorf("check validated username: %w", err)
	} else if taken {
		return domain.ErrUserAlreadyExists
	}

	if candidate.Email != "" {
		_, pendingErr := s.pending.GetByEmail(ctx, candidate.Email)
		_, userErr := s.users.GetByEmail(ctx, candidate.Email)
		if taken, err := foundAny(pendingErr, userErr); err != nil {
			return fmt.Errorf("check email: %w", err)
		} else if taken {
			return domain.ErrEmailAlreadyUsed
		}
	}

	_, pendingErr := s.pending.GetByPhone(ctx, candidate.Phone)
	_, userErr := s.users.GetByPhone(ctx, candidate.Phone)
	if taken, err := foundAny(pendingErr, userErr); err != nil {
		return fmt.Errorf("check phone: %w", err)
	} else if taken {
		return domain.ErrPhoneAlreadyUsed
	}
	return nil
}

// found interprets the error of a lookup: nil means a record exists, ErrNotFound means it does not.
func found(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func foundAny(errs ...error) (bool, error) {
	for _, lookupErr := range errs {
		taken, err := found(lookupErr)
		if err != nil || taken {
			return taken, err
		}
	}
	return false, nil
}

// Approve converts a pending signup into an active validated user holding the default scopes.
// The steps are not atomic: a failure after the user row is written returns ErrOperationFailed.
func (s *RegistrationService) Approve(ctx context.Context, username, approvedBy string) (*domain.PublicUser, error) {
	user, err := s.approve(ctx, normalizeUsername(username))
	if err != nil {
		s.metrics.ObserveApproval(port.OutcomeFailure)
		return nil, err
	}
	s.metrics.ObserveApproval(port.OutcomeSuccess)
	s.metrics.AddActiveUsers(1)

	s.logger.Info("signup approved", append(applog.ContextFields(ctx),
		zap.String("user_id", user.ID),
		zap.String("approved_by", approvedBy),
	)...)

	if s.events != nil {
		event := domain.UserApprovedEvent{
			EventID:       uuid.NewString(),
			UserID:        user.ID,
			Username:      user.Username,
			GrantedScopes: append([]string(nil), domain.DefaultGrantedScopes...),
			ApprovedBy:    approvedBy,
			RegisteredAt:  user.RegisteredAt,
		}
		publishBestEffort(ctx, s.logger, "user_approved", func() error {
			return s.events.PublishUserApproved(ctx, event)
		})
	}

	view := user.Public()
	return &view, nil
}

func (s *RegistrationService) approve(ctx context.Context, username string) (*domain.ValidatedUser, error) {
	pending, err := s.pending.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup pending user: %w", err)
	}

	_, lookupErr := s.users.GetByUsername(ctx, username)
	taken, lookupErr := found(lookupErr)
	if lookupErr != nil {
		return nil, fmt.Errorf("check validated username: %w", lookupErr)
	}
	switch {
	case taken:
		// Already converted, including a repeated approval of the same signup.
		return nil, domain.ErrUserAlreadyExists
	case err != nil:
		return nil, domain.ErrUserNotFound
	}

	user := domain.ValidatedUser{
		ID:           pending.ID,
		Username:     pending.Username,
		PasswordHash: pending.PasswordHash,
		Email:        pending.Email,
		Phone:        pending.Phone,
		Active:       true,
		CreatedAt:    pending.CreatedAt,
		RegisteredAt: s.now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if mapped, ok := translateConflict(err, domain.ErrUserAlreadyExists); ok {
			return nil, mapped
		}
		return nil, fmt.Errorf("%w: create user: %v", domain.ErrOperationFailed, err)
	}

	if err := s.pending.Delete(ctx, username); err != nil {
		return nil, fmt.Errorf("%w: delete pending user: %v", domain.ErrOperationFailed, err)
	}

	for _, scope := range domain.DefaultGrantedScopes {
		permission, err := s.permissions.GetByName(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("%w: lookup permission %s: %v", domain.ErrOperationFailed, scope, err)
		}
		if err := s.permissions.Grant(ctx, permission.ID, user.ID); err != nil {
			return nil, fmt.Errorf("%w: grant %s: %v", domain.ErrOperationFailed, scope, err)
		}
	}

	return &user, nil
}

// DeleteSignup removes a pending signup.
func (s *RegistrationService) DeleteSignup(ctx context.Context, username, deletedBy string) error {
	username = normalizeUsername(username)
	pending, err := s.pending.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("lookup pending user: %w", err)
	}

	if err := s.pending.Delete(ctx, username); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("delete pending user: %w", err)
	}

	if s.events != nil {
		event := domain.UserDeletedEvent{
			EventID:   uuid.NewString(),
			UserID:    pending.ID,
			Username:  pending.Username,
			State:     domain.UserStatePending,
			DeletedBy: deletedBy,
			DeletedAt: s.now(),
		}
		publishBestEffort(ctx, s.logger, "signup_deleted", func() error {
			return s.events.PublishUserDeleted(ctx, event)
		})
	}
	return nil
}

// ListPendingUsers returns the public view of every pending signup.
func (s *RegistrationService) ListPendingUsers(ctx context.Context) ([]domain.PublicPendingUser, error) {
	pending, err := s.pending.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	views := make([]domain.PublicPendingUser, 0, len(pending))
	for _, user := range pending {
		views = append(views, user.Public())
	}
	return views, nil
}
