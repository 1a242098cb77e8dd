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

// TokenTypeBearer is the token_type reported for issued access tokens.
const TokenTypeBearer = "bearer"

// GrantRecheckPolicy controls when a protected call re-reads grants from the store.
type GrantRecheckPolicy string

const (
	// GrantRecheckNever trusts the token scopes until expiry.
	GrantRecheckNever GrantRecheckPolicy = "never"
	// GrantRecheckWrites re-reads grants before write operations.
	GrantRecheckWrites GrantRecheckPolicy = "writes"
	// GrantRecheckAlways re-reads grants on every protected call.
	GrantRecheckAlways GrantRecheckPolicy = "always"
)

// ParseGrantRecheckPolicy converts a configuration value into a policy. Empty selects GrantRecheckWrites.
func ParseGrantRecheckPolicy(value string) (GrantRecheckPolicy, error) {
	switch GrantRecheckPolicy(value) {
	case "":
		return GrantRecheckWrites, nil
	case GrantRecheckNever, GrantRecheckWrites, GrantRecheckAlways:
		return GrantRecheckPolicy(value), nil
	default:
		return "", fmt.Errorf("unknown grant recheck policy %q", value)
	}
}

func (p GrantRecheckPolicy) applies(operation string) bool {
	switch p {
	case GrantRecheckAlways:
		return true
	case GrantRecheckWrites:
		return IsWriteOperation(operation)
	default:
		return false
	}
}

// Principal is the authenticated caller of a protected operation.
type Principal struct {
	User      domain.ValidatedUser
	Scopes    []string
	ExpiresAt time.Time
}

// AuthService coordinates credential verification, token issuance and protected-call checks.
type AuthService struct {
	users      port.UserRepository
	authorizer *ScopeAuthorizer
	hasher     port.PasswordHasher
	policy     port.PasswordPolicyValidator
	tokens     port.TokenCodec
	tokenTTL   time.Duration
	recheck    GrantRecheckPolicy
	events     port.EventPublisher
	metrics    port.AuthMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	users port.UserRepository,
	authorizer *ScopeAuthorizer,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	tokens port.TokenCodec,
) *AuthService {
	return &AuthService{
		users:      users,
		authorizer: authorizer,
		hasher:     hasher,
		policy:     policy,
		tokens:     tokens,
		recheck:    GrantRecheckWrites,
		metrics:    port.NopMetrics{},
		logger:     zap.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithTokenTTL overrides the lifetime of issued tokens. Non-positive values keep the codec default.
func (s *AuthService) WithTokenTTL(ttl time.Duration) *AuthService {
	s.tokenTTL = ttl
	return s
}

// WithGrantRecheck sets the grant re-check policy for protected calls.
func (s *AuthService) WithGrantRecheck(policy GrantRecheckPolicy) *AuthService {
	s.recheck = policy
	return s
}

// WithEventPublisher attaches a publisher for password change events.
func (s *AuthService) WithEventPublisher(events port.EventPublisher) *AuthService {
	s.events = events
	return s
}

// WithMetrics attaches the observability collaborator.
func (s *AuthService) WithMetrics(metrics port.AuthMetrics) *AuthService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// WithLogger attaches a structured logger.
func (s *AuthService) WithLogger(logger *zap.Logger) *AuthService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login verifies credentials and issues an access token carrying the user's current grants.
// Unknown users and wrong passwords fail with the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.IssuedToken, error) {
	token, err := s.login(ctx, normalizeUsername(username), password)
	if err != nil {
		s.metrics.ObserveLogin(port.OutcomeFailure)
		return nil, err
	}
	s.metrics.ObserveLogin(port.OutcomeSuccess)
	return token, nil
}

func (s *AuthService) login(ctx context.Context, username, password string) (*domain.IssuedToken, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	scopes, err := s.authorizer.ResolveGrantedScopes(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("resolve grants: %w", err)
	}
	if err := s.authorizer.VerifyScopes(ctx, scopes, user.Username); err != nil {
		return nil, err
	}

	accessToken, expiresAt, err := s.tokens.Issue(user.Username, scopes, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.upgradeHash(ctx, user, password)

	return &domain.IssuedToken{
		AccessToken: accessToken,
		TokenType:   TokenTypeBearer,
		Scopes:      scopes,
		ExpiresAt:   expiresAt,
	}, nil
}

// upgradeHash replaces a legacy or weaker digest after a successful verify. Failures are logged only.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.ValidatedUser, password string) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	log := s.logger.With(applog.ContextFields(ctx)...).With(zap.String("user_id", user.ID))

	hash, err := s.hasher.Hash(password)
	if err != nil {
		log.Warn("rehash password failed", zap.Error(err))
		return
	}
	if err := s.users.Update(ctx, user.ID, domain.UserUpdate{PasswordHash: &hash}); err != nil {
		log.Warn("persist upgraded password hash failed", zap.Error(err))
		return
	}
	log.Info("password hash upgraded")
}

// OperationSelector chooses the protected operation once the token subject is known.
type OperationSelector func(subject string) string

// Authenticate gates a protected operation: the token must decode, its subject must be an active user,
// and its scopes must cover the operation.
func (s *AuthService) Authenticate(ctx context.Context, token, operation string) (*Principal, error) {
	return s.AuthenticateWith(ctx, token, func(string) string { return operation })
}

// AuthenticateWith behaves like Authenticate for an operation that depends on who the caller is.
func (s *AuthService) AuthenticateWith(ctx context.Context, token string, selectOperation OperationSelector) (*Principal, error) {
	operation := "unresolved"
	principal, err := s.authenticate(ctx, token, func(subject string) string {
		operation = selectOperation(subject)
		return operation
	})
	switch {
	case err == nil:
		s.metrics.ObserveAuthorization(operation, port.OutcomeSuccess)
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInactiveUser):
		s.metrics.ObserveAuthorization(operation, port.OutcomeDenied)
	default:
		s.metrics.ObserveAuthorization(operation, port.OutcomeFailure)
	}
	return principal, err
}

func (s *AuthService) authenticate(ctx context.Context, token string, selectOperation OperationSelector) (*Principal, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, err
	}
	operation := selectOperation(claims.Subject)

	user, err := s.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.Active {
		return nil, domain.ErrInactiveUser
	}

	if !Authorize(claims.Scopes, RequiredScopes(operation)) {
		return nil, domain.ErrInvalidCredentials
	}

	if s.recheck.applies(operation) {
		if err := s.authorizer.verifyUserScopes(ctx, claims.Scopes, user.ID); err != nil {
			return nil, err
		}
	}

	return &Principal{User: *user, Scopes: claims.Scopes, ExpiresAt: claims.ExpiresAt}, nil
}

// ChangePassword replaces the password of userID after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if newPassword == oldPassword {
		return fmt.Errorf("%w: new password must differ from the current one", domain.ErrValidationFailed)
	}

	pctx := port.PasswordContext{Username: user.Username, Phone: user.Phone, Current: oldPassword}
	if user.Email != nil {
		pctx.Email = *user.Email
	}
	if err := s.policy.Validate(newPassword, pctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.Update(ctx, user.ID, domain.UserUpdate{PasswordHash: &hash}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	if s.events != nil {
		event := domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			ChangedAt: s.now(),
			ChangedBy: user.ID,
		}
		publishBestEffort(ctx, s.logger, "password_changed", func() error {
			return s.events.PublishPasswordChanged(ctx, event)
		})
	}
	return nil
}
