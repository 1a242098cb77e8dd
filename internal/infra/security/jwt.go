package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
)

// MinSecretLength is the minimum HMAC secret size accepted by the codec.
const MinSecretLength = 32

// DefaultAccessTokenTTL is applied when Issue receives a non-positive ttl.
const DefaultAccessTokenTTL = 30 * time.Minute

// ErrSecretTooShort indicates the configured signing secret is shorter than MinSecretLength.
var ErrSecretTooShort = errors.New("jwt: signing secret too short")

// AccessTokenClaims augments registered claims with the granted scopes.
type AccessTokenClaims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 bearer tokens with a process-wide secret.
type TokenCodec struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// TokenCodecOption customises a TokenCodec.
type TokenCodecOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec constructs a codec. The secret is copied and never changes afterwards.
func NewTokenCodec(secret []byte, defaultTTL time.Duration, opts ...TokenCodecOption) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrSecretTooShort, MinSecretLength)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultAccessTokenTTL
	}

	copied := make([]byte, len(secret))
	copy(copied, secret)

	codec := &TokenCodec{
		secret:     copied,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(codec)
	}

	codec.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(codec.now),
	)

	return codec, nil
}

// DefaultTTL returns the lifetime applied to tokens issued without an explicit ttl.
func (c *TokenCodec) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Issue signs a token for subject carrying scopes. It returns the token and its expiry.
func (c *TokenCodec) Issue(subject string, scopes []string, ttl time.Duration) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("jwt: subject is required")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now().UTC()
	expiresAt := now.Add(ttl)

	claims := &AccessTokenClaims{
		Scopes: normalizeScopes(scopes),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}

	// NumericDate truncates to whole seconds.
	return signed, claims.ExpiresAt.Time, nil
}

// Decode verifies the signature, algorithm and expiry of token and returns its claims.
func (c *TokenCodec) Decode(token string) (*domain.TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	claims := &AccessTokenClaims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}

	result := &domain.TokenClaims{
		Subject: subject,
		Scopes:  normalizeScopes(claims.Scopes),
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}

func normalizeScopes(input []string) []string {
	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, scope := range input {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if _, exists := seen[scope]; exists {
			continue
		}
		seen[scope] = struct{}{}
		result = append(result, scope)
	}
	return result
}

var _ port.TokenCodec = (*TokenCodec)(nil)
