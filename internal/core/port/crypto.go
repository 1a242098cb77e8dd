package port

import (
	"time"

	"github.com/arklim/signup-iam/internal/core/domain"
)

// PasswordHasher hashes and verifies secrets. Verify never fails loudly: malformed digests simply do not match.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
	NeedsRehash(encoded string) bool
}

// PasswordPolicyValidator enforces password complexity requirements.
type PasswordPolicyValidator interface {
	Validate(password string, ctx PasswordContext) error
}

// PasswordContext carries user attributes a password must not repeat.
type PasswordContext struct {
	Username string
	Email    string
	Phone    string
	Current  string
}

// TokenCodec issues and decodes signed bearer tokens.
type TokenCodec interface {
	Issue(subject string, scopes []string, ttl time.Duration) (string, time.Time, error)
	Decode(token string) (*domain.TokenClaims, error)
}
