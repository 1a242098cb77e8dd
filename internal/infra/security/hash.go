package security

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/arklim/signup-iam/internal/core/port"
)

// Hash schemes understood by PasswordHasher. Only SchemeArgon2id is used for new digests.
const (
	SchemeArgon2id     = "argon2id"
	SchemeArgon2Legacy = "argon2-legacy"
	SchemeBcrypt       = "bcrypt"
	SchemeUnknown      = "unknown"
)

// PasswordHasher hashes with Argon2id and verifies Argon2id, legacy salt:hash Argon2 and bcrypt digests.
type PasswordHasher struct {
	cfg Argon2Config
}

// NewPasswordHasher constructs a hasher producing Argon2id digests with cfg.
func NewPasswordHasher(cfg Argon2Config) (*PasswordHasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PasswordHasher{cfg: cfg}, nil
}

// Parameters returns the Argon2id parameters used for new digests.
func (h *PasswordHasher) Parameters() Argon2Config {
	return h.cfg
}

// Hash generates an Argon2id digest embedding its parameters, salt and hash.
func (h *PasswordHasher) Hash(password string) (string, error) {
	return hashArgon2(password, h.cfg)
}

// Verify reports whether password matches encoded. Malformed digests never match.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	if password == "" || encoded == "" {
		return false
	}

	switch Scheme(encoded) {
	case SchemeArgon2id:
		params, salt, expected, err := decodeStructuredHash(encoded)
		if err != nil {
			return false
		}
		return verifyArgon2(password, params, salt, expected)
	case SchemeArgon2Legacy:
		params, salt, expected, err := decodeLegacyArgon2Hash(encoded)
		if err != nil {
			return false
		}
		return verifyArgon2(password, params, salt, expected)
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether a digest that verified should be replaced by one in the preferred scheme.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	switch Scheme(encoded) {
	case SchemeArgon2Legacy, SchemeBcrypt:
		return true
	case SchemeArgon2id:
		params, _, _, err := decodeStructuredHash(encoded)
		if err != nil {
			return false
		}
		return params.Memory < h.cfg.Memory ||
			params.Iterations < h.cfg.Iterations ||
			params.Parallelism < h.cfg.Parallelism ||
			params.KeyLength < h.cfg.KeyLength
	default:
		return false
	}
}

// Scheme identifies the hashing scheme of an encoded digest.
func Scheme(encoded string) string {
	switch {
	case strings.HasPrefix(encoded, argon2Variant+"$"):
		return SchemeArgon2id
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return SchemeBcrypt
	case strings.Count(encoded, ":") == 1:
		return SchemeArgon2Legacy
	default:
		return SchemeUnknown
	}
}

var _ port.PasswordHasher = (*PasswordHasher)(nil)
