package domain

import "time"

// TokenClaims is the decoded content of a bearer token.
type TokenClaims struct {
	Subject   string
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is returned to a caller after a successful login.
type IssuedToken struct {
	AccessToken string
	TokenType   string
	Scopes      []string
	ExpiresAt   time.Time
}
