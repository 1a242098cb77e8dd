package domain

import "time"

// Well-known scope names.
const (
	ScopeAdminRead  = "admin:read"
	ScopeAdminWrite = "admin:write"
	ScopeUserRead   = "user:read"
	ScopeUserWrite  = "user:write"
)

// DefaultGrantedScopes are granted to every user on approval.
var DefaultGrantedScopes = []string{ScopeUserRead, ScopeUserWrite}

// Permission defines a named capability.
type Permission struct {
	ID          string
	Name        string
	Description *string
}

// PermissionGrant links a validated user with a permission.
type PermissionGrant struct {
	PermissionID string
	UserID       string
	GrantedAt    time.Time
}
