package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/core/port"
	"github.com/arklim/signup-iam/internal/repository"
)

// Protected operations gated by scopes.
const (
	OpProfileRead      = "profile:read"
	OpProfileWrite     = "profile:write"
	OpProfileDelete    = "profile:delete"
	OpPasswordChange   = "password:change"
	OpSignupList       = "signup:list"
	OpSignupApprove    = "signup:approve"
	OpSignupDelete     = "signup:delete"
	OpUserList         = "user:list"
	OpUserDelete       = "user:delete"
	OpUserActivation   = "user:activation"
	OpPermissionRead   = "permission:read"
	OpPermissionGrant  = "permission:grant"
	OpPermissionRevoke = "permission:revoke"
)

// unsatisfiableScope is never granted, so operations missing from the table are always denied.
const unsatisfiableScope = "\x00unknown-operation"

type operationRule struct {
	scopes []string
	write  bool
}

var operationRules = map[string]operationRule{
	OpProfileRead:      {scopes: []string{domain.ScopeUserRead, domain.ScopeUserWrite}},
	OpProfileWrite:     {scopes: []string{domain.ScopeUserRead, domain.ScopeUserWrite}, write: true},
	OpProfileDelete:    {scopes: []string{domain.ScopeAdminWrite}, write: true},
	OpPasswordChange:   {scopes: []string{domain.ScopeUserRead, domain.ScopeUserWrite}, write: true},
	OpSignupList:       {scopes: []string{domain.ScopeAdminRead}},
	OpSignupApprove:    {scopes: []string{domain.ScopeAdminWrite}, write: true},
	OpSignupDelete:     {scopes: []string{domain.ScopeAdminWrite}, write: true},
	OpUserList:         {scopes: []string{domain.ScopeAdminRead}},
	OpUserDelete:       {scopes: []string{domain.ScopeAdminRead, domain.ScopeAdminWrite}, write: true},
	OpUserActivation:   {scopes: []string{domain.ScopeAdminWrite}, write: true},
	OpPermissionRead:   {scopes: []string{domain.ScopeAdminRead}},
	OpPermissionGrant:  {scopes: []string{domain.ScopeAdminWrite}, write: true},
	OpPermissionRevoke: {scopes: []string{domain.ScopeAdminWrite}, write: true},
}

// RequiredScopes returns the scopes an operation demands. Unknown operations get an unsatisfiable requirement.
func RequiredScopes(operation string) []string {
	rule, ok := operationRules[operation]
	if !ok {
		return []string{unsatisfiableScope}
	}
	return append([]string(nil), rule.scopes...)
}

// IsWriteOperation reports whether the operation mutates state.
func IsWriteOperation(operation string) bool {
	return operationRules[operation].write
}

// Authorize reports whether every required scope is present in tokenScopes.
func Authorize(tokenScopes, required []string) bool {
	held := make(map[string]struct{}, len(tokenScopes))
	for _, scope := range tokenScopes {
		held[scope] = struct{}{}
	}
	for _, scope := range required {
		if _, ok := held[scope]; !ok {
			return false
		}
	}
	return true
}

// ScopeAuthorizer resolves scopes from the permission grants held in the credential store.
type ScopeAuthorizer struct {
	users       port.UserRepository
	permissions port.PermissionRepository
}

// NewScopeAuthorizer constructs a ScopeAuthorizer.
func NewScopeAuthorizer(users port.UserRepository, permissions port.PermissionRepository) *ScopeAuthorizer {
	return &ScopeAuthorizer{users: users, permissions: permissions}
}

// ResolveGrantedScopes returns the sorted permission names currently granted to username.
func (a *ScopeAuthorizer) ResolveGrantedScopes(ctx context.Context, username string) ([]string, error) {
	user, err := a.users.GetByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return a.grantedScopes(ctx, user.ID)
}

// VerifyScopes fails with ErrInvalidCredentials unless every scope is backed by a grant of username.
func (a *ScopeAuthorizer) VerifyScopes(ctx context.Context, scopes []string, username string) error {
	granted, err := a.ResolveGrantedScopes(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}
	if !Authorize(granted, scopes) {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (a *ScopeAuthorizer) verifyUserScopes(ctx context.Context, scopes []string, userID string) error {
	granted, err := a.grantedScopes(ctx, userID)
	if err != nil {
		return err
	}
	if !Authorize(granted, scopes) {
		return domain.ErrInvalidCredentials
	}
	return nil
}

func (a *ScopeAuthorizer) grantedScopes(ctx context.Context, userID string) ([]string, error) {
	grants, err := a.permissions.ListGrantsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}

	seen := make(map[string]struct{}, len(grants))
	scopes := make([]string, 0, len(grants))
	for _, grant := range grants {
		permission, err := a.permissions.GetByID(ctx, grant.PermissionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("lookup permission %s: %w", grant.PermissionID, err)
		}
		if _, dup := seen[permission.Name]; dup {
			continue
		}
		seen[permission.Name] = struct{}{}
		scopes = append(scopes, permission.Name)
	}
	sort.Strings(scopes)
	return scopes, nil
}
