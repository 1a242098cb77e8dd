package domain

import "time"

// UserSignedUpEvent represents the payload for iam.user.signed_up messages.
type UserSignedUpEvent struct {
	EventID   string
	UserID    string
	Username  string
	Email     *string
	Phone     string
	CreatedAt time.Time
}

// UserApprovedEvent represents the payload for iam.user.approved messages.
type UserApprovedEvent struct {
	EventID       string
	UserID        string
	Username      string
	GrantedScopes []string
	ApprovedBy    string
	RegisteredAt  time.Time
}

// PasswordChangedEvent represents the payload for iam.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	ChangedBy string
}

// UserDeletedEvent represents the payload for iam.user.deleted and iam.signup.deleted messages.
type UserDeletedEvent struct {
	EventID   string
	UserID    string
	Username  string
	State     UserState
	DeletedBy string
	DeletedAt time.Time
}

// PermissionsChangedEvent represents the payload for iam.user.permissions.changed messages.
type PermissionsChangedEvent struct {
	EventID   string
	UserID    string
	Username  string
	Added     []string
	Removed   []string
	ChangedBy string
	ChangedAt time.Time
}

// UserActivationChangedEvent represents the payload for iam.user.activation.changed messages.
type UserActivationChangedEvent struct {
	EventID   string
	UserID    string
	Username  string
	Active    bool
	ChangedBy string
	ChangedAt time.Time
}
