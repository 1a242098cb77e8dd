package domain

import "time"

// UserState enumerates the lifecycle states of an identity.
type UserState string

const (
	UserStatePending  UserState = "pending"
	UserStateActive   UserState = "active"
	UserStateInactive UserState = "inactive"
)

// PendingUser mirrors a signup awaiting administrative approval.
type PendingUser struct {
	ID           string
	Username     string
	PasswordHash string
	Email        *string
	Phone        string
	CreatedAt    time.Time
}

// ValidatedUser mirrors an approved account able to log in.
type ValidatedUser struct {
	ID           string
	Username     string
	PasswordHash string
	Email        *string
	Phone        string
	Active       bool
	CreatedAt    time.Time
	RegisteredAt time.Time
}

// State reports the lifecycle state of the validated user.
func (u ValidatedUser) State() UserState {
	if u.Active {
		return UserStateActive
	}
	return UserStateInactive
}

// UserUpdate carries the mutable fields of a validated user. Nil fields are left untouched.
type UserUpdate struct {
	PasswordHash *string
	Active       *bool
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.PasswordHash == nil && u.Active == nil
}

// SignupCandidate is the raw input of a signup request.
type SignupCandidate struct {
	Username string
	Password string
	Email    string
	Phone    string
}

// PublicPendingUser is the outward view of a pending signup (no credential material).
type PublicPendingUser struct {
	ID        string
	Username  string
	Email     *string
	Phone     string
	CreatedAt time.Time
}

// PublicUser is the outward view of a validated user (no credential material).
type PublicUser struct {
	ID           string
	Username     string
	Email        *string
	Phone        string
	Active       bool
	State        UserState
	CreatedAt    time.Time
	RegisteredAt time.Time
}

// Public strips credential material from the pending user.
func (u PendingUser) Public() PublicPendingUser {
	return PublicPendingUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

// Public strips credential material from the validated user.
func (u ValidatedUser) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Phone:        u.Phone,
		Active:       u.Active,
		State:        u.State(),
		CreatedAt:    u.CreatedAt,
		RegisteredAt: u.RegisteredAt,
	}
}
