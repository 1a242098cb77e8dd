package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// SignupRequest defines the account signup payload. Email is optional.
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
	Phone    string `json:"phone" binding:"required"`
}

// LoginRequest accepts credentials as JSON or as an OAuth2 password-grant form.
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// LoginResponse describes the bearer token returned for a successful login.
type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	Scopes      []string `json:"scopes"`
}

// PasswordChangeRequest captures a password change request body.
type PasswordChangeRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ActivationRequest toggles whether a validated user may use protected operations.
type ActivationRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ProfileRequest creates the caller's profile. Birthday uses the YYYY-MM-DD layout.
type ProfileRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Birthday  string `json:"birthday" binding:"required"`
	Gender    string `json:"gender" binding:"required"`
}

// ProfileUpdateRequest changes the provided fields of the caller's profile.
type ProfileUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Birthday  *string `json:"birthday"`
	Gender    *string `json:"gender"`
}

// PendingUserPayload is the API view of a signup awaiting approval.
type PendingUserPayload struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"email,omitempty"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPayload is the API view of a validated user.
type UserPayload struct {
	ID           string           `json:"id"`
	Username     string           `json:"username"`
	Email        *string          `json:"email,omitempty"`
	Phone        string           `json:"phone"`
	Active       bool             `json:"active"`
	State        domain.UserState `json:"state"`
	CreatedAt    time.Time        `json:"created_at"`
	RegisteredAt time.Time        `json:"registered_at"`
}

// ProfilePayload is the API view of a user profile.
type ProfilePayload struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Birthday  string        `json:"birthday"`
	Gender    domain.Gender `json:"gender"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CurrentUserResponse describes the caller of GET /auth/me.
type CurrentUserResponse struct {
	User      UserPayload `json:"user"`
	Scopes    []string    `json:"scopes"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// PendingUserListResponse wraps pending signups.
type PendingUserListResponse struct {
	Signups []PendingUserPayload `json:"signups"`
	Total   int                  `json:"total"`
}

// UserListResponse wraps validated users.
type UserListResponse struct {
	Users []UserPayload `json:"users"`
	Total int           `json:"total"`
}

// PermissionsResponse lists the permission names granted to a user.
type PermissionsResponse struct {
	Username    string   `json:"username"`
	Permissions []string `json:"permissions"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func newPendingUserPayload(user domain.PublicPendingUser) PendingUserPayload {
	return PendingUserPayload{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
	}
}

func newUserPayload(user domain.PublicUser) UserPayload {
	return UserPayload{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Phone:        user.Phone,
		Active:       user.Active,
		State:        user.State,
		CreatedAt:    user.CreatedAt,
		RegisteredAt: user.RegisteredAt,
	}
}

func newProfilePayload(profile domain.Profile) ProfilePayload {
	return ProfilePayload{
		ID:        profile.ID,
		UserID:    profile.UserID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Birthday:  profile.Birthday.Format(birthdayLayout),
		Gender:    profile.Gender,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
