package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/transport/http/middleware"
)

// Registrar accepts new signups.
type Registrar interface {
	Signup(ctx context.Context, candidate domain.SignupCandidate) (*domain.PublicPendingUser, error)
}

// CredentialService verifies and changes credentials.
type CredentialService interface {
	Login(ctx context.Context, username, password string) (*domain.IssuedToken, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// AuthHandler exposes the self-service authentication endpoints.
type AuthHandler struct {
	registrar   Registrar
	credentials CredentialService
	now         func() time.Time
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(registrar Registrar, credentials CredentialService) *AuthHandler {
	return &AuthHandler{
		registrar:   registrar,
		credentials: credentials,
		now:         time.Now,
	}
}

// Signup godoc
// @Summary Request a new account
// @Description Stores a pending signup that an administrator must approve before login is possible.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup payload"
// @Success 201 {object} PendingUserPayload
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid signup payload"))
		return
	}

	pending, err := h.registrar.Signup(c.Request.Context(), domain.SignupCandidate{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		respondDomainError(c, err, "failed to register signup")
		return
	}

	c.JSON(http.StatusCreated, newPendingUserPayload(*pending))
}

// Login godoc
// @Summary Exchange credentials for a bearer token
// @Description Accepts JSON or an OAuth2 password-grant form. The token carries the user's current grants as scopes.
// @Tags Authentication
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		return
	}

	token, err := h.credentials.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondDomainError(c, err, "failed to login")
		return
	}

	expiresIn := int(token.ExpiresAt.Sub(h.now()).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   expiresIn,
		Scopes:      nonNil(token.Scopes),
	})
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CurrentUserResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, CurrentUserResponse{
		User:      newUserPayload(principal.User.Public()),
		Scopes:    nonNil(principal.Scopes),
		ExpiresAt: principal.ExpiresAt,
	})
}

// ChangePassword godoc
// @Summary Change the caller's password
// @Tags Authentication
// @Accept json
// @Security BearerAuth
// @Param request body PasswordChangeRequest true "Old and new password"
// @Success 204 {string} string ""
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/password [patch]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "old_password and new_password are required"))
		return
	}

	if err := h.credentials.ChangePassword(c.Request.Context(), principal.User.ID, req.OldPassword, req.NewPassword); err != nil {
		respondDomainError(c, err, "failed to change password")
		return
	}

	c.Status(http.StatusNoContent)
}
