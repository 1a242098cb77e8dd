package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/signup-iam/internal/core/domain"
)

// UserDirectory manages validated users and their grants.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]domain.PublicUser, error)
	DeleteUser(ctx context.Context, username, deletedBy string) error
	SetActive(ctx context.Context, username string, active bool, changedBy string) (*domain.PublicUser, error)
	GetUserPermissions(ctx context.Context, username string) ([]string, error)
	GrantPermission(ctx context.Context, username, permissionName, changedBy string) ([]string, error)
	RevokePermission(ctx context.Context, username, permissionName, changedBy string) ([]string, error)
}

// UserHandler exposes user administration endpoints.
type UserHandler struct {
	users UserDirectory
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users UserDirectory) *UserHandler {
	return &UserHandler{users: users}
}

// List godoc
// @Summary List validated users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserListResponse
// @Router /api/v1/users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		respondDomainError(c, err, "failed to list users")
		return
	}

	resp := UserListResponse{Users: make([]UserPayload, 0, len(users)), Total: len(users)}
	for _, user := range users {
		resp.Users = append(resp.Users, newUserPayload(user))
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary Delete a validated user and its grants
// @Tags Users
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 204 {string} string ""
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{username} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.DeleteUser(c.Request.Context(), c.Param("username"), callerID(c)); err != nil {
		respondDomainError(c, err, "failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}

// SetActivation godoc
// @Summary Enable or disable a validated user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Param request body ActivationRequest true "Desired state"
// @Success 200 {object} UserPayload
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{username}/activation [patch]
func (h *UserHandler) SetActivation(c *gin.Context) {
	var req ActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "active is required"))
		return
	}

	user, err := h.users.SetActive(c.Request.Context(), c.Param("username"), *req.Active, callerID(c))
	if err != nil {
		respondDomainError(c, err, "failed to change activation")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(*user))
}

// Permissions godoc
// @Summary List a user's granted permissions
// @Description Callers may read their own grants; reading another user's grants requires permission:read.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Success 200 {object} PermissionsResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{username}/permissions [get]
func (h *UserHandler) Permissions(c *gin.Context) {
	username := c.Param("username")
	permissions, err := h.users.GetUserPermissions(c.Request.Context(), username)
	if err != nil {
		respondDomainError(c, err, "failed to read permissions")
		return
	}

	c.JSON(http.StatusOK, PermissionsResponse{Username: username, Permissions: nonNil(permissions)})
}

// Grant godoc
// @Summary Grant a permission
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Param permission path string true "Permission name"
// @Success 200 {object} PermissionsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{username}/permissions/{permission} [post]
func (h *UserHandler) Grant(c *gin.Context) {
	h.changePermission(c, h.users.GrantPermission, "failed to grant permission")
}

// Revoke godoc
// @Summary Revoke a permission
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param username path string true "Username"
// @Param permission path string true "Permission name"
// @Success 200 {object} PermissionsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/users/{username}/permissions/{permission} [delete]
func (h *UserHandler) Revoke(c *gin.Context) {
	h.changePermission(c, h.users.RevokePermission, "failed to revoke permission")
}

func (h *UserHandler) changePermission(
	c *gin.Context,
	change func(ctx context.Context, username, permissionName, changedBy string) ([]string, error),
	failure string,
) {
	username := c.Param("username")
	permissions, err := change(c.Request.Context(), username, c.Param("permission"), callerID(c))
	if err != nil {
		respondDomainError(c, err, failure)
		return
	}

	c.JSON(http.StatusOK, PermissionsResponse{Username: username, Permissions: nonNil(permissions)})
}
