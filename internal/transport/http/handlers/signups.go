package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/transport/http/middleware"
)

// SignupReviewer handles the administrative side of pending signups.
type SignupReviewer interface {
	ListPendingUsers(ctx context.Context) ([]domain.PublicPendingUser, error)
	Approve(ctx context.Context, username, approvedBy string) (*domain.PublicUser, error)
	DeleteSignup(ctx context.Context, username, deletedBy string) error
}

// SignupHandler exposes pending signup review endpoints.
type SignupHandler struct {
	reviewer SignupReviewer
}

// NewSignupHandler constructs SignupHandler.
func NewSignupHandler(reviewer SignupReviewer) *SignupHandler {
	return &SignupHandler{reviewer: reviewer}
}

// List godoc
// @Summary List pending signups
// @Tags Signups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} PendingUserListResponse
// @Router /api/v1/signups [get]
func (h *SignupHandler) List(c *gin.Context) {
	pending, err := h.reviewer.ListPendingUsers(c.Request.Context())
	if err != nil {
		respondDomainError(c, err, "failed to list signups")
		return
	}

	resp := PendingUserListResponse{Signups: make([]PendingUserPayload, 0, len(pending)), Total: len(pending)}
	for _, user := range pending {
		resp.Signups = append(resp.Signups, newPendingUserPayload(user))
	}
	c.JSON(http.StatusOK, resp)
}

// Approve godoc
// @Summary Approve a pending signup
// @Description Converts the signup into a validated user holding the default grants.
// @Tags Signups
// @Produce json
// @Security BearerAuth
// @Param username path string true "Pending username"
// @Success 201 {object} UserPayload
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/signups/{username}/approve [post]
func (h *SignupHandler) Approve(c *gin.Context) {
	user, err := h.reviewer.Approve(c.Request.Context(), c.Param("username"), callerID(c))
	if err != nil {
		respondDomainError(c, err, "failed to approve signup")
		return
	}

	c.JSON(http.StatusCreated, newUserPayload(*user))
}

// Delete godoc
// @Summary Reject a pending signup
// @Tags Signups
// @Security BearerAuth
// @Param username path string true "Pending username"
// @Success 204 {string} string ""
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/signups/{username} [delete]
func (h *SignupHandler) Delete(c *gin.Context) {
	if err := h.reviewer.DeleteSignup(c.Request.Context(), c.Param("username"), callerID(c)); err != nil {
		respondDomainError(c, err, "failed to delete signup")
		return
	}

	c.Status(http.StatusNoContent)
}

func callerID(c *gin.Context) string {
	if principal, ok := middleware.GetPrincipal(c); ok {
		return principal.User.ID
	}
	return ""
}
