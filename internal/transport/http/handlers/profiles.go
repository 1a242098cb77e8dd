package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/signup-iam/internal/core/domain"
)

const birthdayLayout = "2006-01-02"

// ProfileManager manages the profile attached to a validated user.
type ProfileManager interface {
	CreateProfile(ctx context.Context, userID string, input domain.ProfileInput) (*domain.Profile, error)
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error)
	DeleteProfile(ctx context.Context, profileID, deletedBy string) error
}

// ProfileHandler exposes the account profile endpoints.
type ProfileHandler struct {
	profiles ProfileManager
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles ProfileManager) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Create godoc
// @Summary Create the caller's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileRequest true "Profile details"
// @Success 201 {object} ProfilePayload
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/account/profile [post]
func (h *ProfileHandler) Create(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "first_name, last_name, birthday and gender are required"))
		return
	}

	birthday, err := time.Parse(birthdayLayout, req.Birthday)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "birthday must use the YYYY-MM-DD format"))
		return
	}

	profile, err := h.profiles.CreateProfile(c.Request.Context(), callerID(c), domain.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Birthday:  birthday,
		Gender:    domain.Gender(req.Gender),
	})
	if err != nil {
		respondDomainError(c, err, "failed to create profile")
		return
	}

	c.JSON(http.StatusCreated, newProfilePayload(*profile))
}

// Get godoc
// @Summary Read the caller's profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfilePayload
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/account/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.profiles.GetProfile(c.Request.Context(), callerID(c))
	if err != nil {
		respondDomainError(c, err, "failed to read profile")
		return
	}

	c.JSON(http.StatusOK, newProfilePayload(*profile))
}

// Update godoc
// @Summary Update the caller's profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileUpdateRequest true "Fields to change"
// @Success 200 {object} ProfilePayload
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/account/profile [patch]
func (h *ProfileHandler) Update(c *gin.Context) {
	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request body"))
		return
	}

	update := domain.ProfileUpdate{FirstName: req.FirstName, LastName: req.LastName}
	if req.Birthday != nil {
		birthday, err := time.Parse(birthdayLayout, *req.Birthday)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "birthday must use the YYYY-MM-DD format"))
			return
		}
		update.Birthday = &birthday
	}
	if req.Gender != nil {
		gender := domain.Gender(*req.Gender)
		update.Gender = &gender
	}

	profile, err := h.profiles.UpdateProfile(c.Request.Context(), callerID(c), update)
	if err != nil {
		respondDomainError(c, err, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newProfilePayload(*profile))
}

// Delete godoc
// @Summary Delete a profile
// @Description Administrative removal of any user's profile by id.
// @Tags Profile
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Success 204 {string} string ""
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/account/profile/{id} [delete]
func (h *ProfileHandler) Delete(c *gin.Context) {
	if err := h.profiles.DeleteProfile(c.Request.Context(), c.Param("id"), callerID(c)); err != nil {
		respondDomainError(c, err, "failed to delete profile")
		return
	}

	c.Status(http.StatusNoContent)
}
