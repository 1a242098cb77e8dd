package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arklim/signup-iam/internal/core/domain"
)

func setupProfileRouter(t *testing.T) (*mockProfiles, http.Handler) {
	t.Helper()
	profiles := &mockProfiles{}
	t.Cleanup(func() { profiles.AssertExpectations(t) })

	handler := NewProfileHandler(profiles)
	router := newTestRouter()
	group := router.Group("/api/v1/account/profile", withPrincipal(adminPrincipal()))
	group.POST("", handler.Create)
	group.GET("", handler.Get)
	group.PATCH("", handler.Update)
	group.DELETE("/:id", handler.Delete)
	return profiles, router
}

func sampleProfile() *domain.Profile {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Profile{
		ID:        "profile-1",
		UserID:    adminID,
		FirstName: "Alice",
		LastName:  "Liddell",
		Birthday:  time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC),
		Gender:    domain.GenderFemale,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func profileBody(birthday string) map[string]string {
	return map[string]string{
		"first_name": "Alice",
		"last_name":  "Liddell",
		"birthday":   birthday,
		"gender":     "female",
	}
}

func TestProfileHandlerCreate(t *testing.T) {
	profiles, router := setupProfileRouter(t)
	profiles.On("CreateProfile", mock.Anything, adminID, domain.ProfileInput{
		FirstName: "Alice",
		LastName:  "Liddell",
		Birthday:  time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC),
		Gender:    domain.GenderFemale,
	}).Return(sampleProfile(), nil).Once()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/v1/account/profile", profileBody("1990-05-17")))

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp ProfilePayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "profile-1", resp.ID)
	assert.Equal(t, "1990-05-17", resp.Birthday)
	assert.Equal(t, domain.GenderFemale, resp.Gender)
}

func TestProfileHandlerCreateRejectsBadBirthday(t *testing.T) {
	_, router := setupProfileRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/v1/account/profile", profileBody("17/05/1990")))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProfileHandlerCreateConflict(t *testing.T) {
	profiles, router := setupProfileRouter(t)
	profiles.On("CreateProfile", mock.Anything, adminID, mock.Anything).
		Return(nil, domain.ErrProfileAlreadyExists).Once()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPost, "/api/v1/account/profile", profileBody("1990-05-17")))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "profile already exists")
}

func TestProfileHandlerGetMissing(t *testing.T) {
	profiles, router := setupProfileRouter(t)
	profiles.On("GetProfile", mock.Anything, adminID).Return(nil, domain.ErrProfileNotFound).Once()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/account/profile", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestProfileHandlerUpdate(t *testing.T) {
	profiles, router := setupProfileRouter(t)
	updated := sampleProfile()
	updated.LastName = "Hargreaves"
	profiles.On("UpdateProfile", mock.Anything, adminID, mock.MatchedBy(func(update domain.ProfileUpdate) bool {
		return update.LastName != nil && *update.LastName == "Hargreaves" &&
			update.FirstName == nil && update.Birthday == nil && update.Gender == nil
	})).Return(updated, nil).Once()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, jsonRequest(t, http.MethodPatch, "/api/v1/account/profile", map[string]string{"last_name": "Hargreaves"}))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp ProfilePayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Hargreaves", resp.LastName)
}

func TestProfileHandlerDelete(t *testing.T) {
	profiles, router := setupProfileRouter(t)
	profiles.On("DeleteProfile", mock.Anything, "profile-1", adminID).Return(nil).Once()
	profiles.On("DeleteProfile", mock.Anything, "missing", adminID).Return(domain.ErrProfileNotFound).Once()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/account/profile/profile-1", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/account/profile/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
