package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/transport/http/middleware"
	"github.com/arklim/signup-iam/internal/usecase"
)

type mockRegistrar struct{ mock.Mock }

func (m *mockRegistrar) Signup(ctx context.Context, candidate domain.SignupCandidate) (*domain.PublicPendingUser, error) {
	args := m.Called(ctx, candidate)
	pending, _ := args.Get(0).(*domain.PublicPendingUser)
	return pending, args.Error(1)
}

type mockCredentials struct{ mock.Mock }

func (m *mockCredentials) Login(ctx context.Context, username, password string) (*domain.IssuedToken, error) {
	args := m.Called(ctx, username, password)
	token, _ := args.Get(0).(*domain.IssuedToken)
	return token, args.Error(1)
}

func (m *mockCredentials) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	return m.Called(ctx, userID, oldPassword, newPassword).Error(0)
}

type mockReviewer struct{ mock.Mock }

func (m *mockReviewer) ListPendingUsers(ctx context.Context) ([]domain.PublicPendingUser, error) {
	args := m.Called(ctx)
	pending, _ := args.Get(0).([]domain.PublicPendingUser)
	return pending, args.Error(1)
}

func (m *mockReviewer) Approve(ctx context.Context, username, approvedBy string) (*domain.PublicUser, error) {
	args := m.Called(ctx, username, approvedBy)
	user, _ := args.Get(0).(*domain.PublicUser)
	return user, args.Error(1)
}

func (m *mockReviewer) DeleteSignup(ctx context.Context, username, deletedBy string) error {
	return m.Called(ctx, username, deletedBy).Error(0)
}

type mockDirectory struct{ mock.Mock }

func (m *mockDirectory) ListUsers(ctx context.Context) ([]domain.PublicUser, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]domain.PublicUser)
	return users, args.Error(1)
}

func (m *mockDirectory) DeleteUser(ctx context.Context, username, deletedBy string) error {
	return m.Called(ctx, username, deletedBy).Error(0)
}

func (m *mockDirectory) SetActive(ctx context.Context, username string, active bool, changedBy string) (*domain.PublicUser, error) {
	args := m.Called(ctx, username, active, changedBy)
	user, _ := args.Get(0).(*domain.PublicUser)
	return user, args.Error(1)
}

func (m *mockDirectory) GetUserPermissions(ctx context.Context, username string) ([]string, error) {
	args := m.Called(ctx, username)
	perms, _ := args.Get(0).([]string)
	return perms, args.Error(1)
}

func (m *mockDirectory) GrantPermission(ctx context.Context, username, permissionName, changedBy string) ([]string, error) {
	args := m.Called(ctx, username, permissionName, changedBy)
	perms, _ := args.Get(0).([]string)
	return perms, args.Error(1)
}

func (m *mockDirectory) RevokePermission(ctx context.Context, username, permissionName, changedBy string) ([]string, error) {
	args := m.Called(ctx, username, permissionName, changedBy)
	perms, _ := args.Get(0).([]string)
	return perms, args.Error(1)
}

type mockProfiles struct{ mock.Mock }

func (m *mockProfiles) CreateProfile(ctx context.Context, userID string, input domain.ProfileInput) (*domain.Profile, error) {
	args := m.Called(ctx, userID, input)
	profile, _ := args.Get(0).(*domain.Profile)
	return profile, args.Error(1)
}

func (m *mockProfiles) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*domain.Profile)
	return profile, args.Error(1)
}

func (m *mockProfiles) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	args := m.Called(ctx, userID, update)
	profile, _ := args.Get(0).(*domain.Profile)
	return profile, args.Error(1)
}

func (m *mockProfiles) DeleteProfile(ctx context.Context, profileID, deletedBy string) error {
	return m.Called(ctx, profileID, deletedBy).Error(0)
}

const adminID = "0b0e8c4e-8d4b-4c43-9b38-8ef8a0b1c001"

func adminPrincipal() *usecase.Principal {
	return &usecase.Principal{
		User:   domain.ValidatedUser{ID: adminID, Username: "root", Active: true},
		Scopes: []string{domain.ScopeAdminRead, domain.ScopeAdminWrite, domain.ScopeUserRead, domain.ScopeUserWrite},
	}
}

// withPrincipal stands in for RequireOperation in handler tests.
func withPrincipal(principal *usecase.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.PrincipalKey, principal)
		c.Next()
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.EnrichContext())
	return router
}
