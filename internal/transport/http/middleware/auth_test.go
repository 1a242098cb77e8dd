package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/usecase"
)

type stubAuthenticator struct {
	subject   string
	err       error
	gotToken  string
	operation string
}

func (s *stubAuthenticator) AuthenticateWith(ctx context.Context, token string, selectOperation usecase.OperationSelector) (*usecase.Principal, error) {
	s.gotToken = token
	s.operation = selectOperation(s.subject)
	if s.err != nil {
		return nil, s.err
	}
	return &usecase.Principal{User: domain.ValidatedUser{ID: "u-1", Username: s.subject, Active: true}}, nil
}

func newProtectedRouter(auth Authenticator, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(EnrichContext())
	router.GET("/api/v1/users/:username/permissions", handler, func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, principal.User.Username)
	})
	return router
}

func TestRequireOperationStoresPrincipal(t *testing.T) {
	auth := &stubAuthenticator{subject: "alice"}
	router := newProtectedRouter(auth, RequireOperation(auth, usecase.OpUserList))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/bob/permissions", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", rr.Body.String())
	assert.Equal(t, "abc.def.ghi", auth.gotToken)
	assert.Equal(t, usecase.OpUserList, auth.operation)
}

func TestRequireOperationRejectsMissingToken(t *testing.T) {
	auth := &stubAuthenticator{subject: "alice"}
	router := newProtectedRouter(auth, RequireOperation(auth, usecase.OpUserList))

	for _, header := range []string{"", "Basic Zm9vOmJhcg==", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/bob/permissions", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "header %q", header)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
		assert.Empty(t, auth.gotToken)
	}
}

func TestRequireOperationMapsErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid token", domain.ErrInvalidToken, http.StatusUnauthorized},
		{"insufficient scopes", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"inactive user", domain.ErrInactiveUser, http.StatusForbidden},
		{"store failure", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &stubAuthenticator{subject: "alice", err: tc.err}
			router := newProtectedRouter(auth, RequireOperation(auth, usecase.OpUserList))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/bob/permissions", nil)
			req.Header.Set("Authorization", "Bearer token")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tc.status, rr.Code)
			assert.Contains(t, rr.Body.String(), `"trace_id"`)
		})
	}
}

func TestSelfOrOperationChoosesByPathParameter(t *testing.T) {
	selector := SelfOrOperation("username", usecase.OpProfileRead, usecase.OpPermissionRead)

	cases := map[string]string{
		"/api/v1/users/alice/permissions": usecase.OpProfileRead,
		"/api/v1/users/ALICE/permissions": usecase.OpProfileRead,
		"/api/v1/users/bob/permissions":   usecase.OpPermissionRead,
	}
	for path, want := range cases {
		auth := &stubAuthenticator{subject: "alice"}
		router := newProtectedRouter(auth, RequireOperationFunc(auth, selector))

		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer token")
		router.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, want, auth.operation, path)
	}
}
