package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/signup-iam/internal/core/domain"
	"github.com/arklim/signup-iam/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// Authenticator gates protected operations behind a bearer token.
type Authenticator interface {
	AuthenticateWith(ctx context.Context, token string, selectOperation usecase.OperationSelector) (*usecase.Principal, error)
}

// OperationFunc picks the protected operation for a request once the token subject is known.
type OperationFunc func(c *gin.Context, subject string) string

// RequireOperation authenticates the bearer token and authorizes it for a fixed operation.
func RequireOperation(auth Authenticator, operation string) gin.HandlerFunc {
	return RequireOperationFunc(auth, func(*gin.Context, string) string { return operation })
}

// SelfOrOperation selects selfOp when the path parameter names the caller and otherOp otherwise.
func SelfOrOperation(param, selfOp, otherOp string) OperationFunc {
	return func(c *gin.Context, subject string) string {
		if strings.EqualFold(strings.TrimSpace(c.Param(param)), subject) {
			return selfOp
		}
		return otherOp
	}
}

// RequireOperationFunc authenticates the bearer token and authorizes it for the operation chosen per request.
func RequireOperationFunc(auth Authenticator, operation OperationFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "missing or malformed bearer token")
			return
		}

		principal, err := auth.AuthenticateWith(c.Request.Context(), token, func(subject string) string {
			return operation(c, subject)
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidToken):
				unauthorized(c, "invalid token")
			case errors.Is(err, domain.ErrInvalidCredentials):
				unauthorized(c, "could not validate credentials")
			case errors.Is(err, domain.ErrInactiveUser):
				c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, "inactive user"))
			default:
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(PrincipalKey, principal)
		GetRequestContext(c).Username = principal.User.Username

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, message))
}

// GetPrincipal retrieves the authenticated caller stored by RequireOperation.
func GetPrincipal(c *gin.Context) (*usecase.Principal, bool) {
	value, exists := c.Get(PrincipalKey)
	if !exists {
		return nil, false
	}
	principal, ok := value.(*usecase.Principal)
	return principal, ok
}
