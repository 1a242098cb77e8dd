package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/signup-iam/internal/core/domain"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// domainErrorCases covers the auth core error vocabulary. Order matters only for wrapped chains.
var domainErrorCases = []ErrorCase{
	{Err: domain.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "could not validate credentials"},
	{Err: domain.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "invalid token"},
	{Err: domain.ErrInactiveUser, Status: http.StatusForbidden, Message: "inactive user"},
	{Err: domain.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
	{Err: domain.ErrProfileNotFound, Status: http.StatusNotFound, Message: "profile not found"},
	{Err: domain.ErrProfileAlreadyExists, Status: http.StatusConflict, Message: "profile already exists"},
	{Err: domain.ErrUserAlreadyExists, Status: http.StatusConflict, Message: "user already exists"},
	{Err: domain.ErrUserNotValid, Status: http.StatusConflict, Message: "user pending validation"},
	{Err: domain.ErrEmailAlreadyUsed, Status: http.StatusConflict, Message: "email already used"},
	{Err: domain.ErrPhoneAlreadyUsed, Status: http.StatusConflict, Message: "phone already used"},
	{Err: domain.ErrValidationFailed, Status: http.StatusBadRequest},
	{Err: domain.ErrOperationFailed, Status: http.StatusInternalServerError, Message: "operation failed"},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
// A case without a message echoes the error text. Unmapped errors are attached to the context for the access log.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil || !errors.Is(err, cs.Err) {
			continue
		}
		message := cs.Message
		if message == "" {
			message = err.Error()
		}
		if cs.Status == http.StatusUnauthorized {
			c.Header("WWW-Authenticate", "Bearer")
		}
		if cs.Status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(cs.Status, NewErrorResponse(c, message))
		return
	}

	_ = c.Error(err)
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// respondDomainError maps auth core errors, falling back to 500 with the given message.
func respondDomainError(c *gin.Context, err error, fallbackMessage string) {
	RespondWithMappedError(c, err, domainErrorCases, http.StatusInternalServerError, fallbackMessage)
}
