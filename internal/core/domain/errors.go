package domain

import "errors"

var (
	// ErrInvalidCredentials covers bad logins, bad tokens on protected calls, insufficient scope and old-password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates the targeted user or signup does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists indicates a validated user already owns the username.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotValid indicates a pending signup already owns the username.
	ErrUserNotValid = errors.New("user pending validation")
	// ErrEmailAlreadyUsed indicates the email is taken by a pending or validated user.
	ErrEmailAlreadyUsed = errors.New("email already used")
	// ErrPhoneAlreadyUsed indicates the phone is taken by a pending or validated user.
	ErrPhoneAlreadyUsed = errors.New("phone already used")
	// ErrProfileNotFound indicates the caller or the targeted id has no profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileAlreadyExists indicates the user already owns a profile.
	ErrProfileAlreadyExists = errors.New("profile already exists")
	// ErrInactiveUser indicates the token is valid but the account is disabled.
	ErrInactiveUser = errors.New("inactive user")
	// ErrInvalidToken indicates the bearer token failed decoding, signature or expiry checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrValidationFailed indicates an input constraint violation.
	ErrValidationFailed = errors.New("validation failed")
	// ErrOperationFailed indicates a persistence failure inside a multi-step flow that needs reconciliation.
	ErrOperationFailed = errors.New("operation failed")
)
