package domain

import "errors"

var (
	// ErrNotFound indicates the user does not exist within the caller's scope.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEntry indicates the email is already registered.
	ErrDuplicateEntry = errors.New("email already registered")
	// ErrInvalidCredentials indicates a failed login. The same error covers
	// unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserInactive indicates the account or its tenant is suspended.
	ErrUserInactive = errors.New("user account inactive")
)
