package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password, and
	// locked accounts alike, so login never acts as an account oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrEmailTaken        = errors.New("email already registered")
	ErrEmailNotVerified  = errors.New("email address not verified")
	ErrAccountInactive   = errors.New("user account is not active")
	ErrWorkspaceInactive = errors.New("user workspace is not active")
	ErrNoWorkspace       = errors.New("user is not assigned to any workspace")
	ErrWorkspaceCreate   = errors.New("failed to create user workspace")
	ErrTokenInvalid      = errors.New("invalid or expired token")
	ErrNotFound          = errors.New("resource not found")
	ErrForbidden         = errors.New("forbidden")
)

// ValidationError carries every violation found at the boundary rather
// than just the first one.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Issues, "; ")
}
