package models

import "time"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

type AccountStatus string

const (
	AccountStatusPendingVerify   AccountStatus = "PENDING_VERIFY"
	AccountStatusActive          AccountStatus = "ACTIVE"
	AccountStatusDeactivated     AccountStatus = "DEACTIVATED"
	AccountStatusPendingDeletion AccountStatus = "PENDING_DELETION"
)

// Account is the identity and credential record. PasswordHash is nil
// exactly when the account originated from an OAuth provider.
type Account struct {
	ID               string
	Email            string
	PasswordHash     []byte
	Name             string
	Role             Role
	Status           AccountStatus
	EmailVerified    bool
	WorkspaceID      *string
	OAuthProvider    *string
	OAuthID          *string
	AvatarURL        *string
	LastLoginAt      *time.Time
	FailedLoginCount int
	LockedUntil      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Principal is the authenticated identity attached to a request after
// the auth middleware succeeds. Role and WorkspaceID are always sourced
// from the freshly loaded account record, never from the token payload.
type Principal struct {
	ID          string
	Email       string
	Name        string
	Role        Role
	WorkspaceID string
}
