package models

import "time"

type WorkspaceStatus string

const (
	WorkspaceStatusActive   WorkspaceStatus = "ACTIVE"
	WorkspaceStatusInactive WorkspaceStatus = "INACTIVE"
)

// Workspace is the tenant boundary. Domain is unique and derived from
// the email domain of the first account that created it.
type Workspace struct {
	ID        string
	Name      string
	Domain    string
	Status    WorkspaceStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
