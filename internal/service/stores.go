package service

import (
	"context"
	"time"

	"personahub/api/internal/models"
)

// Store interfaces are the slices of the persistence layer each
// service consumes. The pgx repositories implement them; tests use
// in-memory fakes.

type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error
	MarkEmailVerified(ctx context.Context, id string) error
	RecordLoginSuccess(ctx context.Context, id string) error
	RecordLoginFailure(ctx context.Context, id string) (int, error)
	SetLockout(ctx context.Context, id string, until time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
	UpdateName(ctx context.Context, id string, name string) error
	UpdateAvatarURL(ctx context.Context, id string, avatarURL string) error
	CountActiveInWorkspace(ctx context.Context, workspaceID string) (int, error)
}

type WorkspaceStore interface {
	Create(ctx context.Context, workspace models.Workspace) error
	GetByID(ctx context.Context, id string) (models.Workspace, error)
	FindByDomain(ctx context.Context, domain string) (models.Workspace, error)
	FindOldestActive(ctx context.Context) (models.Workspace, error)
}

type PersonaStore interface {
	Create(ctx context.Context, persona models.Persona) error
	GetByID(ctx context.Context, id string) (models.Persona, error)
	ListByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]models.Persona, error)
	Update(ctx context.Context, persona models.Persona) error
	Delete(ctx context.Context, id string) error
}

type ChatStore interface {
	CreateSession(ctx context.Context, session models.ChatSession) error
	GetSession(ctx context.Context, id string) (models.ChatSession, error)
	ListSessionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.ChatSession, error)
	CreateMessage(ctx context.Context, message models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]models.ChatMessage, error)
	TouchSession(ctx context.Context, id string) error
}

// OneTimeTokenStore holds single-use verification and reset tokens.
type OneTimeTokenStore interface {
	Put(ctx context.Context, kind string, token string, accountID string, ttl time.Duration) error
	Take(ctx context.Context, kind string, token string) (string, error)
}
