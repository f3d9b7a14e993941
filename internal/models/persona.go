package models

import "time"

// Persona is an AI persona owned by a workspace. WebhookURLEncrypted
// holds the CryptoBox ciphertext of the persona's webhook URL; the
// plaintext is never persisted.
type Persona struct {
	ID                  string
	WorkspaceID         string
	Name                string
	SystemPrompt        string
	WebhookURLEncrypted string
	CreatedBy           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type ChatSession struct {
	ID          string
	PersonaID   string
	WorkspaceID string
	AccountID   string
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ChatMessageRole string

const (
	ChatMessageRoleUser      ChatMessageRole = "user"
	ChatMessageRoleAssistant ChatMessageRole = "assistant"
)

type ChatMessage struct {
	ID        string
	SessionID string
	Role      ChatMessageRole
	Content   string
	CreatedAt time.Time
}
