package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"personahub/api/internal/models"
)

var ErrChatSessionNotFound = errors.New("chat session not found")

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) CreateSession(ctx context.Context, session models.ChatSession) error {
	const query = `
		INSERT INTO chat_sessions (id, persona_id, workspace_id, account_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.PersonaID,
		session.WorkspaceID,
		session.AccountID,
		session.Title,
	)
	return err
}

func (r *ChatRepository) GetSession(ctx context.Context, id string) (models.ChatSession, error) {
	const query = `
		SELECT id, persona_id, workspace_id, account_id, title, created_at, updated_at
		FROM chat_sessions WHERE id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)
	var session models.ChatSession
	if err := row.Scan(
		&session.ID,
		&session.PersonaID,
		&session.WorkspaceID,
		&session.AccountID,
		&session.Title,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChatSession{}, ErrChatSessionNotFound
		}
		return models.ChatSession{}, err
	}
	return session, nil
}

func (r *ChatRepository) ListSessionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.ChatSession, error) {
	const query = `
		SELECT id, persona_id, workspace_id, account_id, title, created_at, updated_at
		FROM chat_sessions
		WHERE account_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var session models.ChatSession
		if err := rows.Scan(
			&session.ID,
			&session.PersonaID,
			&session.WorkspaceID,
			&session.AccountID,
			&session.Title,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *ChatRepository) CreateMessage(ctx context.Context, message models.ChatMessage) error {
	const query = `
		INSERT INTO chat_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.SessionID,
		message.Role,
		message.Content,
	)
	return err
}

func (r *ChatRepository) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]models.ChatMessage, error) {
	const query = `
		SELECT id, session_id, role, content, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.SessionID,
			&message.Role,
			&message.Content,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// TouchSession bumps updated_at so session lists sort by recency.
func (r *ChatRepository) TouchSession(ctx context.Context, id string) error {
	const query = `UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
