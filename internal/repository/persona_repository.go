package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"personahub/api/internal/models"
)

var ErrPersonaNotFound = errors.New("persona not found")

type PersonaRepository struct {
	pool *pgxpool.Pool
}

func NewPersonaRepository(pool *pgxpool.Pool) *PersonaRepository {
	return &PersonaRepository{pool: pool}
}

const personaColumns = `
	id, workspace_id, name, system_prompt, webhook_url_encrypted,
	created_by, created_at, updated_at
`

func (r *PersonaRepository) Create(ctx context.Context, persona models.Persona) error {
	const query = `
		INSERT INTO personas (
			id, workspace_id, name, system_prompt, webhook_url_encrypted,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		persona.ID,
		persona.WorkspaceID,
		persona.Name,
		persona.SystemPrompt,
		persona.WebhookURLEncrypted,
		persona.CreatedBy,
	)
	return err
}

func (r *PersonaRepository) GetByID(ctx context.Context, id string) (models.Persona, error) {
	const query = `SELECT ` + personaColumns + ` FROM personas WHERE id = $1`
	return r.scanPersona(r.pool.QueryRow(ctx, query, id))
}

func (r *PersonaRepository) ListByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]models.Persona, error) {
	const query = `
		SELECT ` + personaColumns + `
		FROM personas
		WHERE workspace_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var personas []models.Persona
	for rows.Next() {
		var persona models.Persona
		if err := rows.Scan(
			&persona.ID,
			&persona.WorkspaceID,
			&persona.Name,
			&persona.SystemPrompt,
			&persona.WebhookURLEncrypted,
			&persona.CreatedBy,
			&persona.CreatedAt,
			&persona.UpdatedAt,
		); err != nil {
			return nil, err
		}
		personas = append(personas, persona)
	}
	return personas, rows.Err()
}

func (r *PersonaRepository) Update(ctx context.Context, persona models.Persona) error {
	const query = `
		UPDATE personas
		SET name = $2, system_prompt = $3, webhook_url_encrypted = $4, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		persona.ID,
		persona.Name,
		persona.SystemPrompt,
		persona.WebhookURLEncrypted,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPersonaNotFound
	}
	return nil
}

func (r *PersonaRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM personas WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPersonaNotFound
	}
	return nil
}

func (r *PersonaRepository) scanPersona(row pgx.Row) (models.Persona, error) {
	var persona models.Persona
	if err := row.Scan(
		&persona.ID,
		&persona.WorkspaceID,
		&persona.Name,
		&persona.SystemPrompt,
		&persona.WebhookURLEncrypted,
		&persona.CreatedBy,
		&persona.CreatedAt,
		&persona.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Persona{}, ErrPersonaNotFound
		}
		return models.Persona{}, err
	}
	return persona, nil
}
