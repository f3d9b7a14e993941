package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"personahub/api/internal/models"
)

var ErrWorkspaceNotFound = errors.New("workspace not found")

type WorkspaceRepository struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepository(pool *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{pool: pool}
}

const workspaceColumns = `id, name, domain, status, created_at, updated_at`

func (r *WorkspaceRepository) Create(ctx context.Context, workspace models.Workspace) error {
	const query = `
		INSERT INTO workspaces (id, name, domain, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		workspace.ID,
		workspace.Name,
		workspace.Domain,
		workspace.Status,
	)
	return err
}

func (r *WorkspaceRepository) GetByID(ctx context.Context, id string) (models.Workspace, error) {
	const query = `SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1`
	return r.scanWorkspace(r.pool.QueryRow(ctx, query, id))
}

func (r *WorkspaceRepository) FindByDomain(ctx context.Context, domain string) (models.Workspace, error) {
	const query = `SELECT ` + workspaceColumns + ` FROM workspaces WHERE domain = $1`
	return r.scanWorkspace(r.pool.QueryRow(ctx, query, domain))
}

// FindOldestActive returns the first workspace ever created that is
// still active. Selection is stable by creation order so the
// first-workspace rule never flip-flops.
func (r *WorkspaceRepository) FindOldestActive(ctx context.Context) (models.Workspace, error) {
	const query = `
		SELECT ` + workspaceColumns + `
		FROM workspaces
		WHERE status = 'ACTIVE'
		ORDER BY created_at ASC
		LIMIT 1
	`
	return r.scanWorkspace(r.pool.QueryRow(ctx, query))
}

func (r *WorkspaceRepository) scanWorkspace(row pgx.Row) (models.Workspace, error) {
	var workspace models.Workspace
	if err := row.Scan(
		&workspace.ID,
		&workspace.Name,
		&workspace.Domain,
		&workspace.Status,
		&workspace.CreatedAt,
		&workspace.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Workspace{}, ErrWorkspaceNotFound
		}
		return models.Workspace{}, err
	}
	return workspace, nil
}
