package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/types"
)

const projectColumns = `id, name, client, scope, image, created_at, updated_at`

// ProjectRepository handles persistence for portfolio projects.
type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func scanProject(row rowScanner) (types.Project, error) {
	var p types.Project
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Client,
		&p.Scope,
		&p.Image,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *ProjectRepository) List(ctx context.Context) ([]types.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC`
	return listAll(ctx, r.db, query, scanProject)
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (types.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return getOne(ctx, r.db, query, scanProject, id)
}

func (r *ProjectRepository) Create(ctx context.Context, p types.Project) (types.Project, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	const query = `
		INSERT INTO projects (id, name, client, scope, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Client, p.Scope, p.Image, p.CreatedAt, p.UpdatedAt); err != nil {
		return types.Project{}, mapError(err)
	}
	return p, nil
}

func (r *ProjectRepository) Patch(ctx context.Context, id string, cs patch.Changeset) (types.Project, error) {
	return applyPatch(ctx, r.db, "projects", projectColumns, id, cs, scanProject)
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "projects", id)
}
