package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/types"
)

const serviceColumns = `id, title, description, features, is_active, created_at, updated_at`

// ServiceRepository handles persistence for catalog services.
type ServiceRepository struct {
	db *sql.DB
}

func NewServiceRepository(db *sql.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func scanService(row rowScanner) (types.Service, error) {
	var s types.Service
	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Description,
		pq.Array(&s.Features),
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func (r *ServiceRepository) List(ctx context.Context, isActive *bool) ([]types.Service, error) {
	var w where
	if isActive != nil {
		w.add("is_active", *isActive)
	}
	query := `SELECT ` + serviceColumns + ` FROM services` + w.String() + ` ORDER BY created_at DESC`
	return listAll(ctx, r.db, query, scanService, w.args...)
}

func (r *ServiceRepository) Get(ctx context.Context, id string) (types.Service, error) {
	const query = `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`
	return getOne(ctx, r.db, query, scanService, id)
}

// FindByTitle returns the service with exactly this title.
func (r *ServiceRepository) FindByTitle(ctx context.Context, title string) (types.Service, error) {
	const query = `SELECT ` + serviceColumns + ` FROM services WHERE title = $1 LIMIT 1`
	return getOne(ctx, r.db, query, scanService, title)
}

func (r *ServiceRepository) Create(ctx context.Context, s types.Service) (types.Service, error) {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	const query = `
		INSERT INTO services (id, title, description, features, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		s.ID,
		s.Title,
		s.Description,
		sqlValue(s.Features),
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	); err != nil {
		return types.Service{}, mapError(err)
	}
	return s, nil
}

func (r *ServiceRepository) Patch(ctx context.Context, id string, cs patch.Changeset) (types.Service, error) {
	return applyPatch(ctx, r.db, "services", serviceColumns, id, cs, scanService)
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "services", id)
}
