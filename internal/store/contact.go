package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/types"
)

const contactColumns = `id, name, email, phone, company_name, service_interested, message, created_at, updated_at`

// ContactRepository handles persistence for contact enquiries.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func scanContact(row rowScanner) (types.Contact, error) {
	var c types.Contact
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.CompanyName,
		&c.ServiceInterested,
		&c.Message,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func (r *ContactRepository) List(ctx context.Context) ([]types.Contact, error) {
	const query = `SELECT ` + contactColumns + ` FROM contacts ORDER BY created_at DESC`
	return listAll(ctx, r.db, query, scanContact)
}

func (r *ContactRepository) Get(ctx context.Context, id string) (types.Contact, error) {
	const query = `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	return getOne(ctx, r.db, query, scanContact, id)
}

func (r *ContactRepository) Create(ctx context.Context, c types.Contact) (types.Contact, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	const query = `
		INSERT INTO contacts (id, name, email, phone, company_name, service_interested, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.CompanyName,
		c.ServiceInterested,
		c.Message,
		c.CreatedAt,
		c.UpdatedAt,
	); err != nil {
		return types.Contact{}, mapError(err)
	}
	return c, nil
}

func (r *ContactRepository) Patch(ctx context.Context, id string, cs patch.Changeset) (types.Contact, error) {
	return applyPatch(ctx, r.db, "contacts", contactColumns, id, cs, scanContact)
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "contacts", id)
}
