package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/types"
)

const userColumns = `id, email, password_hash, name, role, phone, age, avatar, refresh_token, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.Phone,
		&user.Age,
		&user.Avatar,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return getOne(ctx, r.db, query, scanUser, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return getOne(ctx, r.db, query, scanUser, email)
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	return listAll(ctx, r.db, query, scanUser)
}

// Create inserts user. Uniqueness of email is enforced by the users_email_key
// constraint, so concurrent registrations for one address yield exactly one
// row and ErrConflict for the rest.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, email, password_hash, name, role, phone, age, avatar, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
		user.Phone,
		user.Age,
		user.Avatar,
		user.RefreshToken,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

// Patch applies cs to the user and returns the updated row.
func (r *UserRepository) Patch(ctx context.Context, id string, cs patch.Changeset) (types.User, error) {
	return applyPatch(ctx, r.db, "users", userColumns, id, cs, scanUser)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "users", id)
}
