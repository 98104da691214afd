package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pipecraft/apiserver/types"
)

const applicationColumns = `id, career_id, applicant_name, applicant_email, applicant_phone, resume_link, cover_letter, applied_at`

// ApplicationRepository handles persistence for job applications.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func scanApplication(row rowScanner) (types.Application, error) {
	var a types.Application
	err := row.Scan(
		&a.ID,
		&a.CareerID,
		&a.ApplicantName,
		&a.ApplicantEmail,
		&a.ApplicantPhone,
		&a.ResumeLink,
		&a.CoverLetter,
		&a.AppliedAt,
	)
	return a, err
}

// List returns applications, newest first, optionally for one posting.
func (r *ApplicationRepository) List(ctx context.Context, careerID *string) ([]types.Application, error) {
	var w where
	if careerID != nil {
		w.add("career_id", *careerID)
	}
	query := `SELECT ` + applicationColumns + ` FROM applications` + w.String() + ` ORDER BY applied_at DESC`
	return listAll(ctx, r.db, query, scanApplication, w.args...)
}

func (r *ApplicationRepository) Get(ctx context.Context, id string) (types.Application, error) {
	const query = `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return getOne(ctx, r.db, query, scanApplication, id)
}

func (r *ApplicationRepository) Create(ctx context.Context, a types.Application) (types.Application, error) {
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO applications (id, career_id, applicant_name, applicant_email, applicant_phone, resume_link, cover_letter, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		a.ID,
		a.CareerID,
		a.ApplicantName,
		a.ApplicantEmail,
		a.ApplicantPhone,
		a.ResumeLink,
		a.CoverLetter,
		a.AppliedAt,
	); err != nil {
		return types.Application{}, mapError(err)
	}
	return a, nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "applications", id)
}
