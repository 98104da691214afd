package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/types"
)

const careerColumns = `id, job_title, department, location, job_type, experience_level, description,
	responsibilities, requirements, qualifications, salary, is_active, number_of_positions,
	application_deadline, created_at, updated_at`

// CareerRepository handles persistence for job postings.
type CareerRepository struct {
	db *sql.DB
}

func NewCareerRepository(db *sql.DB) *CareerRepository {
	return &CareerRepository{db: db}
}

func scanCareer(row rowScanner) (types.Career, error) {
	var c types.Career
	var salary types.NullSalary
	err := row.Scan(
		&c.ID,
		&c.JobTitle,
		&c.Department,
		&c.Location,
		&c.JobType,
		&c.ExperienceLevel,
		&c.Description,
		pq.Array(&c.Responsibilities),
		pq.Array(&c.Requirements),
		pq.Array(&c.Qualifications),
		&salary,
		&c.IsActive,
		&c.NumberOfPositions,
		&c.ApplicationDeadline,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	c.Salary = salary.Salary
	return c, err
}

// List returns postings matching filter, newest first.
func (r *CareerRepository) List(ctx context.Context, filter types.CareerFilter) ([]types.Career, error) {
	var w where
	if filter.IsActive != nil {
		w.add("is_active", *filter.IsActive)
	}
	if filter.Department != nil {
		w.add("department", *filter.Department)
	}
	if filter.JobType != nil {
		w.add("job_type", *filter.JobType)
	}
	if filter.ExperienceLevel != nil {
		w.add("experience_level", *filter.ExperienceLevel)
	}
	query := `SELECT ` + careerColumns + ` FROM careers` + w.String() + ` ORDER BY created_at DESC`
	return listAll(ctx, r.db, query, scanCareer, w.args...)
}

func (r *CareerRepository) Get(ctx context.Context, id string) (types.Career, error) {
	const query = `SELECT ` + careerColumns + ` FROM careers WHERE id = $1`
	return getOne(ctx, r.db, query, scanCareer, id)
}

func (r *CareerRepository) Create(ctx context.Context, c types.Career) (types.Career, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	var salary any
	if c.Salary != nil {
		salary = *c.Salary
	}

	const query = `
		INSERT INTO careers (id, job_title, department, location, job_type, experience_level, description,
			responsibilities, requirements, qualifications, salary, is_active, number_of_positions,
			application_deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		c.ID,
		c.JobTitle,
		c.Department,
		c.Location,
		c.JobType,
		c.ExperienceLevel,
		c.Description,
		sqlValue(c.Responsibilities),
		sqlValue(c.Requirements),
		sqlValue(c.Qualifications),
		salary,
		c.IsActive,
		c.NumberOfPositions,
		c.ApplicationDeadline,
		c.CreatedAt,
		c.UpdatedAt,
	); err != nil {
		return types.Career{}, mapError(err)
	}
	return c, nil
}

func (r *CareerRepository) Patch(ctx context.Context, id string, cs patch.Changeset) (types.Career, error) {
	return applyPatch(ctx, r.db, "careers", careerColumns, id, cs, scanCareer)
}

func (r *CareerRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "careers", id)
}
