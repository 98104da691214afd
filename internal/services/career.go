package services

import (
	"context"

	"github.com/pipecraft/apiserver/internal/apperr"
	"github.com/pipecraft/apiserver/internal/auth"
	"github.com/pipecraft/apiserver/internal/ident"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/internal/store"
	"github.com/pipecraft/apiserver/types"
)

const msgCareerNotFound = "job posting not found"

// CareerRepository defines persistence operations for job postings.
type CareerRepository interface {
	List(ctx context.Context, filter types.CareerFilter) ([]types.Career, error)
	Get(ctx context.Context, id string) (types.Career, error)
	Create(ctx context.Context, c types.Career) (types.Career, error)
	Patch(ctx context.Context, id string, cs patch.Changeset) (types.Career, error)
	Delete(ctx context.Context, id string) error
}

// CareerService encapsulates job posting use-cases.
type CareerService struct {
	repo    CareerRepository
	logger  logging.Logger
	builder *patch.Builder
}

func NewCareerService(repo CareerRepository, logger logging.Logger) *CareerService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CareerService{
		repo:   repo,
		logger: logger,
		builder: patch.NewBuilder([]string{
			"job_title",
			"department",
			"location",
			"job_type",
			"experience_level",
			"description",
			"responsibilities",
			"requirements",
			"qualifications",
			"salary",
			"is_active",
			"number_of_positions",
			"application_deadline",
		}),
	}
}

func (s *CareerService) List(ctx context.Context, filter types.CareerFilter) ([]types.Career, error) {
	careers, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list job postings")
	}
	return careers, nil
}

func (s *CareerService) Get(ctx context.Context, id string) (types.Career, error) {
	career, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Career{}, storeError(err, msgCareerNotFound, "failed to load job posting")
	}
	return career, nil
}

func (s *CareerService) Create(ctx context.Context, actor auth.Identity, req types.CreateCareerRequest) (types.Career, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.Career{}, err
	}
	if err := validate(req); err != nil {
		return types.Career{}, err
	}
	career := req.Career()
	_, err := ident.CreateWithRetry(ctx, ident.Career, store.ErrDuplicateID, func(ctx context.Context, id string) error {
		career.ID = id
		created, err := s.repo.Create(ctx, career)
		if err != nil {
			return err
		}
		career = created
		return nil
	})
	if err != nil {
		return types.Career{}, apperr.Dependency(err, "failed to create job posting")
	}
	s.logger.Info(ctx, "job posting created", "career_id", career.ID)
	return career, nil
}

// Update applies the provided fields of req to posting id as one mutation.
func (s *CareerService) Update(ctx context.Context, actor auth.Identity, id string, req types.UpdateCareerRequest) (types.Career, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.Career{}, err
	}
	if err := validate(req); err != nil {
		return types.Career{}, err
	}

	u := s.builder.Start()
	patch.Set(u, "job_title", req.JobTitle)
	patch.Set(u, "department", req.Department)
	patch.Set(u, "location", req.Location)
	patch.Set(u, "job_type", req.JobType)
	patch.Set(u, "experience_level", req.ExperienceLevel)
	patch.Set(u, "description", req.Description)
	patch.Set(u, "responsibilities", req.Responsibilities)
	patch.Set(u, "requirements", req.Requirements)
	patch.Set(u, "qualifications", req.Qualifications)
	patch.Set(u, "salary", req.Salary)
	patch.Set(u, "is_active", req.IsActive)
	patch.Set(u, "number_of_positions", req.NumberOfPositions)
	patch.Set(u, "application_deadline", req.ApplicationDeadline)
	cs, err := build(u)
	if err != nil {
		return types.Career{}, err
	}

	career, err := s.repo.Patch(ctx, id, cs)
	if err != nil {
		return types.Career{}, storeError(err, msgCareerNotFound, "failed to update job posting")
	}
	return career, nil
}

func (s *CareerService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, msgCareerNotFound, "failed to delete job posting")
	}
	s.logger.Info(ctx, "job posting deleted", "career_id", id)
	return nil
}
