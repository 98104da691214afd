package services

import (
	"context"
	"time"

	"github.com/pipecraft/apiserver/internal/apperr"
	"github.com/pipecraft/apiserver/internal/auth"
	"github.com/pipecraft/apiserver/internal/ident"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/store"
	"github.com/pipecraft/apiserver/types"
)

const (
	msgApplicationNotFound = "application not found"
	msgResumeRequired      = "resume file is required"
)

// ApplicationRepository defines persistence operations for job applications.
type ApplicationRepository interface {
	List(ctx context.Context, careerID *string) ([]types.Application, error)
	Get(ctx context.Context, id string) (types.Application, error)
	Create(ctx context.Context, a types.Application) (types.Application, error)
	Delete(ctx context.Context, id string) error
}

// CareerReader is the part of CareerRepository applications depend on.
type CareerReader interface {
	Get(ctx context.Context, id string) (types.Career, error)
}

// ApplicationService accepts candidate submissions and exposes them to admins.
type ApplicationService struct {
	repo    ApplicationRepository
	careers CareerReader
	blobs   BlobLifecycle
	logger  logging.Logger
	now     func() time.Time
}

func NewApplicationService(repo ApplicationRepository, careers CareerReader, blobs BlobLifecycle, logger logging.Logger) *ApplicationService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ApplicationService{
		repo:    repo,
		careers: careers,
		blobs:   blobs,
		logger:  logger,
		now:     time.Now,
	}
}

// Submit files an application against an open posting. The resume is
// uploaded first and removed again if the application cannot be stored.
func (s *ApplicationService) Submit(ctx context.Context, req types.SubmitApplicationRequest, resume *File) (types.Application, error) {
	if err := validate(req); err != nil {
		return types.Application{}, err
	}
	career, err := s.careers.Get(ctx, req.CareerID)
	if err != nil {
		return types.Application{}, storeError(err, msgCareerNotFound, "failed to load job posting")
	}
	now := s.now().UTC()
	if err := career.AcceptsApplications(now); err != nil {
		return types.Application{}, apperr.Validation(err.Error())
	}
	if resume == nil {
		return types.Application{}, apperr.Validation(msgResumeRequired)
	}

	application := types.Application{
		CareerID:       career.ID,
		ApplicantName:  req.ApplicantName,
		ApplicantEmail: req.ApplicantEmail,
		ApplicantPhone: req.ApplicantPhone,
		CoverLetter:    req.CoverLetter,
		AppliedAt:      now,
	}
	// first names the resume object. A colliding id is replaced inside the
	// retry but the key keeps first, which only needs to be unique.
	first := ident.New(ident.Application)
	_, err = s.blobs.Create(ctx, resume.upload(resumePrefix, first), func(ctx context.Context, ref string) error {
		application.ResumeLink = ref
		_, err := ident.CreateWithRetryFrom(ctx, first, ident.Application, store.ErrDuplicateID, func(ctx context.Context, id string) error {
			application.ID = id
			created, err := s.repo.Create(ctx, application)
			if err != nil {
				return err
			}
			application = created
			return nil
		})
		return err
	})
	if err != nil {
		return types.Application{}, apperr.Dependency(err, "failed to submit application")
	}
	s.logger.Info(ctx, "application submitted", "application_id", application.ID, "career_id", career.ID)
	return application, nil
}

// List returns applications newest first, optionally for one posting.
func (s *ApplicationService) List(ctx context.Context, actor auth.Identity, careerID *string) ([]types.Application, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	applications, err := s.repo.List(ctx, careerID)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list applications")
	}
	return applications, nil
}

// ListByCareer returns posting careerID together with its applications.
func (s *ApplicationService) ListByCareer(ctx context.Context, actor auth.Identity, careerID string) (types.CareerApplications, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.CareerApplications{}, err
	}
	career, err := s.careers.Get(ctx, careerID)
	if err != nil {
		return types.CareerApplications{}, storeError(err, msgCareerNotFound, "failed to load job posting")
	}
	applications, err := s.repo.List(ctx, &careerID)
	if err != nil {
		return types.CareerApplications{}, apperr.Dependency(err, "failed to list applications")
	}
	return types.CareerApplications{
		Job:               career,
		Applications:      applications,
		TotalApplications: len(applications),
	}, nil
}

func (s *ApplicationService) Get(ctx context.Context, actor auth.Identity, id string) (types.Application, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.Application{}, err
	}
	application, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Application{}, storeError(err, msgApplicationNotFound, "failed to load application")
	}
	return application, nil
}

func (s *ApplicationService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return storeError(err, msgApplicationNotFound, "failed to load application")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, msgApplicationNotFound, "failed to delete application")
	}
	s.blobs.Remove(ctx, &existing.ResumeLink)
	s.logger.Info(ctx, "application deleted", "application_id", id)
	return nil
}
