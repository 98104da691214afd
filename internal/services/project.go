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

const msgProjectNotFound = "project not found"

// ProjectRepository defines persistence operations for portfolio projects.
type ProjectRepository interface {
	List(ctx context.Context) ([]types.Project, error)
	Get(ctx context.Context, id string) (types.Project, error)
	Create(ctx context.Context, p types.Project) (types.Project, error)
	Patch(ctx context.Context, id string, cs patch.Changeset) (types.Project, error)
	Delete(ctx context.Context, id string) error
}

// ProjectService encapsulates portfolio use-cases. The project image lives in
// object storage and follows the record through BlobLifecycle.
type ProjectService struct {
	repo    ProjectRepository
	blobs   BlobLifecycle
	logger  logging.Logger
	builder *patch.Builder
}

func NewProjectService(repo ProjectRepository, blobs BlobLifecycle, logger logging.Logger) *ProjectService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ProjectService{
		repo:    repo,
		blobs:   blobs,
		logger:  logger,
		builder: patch.NewBuilder([]string{"name", "client", "scope"}, patch.WithBlobField("image")),
	}
}

func (s *ProjectService) List(ctx context.Context) ([]types.Project, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list projects")
	}
	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (types.Project, error) {
	project, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Project{}, storeError(err, msgProjectNotFound, "failed to load project")
	}
	return project, nil
}

func (s *ProjectService) Create(ctx context.Context, actor auth.Identity, req types.CreateProjectRequest, image *File) (types.Project, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.Project{}, err
	}
	if err := validate(req); err != nil {
		return types.Project{}, err
	}

	project := types.Project{Name: req.Name, Client: req.Client, Scope: req.Scope}
	first := ident.New(ident.Project)
	insert := func(ctx context.Context) error {
		_, err := ident.CreateWithRetryFrom(ctx, first, ident.Project, store.ErrDuplicateID, func(ctx context.Context, id string) error {
			project.ID = id
			created, err := s.repo.Create(ctx, project)
			if err != nil {
				return err
			}
			project = created
			return nil
		})
		return err
	}

	var err error
	if image == nil {
		err = insert(ctx)
	} else {
		_, err = s.blobs.Create(ctx, image.upload(projectPrefix, first), func(ctx context.Context, ref string) error {
			project.Image = &ref
			return insert(ctx)
		})
	}
	if err != nil {
		return types.Project{}, apperr.Dependency(err, "failed to create project")
	}
	s.logger.Info(ctx, "project created", "project_id", project.ID)
	return project, nil
}

// Update patches project id. A new image is linked before the previous one
// is removed.
func (s *ProjectService) Update(ctx context.Context, actor auth.Identity, id string, req types.UpdateProjectRequest, image *File) (types.Project, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.Project{}, err
	}
	if err := validate(req); err != nil {
		return types.Project{}, err
	}

	u := s.builder.Start()
	patch.Set(u, "name", req.Name)
	patch.Set(u, "client", req.Client)
	patch.Set(u, "scope", req.Scope)

	if image == nil {
		cs, err := build(u)
		if err != nil {
			return types.Project{}, err
		}
		project, err := s.repo.Patch(ctx, id, cs)
		if err != nil {
			return types.Project{}, storeError(err, msgProjectNotFound, "failed to update project")
		}
		return project, nil
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Project{}, storeError(err, msgProjectNotFound, "failed to load project")
	}
	var project types.Project
	_, err = s.blobs.Replace(ctx, existing.Image, image.upload(projectPrefix, id), func(ctx context.Context, ref string) error {
		u.SetBlob(existing.Image, &ref)
		cs, err := build(u)
		if err != nil {
			return err
		}
		project, err = s.repo.Patch(ctx, id, cs)
		return err
	})
	if err != nil {
		return types.Project{}, storeError(err, msgProjectNotFound, "failed to update project")
	}
	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return storeError(err, msgProjectNotFound, "failed to load project")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, msgProjectNotFound, "failed to delete project")
	}
	s.blobs.Remove(ctx, existing.Image)
	s.logger.Info(ctx, "project deleted", "project_id", id)
	return nil
}
