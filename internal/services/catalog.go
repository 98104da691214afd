package services

import (
	"context"
	"errors"

	"github.com/pipecraft/apiserver/internal/apperr"
	"github.com/pipecraft/apiserver/internal/auth"
	"github.com/pipecraft/apiserver/internal/ident"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/internal/store"
	"github.com/pipecraft/apiserver/types"
)

const (
	msgServiceNotFound = "service not found"
	msgTitleExists     = "service with this title already exists"
)

// ServiceRepository defines persistence operations for catalog services.
type ServiceRepository interface {
	List(ctx context.Context, isActive *bool) ([]types.Service, error)
	Get(ctx context.Context, id string) (types.Service, error)
	FindByTitle(ctx context.Context, title string) (types.Service, error)
	Create(ctx context.Context, s types.Service) (types.Service, error)
	Patch(ctx context.Context, id string, cs patch.Changeset) (types.Service, error)
	Delete(ctx context.Context, id string) error
}

// CatalogService encapsulates the use-cases of the public service catalog.
// Title uniqueness is checked before writing and is not guarded by the store.
type CatalogService struct {
	repo    ServiceRepository
	logger  logging.Logger
	builder *patch.Builder
}

func NewCatalogService(repo ServiceRepository, logger logging.Logger) *CatalogService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &CatalogService{
		repo:    repo,
		logger:  logger,
		builder: patch.NewBuilder([]string{"title", "description", "features", "is_active"}),
	}
}

func (s *CatalogService) List(ctx context.Context, isActive *bool) ([]types.Service, error) {
	services, err := s.repo.List(ctx, isActive)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list services")
	}
	return services, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (types.Service, error) {
	service, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Service{}, storeError(err, msgServiceNotFound, "failed to load service")
	}
	return service, nil
}

func (s *CatalogService) Create(ctx context.Context, actor auth.Identity, req types.CreateServiceRequest) (types.Service, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.Service{}, err
	}
	if err := validate(req); err != nil {
		return types.Service{}, err
	}
	if err := s.ensureTitleFree(ctx, "", req.Title); err != nil {
		return types.Service{}, err
	}

	service := req.Service()
	_, err := ident.CreateWithRetry(ctx, ident.Service, store.ErrDuplicateID, func(ctx context.Context, id string) error {
		service.ID = id
		created, err := s.repo.Create(ctx, service)
		if err != nil {
			return err
		}
		service = created
		return nil
	})
	if err != nil {
		return types.Service{}, apperr.Dependency(err, "failed to create service")
	}
	s.logger.Info(ctx, "service created", "service_id", service.ID)
	return service, nil
}

func (s *CatalogService) Update(ctx context.Context, actor auth.Identity, id string, req types.UpdateServiceRequest) (types.Service, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.Service{}, err
	}
	if err := validate(req); err != nil {
		return types.Service{}, err
	}

	u := s.builder.Start()
	patch.Set(u, "title", req.Title)
	patch.Set(u, "description", req.Description)
	patch.Set(u, "features", req.Features)
	patch.Set(u, "is_active", req.IsActive)
	cs, err := build(u)
	if err != nil {
		return types.Service{}, err
	}

	if req.Title != nil {
		if err := s.ensureTitleFree(ctx, id, *req.Title); err != nil {
			return types.Service{}, err
		}
	}
	service, err := s.repo.Patch(ctx, id, cs)
	if err != nil {
		return types.Service{}, storeError(err, msgServiceNotFound, "failed to update service")
	}
	return service, nil
}

func (s *CatalogService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, msgServiceNotFound, "failed to delete service")
	}
	s.logger.Info(ctx, "service deleted", "service_id", id)
	return nil
}

// ensureTitleFree fails when title is held by a service other than id.
func (s *CatalogService) ensureTitleFree(ctx context.Context, id, title string) error {
	other, err := s.repo.FindByTitle(ctx, title)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return apperr.Dependency(err, "failed to check service title")
	case other.ID != id:
		return apperr.Conflict(msgTitleExists)
	}
	return nil
}
