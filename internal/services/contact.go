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

const msgContactNotFound = "contact not found"

// ContactRepository defines persistence operations for contact enquiries.
type ContactRepository interface {
	List(ctx context.Context) ([]types.Contact, error)
	Get(ctx context.Context, id string) (types.Contact, error)
	Create(ctx context.Context, c types.Contact) (types.Contact, error)
	Patch(ctx context.Context, id string, cs patch.Changeset) (types.Contact, error)
	Delete(ctx context.Context, id string) error
}

// ContactService accepts public enquiries and lets admins manage them.
type ContactService struct {
	repo    ContactRepository
	logger  logging.Logger
	builder *patch.Builder
}

func NewContactService(repo ContactRepository, logger logging.Logger) *ContactService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ContactService{
		repo:    repo,
		logger:  logger,
		builder: patch.NewBuilder([]string{"name", "email", "phone", "company_name", "service_interested", "message"}),
	}
}

// Create stores a public enquiry. No authentication is required.
func (s *ContactService) Create(ctx context.Context, req types.CreateContactRequest) (types.Contact, error) {
	if err := validate(req); err != nil {
		return types.Contact{}, err
	}
	contact := req.Contact()
	_, err := ident.CreateWithRetry(ctx, ident.Contact, store.ErrDuplicateID, func(ctx context.Context, id string) error {
		contact.ID = id
		created, err := s.repo.Create(ctx, contact)
		if err != nil {
			return err
		}
		contact = created
		return nil
	})
	if err != nil {
		return types.Contact{}, apperr.Dependency(err, "failed to create contact")
	}
	s.logger.Info(ctx, "contact received", "contact_id", contact.ID)
	return contact, nil
}

func (s *ContactService) List(ctx context.Context, actor auth.Identity) ([]types.Contact, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	contacts, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list contacts")
	}
	return contacts, nil
}

func (s *ContactService) Get(ctx context.Context, actor auth.Identity, id string) (types.Contact, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.Contact{}, err
	}
	contact, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Contact{}, storeError(err, msgContactNotFound, "failed to load contact")
	}
	return contact, nil
}

func (s *ContactService) Update(ctx context.Context, actor auth.Identity, id string, req types.UpdateContactRequest) (types.Contact, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.Contact{}, err
	}
	if err := validate(req); err != nil {
		return types.Contact{}, err
	}

	u := s.builder.Start()
	patch.Set(u, "name", req.Name)
	patch.Set(u, "email", req.Email)
	patch.Set(u, "phone", req.Phone)
	patch.Set(u, "company_name", req.CompanyName)
	patch.Set(u, "service_interested", req.ServiceInterested)
	patch.Set(u, "message", req.Message)
	cs, err := build(u)
	if err != nil {
		return types.Contact{}, err
	}

	contact, err := s.repo.Patch(ctx, id, cs)
	if err != nil {
		return types.Contact{}, storeError(err, msgContactNotFound, "failed to update contact")
	}
	return contact, nil
}

func (s *ContactService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, msgContactNotFound, "failed to delete contact")
	}
	return nil
}
