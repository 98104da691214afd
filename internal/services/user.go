package services

import (
	"context"
	"errors"

	"github.com/pipecraft/apiserver/internal/apperr"
	"github.com/pipecraft/apiserver/internal/auth"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/internal/store"
	"github.com/pipecraft/apiserver/types"
)

// UserService encapsulates the admin use-cases over user accounts.
type UserService struct {
	repo    UserRepository
	blobs   BlobLifecycle
	logger  logging.Logger
	profile *patch.Builder
	roles   *patch.Builder
}

func NewUserService(repo UserRepository, blobs BlobLifecycle, logger logging.Logger) *UserService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &UserService{
		repo:    repo,
		blobs:   blobs,
		logger:  logger,
		profile: patch.NewBuilder([]string{"name", "email", "phone", "age"}, patch.WithBlobField("avatar")),
		roles:   patch.NewBuilder([]string{"role"}),
	}
}

func (s *UserService) List(ctx context.Context, actor auth.Identity) ([]types.User, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Dependency(err, "failed to list users")
	}
	return users, nil
}

// Update patches the profile of user id. A new avatar replaces the stored
// one only after the record points at it.
func (s *UserService) Update(ctx context.Context, actor auth.Identity, id string, req types.UpdateUserRequest, avatar *File) (types.User, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return types.User{}, err
	}
	if err := validate(req); err != nil {
		return types.User{}, err
	}

	u := s.profile.Start()
	patch.Set(u, "name", req.Name)
	patch.Set(u, "email", req.Email)
	patch.Set(u, "phone", req.Phone)
	patch.Set(u, "age", req.Age)

	if avatar == nil {
		cs, err := build(u)
		if err != nil {
			return types.User{}, err
		}
		if err := s.ensureEmailFree(ctx, id, req.Email); err != nil {
			return types.User{}, err
		}
		updated, err := s.repo.Patch(ctx, id, cs)
		if err != nil {
			return types.User{}, userWriteError(err)
		}
		return updated, nil
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, storeError(err, msgUserNotFound, "failed to load user")
	}
	if err := s.ensureEmailFree(ctx, id, req.Email); err != nil {
		return types.User{}, err
	}
	var updated types.User
	_, err = s.blobs.Replace(ctx, existing.Avatar, avatar.upload(avatarPrefix, id), func(ctx context.Context, ref string) error {
		u.SetBlob(existing.Avatar, &ref)
		cs, err := build(u)
		if err != nil {
			return err
		}
		updated, err = s.repo.Patch(ctx, id, cs)
		return err
	})
	if err != nil {
		return types.User{}, userWriteError(err)
	}
	return updated, nil
}

// Delete removes user id and its avatar. It reports whether the actor
// deleted their own account.
func (s *UserService) Delete(ctx context.Context, actor auth.Identity, id string) (bool, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return false, err
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, storeError(err, msgUserNotFound, "failed to load user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return false, storeError(err, msgUserNotFound, "failed to delete user")
	}
	s.blobs.Remove(ctx, existing.Avatar)
	s.logger.Info(ctx, "user deleted", "user_id", id, "by", actor.ID)
	return id == actor.ID, nil
}

// SetRole assigns role to the user registered under email. It backs the
// operator command line and performs no actor check.
func (s *UserService) SetRole(ctx context.Context, email, role string) (types.User, error) {
	if role != auth.RoleAdmin && role != auth.RoleUser {
		return types.User{}, apperr.Validation("unknown role")
	}
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, storeError(err, msgUserNotFound, "failed to load user")
	}
	u := s.roles.Start()
	u.SetValue("role", role)
	cs, err := build(u)
	if err != nil {
		return types.User{}, err
	}
	updated, err := s.repo.Patch(ctx, user.ID, cs)
	if err != nil {
		return types.User{}, storeError(err, msgUserNotFound, "failed to update role")
	}
	s.logger.Info(ctx, "user role changed", "user_id", user.ID, "role", role)
	return updated, nil
}

// ensureEmailFree fails when email belongs to a user other than id. The
// users_email_key constraint still guards the write itself.
func (s *UserService) ensureEmailFree(ctx context.Context, id string, email *string) error {
	if email == nil {
		return nil
	}
	other, err := s.repo.GetByEmail(ctx, *email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return apperr.Dependency(err, "failed to check email")
	case other.ID != id:
		return apperr.Conflict(msgEmailExists)
	}
	return nil
}

func userWriteError(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return apperr.Conflict(msgEmailExists)
	}
	return storeError(err, msgUserNotFound, "failed to update user")
}
