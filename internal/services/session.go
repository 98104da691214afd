package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/pipecraft/apiserver/internal/apperr"
	"github.com/pipecraft/apiserver/internal/auth"
	"github.com/pipecraft/apiserver/internal/ident"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/internal/storage"
	"github.com/pipecraft/apiserver/internal/store"
	"github.com/pipecraft/apiserver/types"
)

const (
	msgEmailExists     = "email already exists"
	msgUserNotFound    = "user not found"
	msgOldPasswordBad  = "old password incorrect"
	columnRefreshToken = "refresh_token"
	columnPasswordHash = "password_hash"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Patch(ctx context.Context, id string, cs patch.Changeset) (types.User, error)
	Delete(ctx context.Context, id string) error
}

// Session is the credential pair handed out by login and refresh.
type Session struct {
	User         *types.User `json:"user,omitempty"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// SessionService owns registration and the single-active-session lifecycle:
// a login persists the refresh token it issues, and refresh honours only
// that exact value until the next login or logout.
type SessionService struct {
	users   UserRepository
	hasher  auth.PasswordHasher
	tokens  *auth.TokenCodec
	blobs   BlobLifecycle
	logger  logging.Logger
	secrets *patch.Builder
}

func NewSessionService(users UserRepository, hasher auth.PasswordHasher, tokens *auth.TokenCodec, blobs BlobLifecycle, logger logging.Logger) *SessionService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SessionService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		blobs:   blobs,
		logger:  logger,
		secrets: patch.NewBuilder([]string{columnRefreshToken, columnPasswordHash}),
	}
}

// Register creates a user with role user. Email uniqueness is enforced by
// the store in the same write that creates the row. A provided avatar is
// uploaded first and removed again if the user cannot be created.
func (s *SessionService) Register(ctx context.Context, req types.RegisterRequest, avatar *File) (types.User, error) {
	if err := validate(req); err != nil {
		return types.User{}, err
	}
	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return types.User{}, apperr.Dependency(err, "failed to hash password")
	}

	user := types.User{
		Email:        req.Email,
		PasswordHash: digest,
		Name:         req.Name,
		Role:         auth.RoleUser,
		Phone:        req.Phone,
		Age:          req.Age,
	}
	first := ident.New(ident.User)
	insert := func(ctx context.Context) error {
		_, err := ident.CreateWithRetryFrom(ctx, first, ident.User, store.ErrDuplicateID, func(ctx context.Context, id string) error {
			user.ID = id
			created, err := s.users.Create(ctx, user)
			if err != nil {
				return err
			}
			user = created
			return nil
		})
		return err
	}

	if avatar == nil {
		err = insert(ctx)
	} else {
		_, err = s.blobs.Create(ctx, avatar.upload(avatarPrefix, first), func(ctx context.Context, ref string) error {
			user.Avatar = &ref
			return insert(ctx)
		})
	}
	switch {
	case err == nil:
		s.logger.Info(ctx, "user registered", "user_id", user.ID)
		return user, nil
	case errors.Is(err, store.ErrConflict):
		return types.User{}, apperr.Conflict(msgEmailExists)
	default:
		return types.User{}, apperr.Dependency(err, "failed to create user")
	}
}

// Login verifies credentials and starts a new session, ending any previous
// one. Unknown emails and wrong passwords fail identically.
func (s *SessionService) Login(ctx context.Context, req types.LoginRequest) (Session, error) {
	if err := validate(req); err != nil {
		return Session{}, err
	}
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, apperr.Unauthenticated(apperr.MsgInvalidCredentials)
		}
		return Session{}, apperr.Dependency(err, "failed to load user")
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return Session{}, apperr.Unauthenticated(apperr.MsgInvalidCredentials)
	}

	access, err := s.tokens.IssueAccess(accessClaims(user))
	if err != nil {
		return Session{}, apperr.Dependency(err, "failed to issue access token")
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return Session{}, apperr.Dependency(err, "failed to issue refresh token")
	}

	u := s.secrets.Start()
	u.SetValue(columnRefreshToken, refresh)
	cs, err := build(u)
	if err != nil {
		return Session{}, err
	}
	updated, err := s.users.Patch(ctx, user.ID, cs)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, apperr.Unauthenticated(apperr.MsgInvalidCredentials)
		}
		return Session{}, apperr.Dependency(err, "failed to persist session")
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return Session{User: &updated, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh mints a new access token for a refresh token that is still the
// persisted one. The refresh token itself is returned unchanged.
func (s *SessionService) Refresh(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, apperr.Unauthenticated(apperr.MsgMissingToken)
	}
	claims, err := s.tokens.VerifyRefresh(token)
	if err != nil {
		s.logger.Debug(ctx, "refresh token rejected", "error", err)
		return Session{}, apperr.Unauthenticated(apperr.MsgInvalidToken)
	}
	user, err := s.users.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, apperr.Unauthenticated(apperr.MsgInvalidToken)
		}
		return Session{}, apperr.Dependency(err, "failed to load user")
	}
	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(token)) != 1 {
		return Session{}, apperr.Unauthenticated(apperr.MsgInvalidToken)
	}

	access, err := s.tokens.IssueAccess(accessClaims(user))
	if err != nil {
		return Session{}, apperr.Dependency(err, "failed to issue access token")
	}
	return Session{AccessToken: access, RefreshToken: token}, nil
}

// Logout ends the session of id. A user that no longer exists has no session.
func (s *SessionService) Logout(ctx context.Context, id string) error {
	u := s.secrets.Start()
	u.SetValue(columnRefreshToken, nil)
	cs, err := build(u)
	if err != nil {
		return err
	}
	if _, err := s.users.Patch(ctx, id, cs); err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperr.Dependency(err, "failed to end session")
	}
	s.logger.Info(ctx, "user logged out", "user_id", id)
	return nil
}

// ChangePassword replaces the password of the authenticated actor. The
// current session stays valid.
func (s *SessionService) ChangePassword(ctx context.Context, actor auth.Identity, req types.ChangePasswordRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return storeError(err, msgUserNotFound, "failed to load user")
	}
	if !s.hasher.Verify(req.OldPassword, user.PasswordHash) {
		return apperr.Validation(msgOldPasswordBad)
	}
	digest, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperr.Dependency(err, "failed to hash password")
	}

	u := s.secrets.Start()
	u.SetValue(columnPasswordHash, digest)
	cs, err := build(u)
	if err != nil {
		return err
	}
	if _, err := s.users.Patch(ctx, user.ID, cs); err != nil {
		return storeError(err, msgUserNotFound, "failed to update password")
	}
	s.logger.Info(ctx, "password changed", "user_id", user.ID)
	return nil
}

// Authenticate resolves an access token to the caller's live identity. Every
// failure, including store errors, is reported as the same 401.
func (s *SessionService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Identity{}, apperr.Unauthenticated(apperr.MsgMissingToken)
	}
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		s.logger.Debug(ctx, "access token rejected", "error", err)
		return auth.Identity{}, apperr.Unauthenticated(apperr.MsgInvalidToken)
	}
	user, err := s.users.GetByID(ctx, claims.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn(ctx, "failed to resolve token identity", "user_id", claims.ID, "error", err)
		}
		return auth.Identity{}, apperr.Unauthenticated(apperr.MsgInvalidToken)
	}
	return identityOf(user), nil
}

func accessClaims(user types.User) auth.AccessClaims {
	return auth.AccessClaims{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.Name,
		Role:        user.Role,
	}
}

func identityOf(user types.User) auth.Identity {
	return auth.Identity{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.Name,
		Role:        user.Role,
		Age:         user.Age,
		AvatarRef:   user.Avatar,
		Phone:       user.Phone,
	}
}

var _ BlobLifecycle = (*storage.Lifecycle)(nil)
