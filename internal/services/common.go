package services

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/pipecraft/apiserver/internal/apperr"
	"github.com/pipecraft/apiserver/internal/patch"
	"github.com/pipecraft/apiserver/internal/storage"
	"github.com/pipecraft/apiserver/internal/store"
)

// Object key prefixes for uploaded blobs.
const (
	avatarPrefix  = "avatars"
	projectPrefix = "projects"
	resumePrefix  = "resumes"
)

const msgInvalidRequest = "invalid request"

// BlobLifecycle uploads and removes the blobs referenced by records.
type BlobLifecycle interface {
	Create(ctx context.Context, up storage.Upload, link storage.LinkFunc) (string, error)
	Replace(ctx context.Context, oldRef *string, up storage.Upload, link storage.LinkFunc) (string, error)
	Remove(ctx context.Context, ref *string)
}

// File is one uploaded multipart file.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// upload keys the object under owner. owner is the id drawn before the
// insert, so after an id collision it can differ from the stored record's id.
func (f *File) upload(prefix, owner string) storage.Upload {
	return storage.Upload{
		Key:         storage.ObjectKey(prefix, owner, f.Name),
		Body:        f.Body,
		Size:        f.Size,
		ContentType: f.ContentType,
	}
}

type validatable interface {
	Validate() error
}

func validate(v validatable) error {
	return apperr.FromValidation(msgInvalidRequest, v.Validate())
}

// build finishes u, turning an empty patch into a validation failure.
func build(u *patch.Update) (patch.Changeset, error) {
	cs, err := u.Build()
	if errors.Is(err, patch.ErrNoFields) {
		return patch.Changeset{}, apperr.Validation(patch.ErrNoFields.Error())
	}
	if err != nil {
		return patch.Changeset{}, apperr.Dependency(err, "failed to build update")
	}
	return cs, nil
}

// storeError classifies a repository failure. Errors that already carry a
// status pass through unchanged.
func storeError(err error, notFound, op string) error {
	if err == nil {
		return nil
	}
	if apperr.Status(err) != http.StatusInternalServerError {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Dependency(err, op)
}
