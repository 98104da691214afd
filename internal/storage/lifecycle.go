package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pipecraft/apiserver/internal/logging"
)

// Orphan describes a blob that is no longer referenced by any record but
// could not be deleted.
type Orphan struct {
	Bucket string    `json:"bucket"`
	Key    string    `json:"key"`
	Ref    string    `json:"ref"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// OrphanReporter is notified of every failed best-effort delete.
type OrphanReporter interface {
	ReportOrphan(ctx context.Context, o Orphan) error
}

// Upload is the content of a new blob.
type Upload struct {
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
}

// LinkFunc persists ref on the owning record.
type LinkFunc func(ctx context.Context, ref string) error

// Lifecycle couples blob uploads and deletions to record mutations. A blob
// is always uploaded before a record references it, and a blob is deleted
// only once no record references it. Deletions are best effort: a failure
// is logged and reported as an orphan but never fails the caller.
type Lifecycle struct {
	storage *Storage
	logger  logging.Logger
	orphans OrphanReporter
	now     func() time.Time
}

// NewLifecycle builds a Lifecycle. orphans may be nil.
func NewLifecycle(s *Storage, logger logging.Logger, orphans OrphanReporter) *Lifecycle {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Lifecycle{
		storage: s,
		logger:  logger,
		orphans: orphans,
		now:     time.Now,
	}
}

// Create uploads up, then calls link with its locator. If link fails the
// new blob is removed and the link error is returned.
func (l *Lifecycle) Create(ctx context.Context, up Upload, link LinkFunc) (string, error) {
	ref, err := l.upload(ctx, up)
	if err != nil {
		return "", err
	}
	if link == nil {
		return ref, nil
	}
	if err := link(ctx, ref); err != nil {
		l.remove(ctx, ref, "")
		return "", err
	}
	return ref, nil
}

// Replace uploads up, links it, and only then deletes the blob behind
// oldRef. A failed upload or link leaves oldRef untouched. The old blob is
// never deleted when it resolves to the key just uploaded.
func (l *Lifecycle) Replace(ctx context.Context, oldRef *string, up Upload, link LinkFunc) (string, error) {
	ref, err := l.Create(ctx, up, link)
	if err != nil {
		return "", err
	}
	if oldRef != nil && *oldRef != ref {
		l.remove(ctx, *oldRef, up.Key)
	}
	return ref, nil
}

// Remove deletes the blob behind ref after its record was deleted.
func (l *Lifecycle) Remove(ctx context.Context, ref *string) {
	if ref == nil {
		return
	}
	l.remove(ctx, *ref, "")
}

func (l *Lifecycle) upload(ctx context.Context, up Upload) (string, error) {
	if err := l.storage.Put(ctx, up.Key, up.Body, up.Size, up.ContentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", up.Key, err)
	}
	return l.storage.Locator(up.Key), nil
}

func (l *Lifecycle) remove(ctx context.Context, ref, keep string) {
	if ref == "" {
		return
	}
	key, ok := l.storage.KeyFromLocator(ref)
	if !ok {
		l.logger.Warn(ctx, "blob reference not managed by storage, skipping delete", "ref", ref)
		return
	}
	if key == keep {
		return
	}
	if err := l.storage.Delete(ctx, key); err != nil {
		l.logger.Warn(ctx, "failed to delete blob, object orphaned", "ref", ref, "key", key, "error", err)
		l.report(ctx, Orphan{
			Bucket: l.storage.Bucket(),
			Key:    key,
			Ref:    ref,
			Reason: err.Error(),
			At:     l.now().UTC(),
		})
	}
}

func (l *Lifecycle) report(ctx context.Context, o Orphan) {
	if l.orphans == nil {
		return
	}
	if err := l.orphans.ReportOrphan(ctx, o); err != nil {
		l.logger.Error(ctx, "failed to report orphaned blob", "key", o.Key, "error", err)
	}
}
