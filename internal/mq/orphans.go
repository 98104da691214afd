package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/storage"
)

// EventBlobOrphaned is the type attribute of orphan notifications.
const EventBlobOrphaned = "blob.orphaned"

const attrEventType = "event-type"

// OrphanNotifier publishes a notification for every blob the lifecycle
// failed to delete. It implements storage.OrphanReporter.
type OrphanNotifier struct {
	mq      *MQ
	channel string
}

func NewOrphanNotifier(m *MQ, channel string) *OrphanNotifier {
	return &OrphanNotifier{mq: m, channel: channel}
}

func (n *OrphanNotifier) ReportOrphan(ctx context.Context, o storage.Orphan) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = n.mq.Publish(ctx, n.channel, data, map[string]string{
		attrEventType:   EventBlobOrphaned,
		AttrContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("publish orphan %s: %w", o.Key, err)
	}
	return nil
}

// DecodeOrphan parses an orphan notification.
func DecodeOrphan(msg Message) (storage.Orphan, error) {
	if t, ok := msg.Attributes[attrEventType]; ok && t != EventBlobOrphaned {
		return storage.Orphan{}, fmt.Errorf("unexpected event type %q", t)
	}
	var o storage.Orphan
	if err := json.Unmarshal(msg.Data, &o); err != nil {
		return storage.Orphan{}, err
	}
	if o.Key == "" {
		return storage.Orphan{}, errors.New("orphan event has no key")
	}
	return o, nil
}

// blobDeleter is the part of storage.Storage used by the janitor.
type blobDeleter interface {
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Janitor consumes orphan notifications and retries the deletion. A failed
// retry is returned to the broker for redelivery under the backend's retry
// policy; malformed events and
// events for another bucket are acknowledged and dropped.
type Janitor struct {
	mq      *MQ
	channel string
	blobs   blobDeleter
	logger  logging.Logger
}

func NewJanitor(m *MQ, channel string, blobs blobDeleter, logger logging.Logger) *Janitor {
	return &Janitor{mq: m, channel: channel, blobs: blobs, logger: logger}
}

// Run blocks until ctx is done or the subscription fails.
func (j *Janitor) Run(ctx context.Context) error {
	j.logger.Info(ctx, "janitor listening for orphaned blobs", "channel", j.channel, "bucket", j.blobs.Bucket())
	return j.mq.Subscribe(ctx, j.channel, j.Handle)
}

// Handle processes a single orphan notification.
func (j *Janitor) Handle(ctx context.Context, msg Message) error {
	o, err := DecodeOrphan(msg)
	if err != nil {
		j.logger.Warn(ctx, "dropping malformed orphan event", "id", msg.ID, "error", err)
		return nil
	}
	if o.Bucket != "" && o.Bucket != j.blobs.Bucket() {
		j.logger.Warn(ctx, "dropping orphan event for another bucket", "bucket", o.Bucket, "key", o.Key)
		return nil
	}
	if err := j.blobs.Delete(ctx, o.Key); err != nil {
		j.logger.Warn(ctx, "orphan delete failed, will retry", "key", o.Key, "error", err)
		return err
	}
	j.logger.Info(ctx, "orphaned blob removed", "key", o.Key)
	return nil
}
