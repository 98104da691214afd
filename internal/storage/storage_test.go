package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/pipecraft/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
}

func newMemBackend() *memBackend {
	return &memBackend{objects: make(map[string][]byte)}
}

func (m *memBackend) EnsureBucket(context.Context) error { return nil }

func (m *memBackend) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memBackend) Bucket() string { return "pipecraft" }

func (m *memBackend) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func TestLocatorRoundTrip(t *testing.T) {
	s := NewStorage(newMemBackend(), "https://cdn.example.com/assets/")

	ref := s.Locator("avatars/USR1-abc-me.png")
	assert.Equal(t, "https://cdn.example.com/assets/avatars/USR1-abc-me.png", ref)

	key, ok := s.KeyFromLocator(ref)
	require.True(t, ok)
	assert.Equal(t, "avatars/USR1-abc-me.png", key)

	_, ok = s.KeyFromLocator("https://elsewhere.example.com/avatars/x.png")
	assert.False(t, ok)
	_, ok = s.KeyFromLocator("")
	assert.False(t, ok)
}

func TestLocatorWithoutBaseURL(t *testing.T) {
	s := NewStorage(newMemBackend(), "")

	assert.Equal(t, "resumes/APP1-n-cv.pdf", s.Locator("resumes/APP1-n-cv.pdf"))
	key, ok := s.KeyFromLocator("resumes/APP1-n-cv.pdf")
	require.True(t, ok)
	assert.Equal(t, "resumes/APP1-n-cv.pdf", key)

	_, ok = s.KeyFromLocator("https://legacy-bucket.s3.amazonaws.com/x.png")
	assert.False(t, ok)
}

func TestObjectKey(t *testing.T) {
	a := ObjectKey("avatars/", "USR1", "../../my photo.png")
	b := ObjectKey("avatars", "USR1", "../../my photo.png")

	assert.True(t, strings.HasPrefix(a, "avatars/USR1-"))
	assert.True(t, strings.HasSuffix(a, "-my_photo.png"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(ObjectKey("resumes", "APP1", ""), "-file"))
}

func TestStorageDelete_MissingIsNotAnError(t *testing.T) {
	s := NewStorage(newMemBackend(), "")
	assert.NoError(t, s.Delete(context.Background(), "nope"))
}

func TestNew_UnsupportedBackend(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestNewMinioClient_RequiresConfig(t *testing.T) {
	_, err := NewMinioClient(config.MinioConfig{})
	assert.Error(t, err)
	_, err = NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err)
}

func upload(key, body string) Upload {
	return Upload{Key: key, Body: bytes.NewBufferString(body), Size: int64(len(body)), ContentType: "text/plain"}
}

var errStore = errors.New("storage unavailable")
