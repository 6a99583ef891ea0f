package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tendant/simple-widget/pkg/simplewidget"
)

// Backend is an in-memory implementation of the simplewidget.BlobStore
// interface, intended for tests and local development. Signed URLs use a
// memory:// scheme carrying the expiry; they are not fetchable but let
// the rest of the stack exercise its signing paths.
type Backend struct {
	mu      sync.RWMutex
	objects map[string]*object
	now     func() time.Time
}

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]*object),
		now:     time.Now,
	}
}

// GetSignedURL returns a deterministic pseudo-signed URL for the object
func (b *Backend) GetSignedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[objectKey]; !exists {
		return "", errors.New("object not found")
	}
	expires := b.now().Add(ttl).Unix()
	return fmt.Sprintf("memory://%s?expires=%d", objectKey, expires), nil
}

// GetUploadURL returns a pseudo upload URL for the key
func (b *Backend) GetUploadURL(ctx context.Context, objectKey string) (string, error) {
	return fmt.Sprintf("memory://%s?upload=1", objectKey), nil
}

// Upload stores content in memory
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	return b.UploadWithParams(ctx, reader, simplewidget.UploadParams{
		ObjectKey: objectKey,
		MimeType:  "application/octet-stream",
	})
}

// UploadWithParams stores content with its MIME type
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params simplewidget.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[params.ObjectKey] = &object{
		data:        data,
		contentType: params.MimeType,
		updatedAt:   b.now().UTC(),
	}

	return nil
}

// Download returns the stored content
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete removes an object
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return errors.New("object not found")
	}
	delete(b.objects, objectKey)
	return nil
}

// GetObjectMeta retrieves metadata for a stored object
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*simplewidget.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	return &simplewidget.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
		Metadata:    map[string]string{"content_type": obj.contentType},
	}, nil
}
