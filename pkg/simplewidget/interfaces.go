package simplewidget

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// GetSignedURL returns a time-limited URL for reading an object
	GetSignedURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)

	// GetUploadURL returns a URL for uploading an object directly
	GetUploadURL(ctx context.Context, objectKey string) (string, error)

	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Delete deletes an object
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for widget persistence
type Repository interface {
	CreateWidget(ctx context.Context, widget *Widget) error
	GetWidget(ctx context.Context, id uuid.UUID) (*Widget, error)
	GetWidgetBySlug(ctx context.Context, slug string) (*Widget, error)
	ListWidgets(ctx context.Context, ownerID uuid.UUID) ([]*Widget, error)
	UpdateWidget(ctx context.Context, widget *Widget) error
	DeleteWidget(ctx context.Context, id uuid.UUID) error

	// SlugExists reports whether any live widget holds the slug
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
