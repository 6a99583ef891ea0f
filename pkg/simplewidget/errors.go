package simplewidget

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrWidgetNotFound indicates a widget was not found
	ErrWidgetNotFound = errors.New("widget not found")

	// ErrWidgetExpired indicates a widget exists but is past its expiry
	ErrWidgetExpired = errors.New("widget expired")

	// ErrWidgetInactive indicates a widget exists but is not publicly visible
	ErrWidgetInactive = errors.New("widget inactive")

	// ErrSlugTaken indicates the requested slug is already allocated
	ErrSlugTaken = errors.New("slug already taken")

	// ErrInvalidSlug indicates a slug failed validation
	ErrInvalidSlug = errors.New("invalid slug")

	// ErrInvalidConfig indicates widget config data failed validation
	ErrInvalidConfig = errors.New("invalid widget config")

	// ErrNotOwner indicates the caller does not own the widget
	ErrNotOwner = errors.New("widget not owned by caller")

	// ErrRateLimited indicates the caller exceeded a rate limit
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidUpload indicates an upload failed validation
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrUploadTooLarge indicates an upload exceeds the size limit
	ErrUploadTooLarge = errors.New("upload exceeds size limit")

	// ErrUnsupportedMediaType indicates an upload has a disallowed MIME type
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

// WidgetError represents an error related to widget operations
type WidgetError struct {
	WidgetID uuid.UUID
	Op       string
	Err      error
}

func (e *WidgetError) Error() string {
	return fmt.Sprintf("widget operation %s failed for widget %s: %v", e.Op, e.WidgetID, e.Err)
}

func (e *WidgetError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
