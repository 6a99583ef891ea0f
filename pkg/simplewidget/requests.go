package simplewidget

import (
	"io"

	"github.com/google/uuid"
)

// Request/Response DTOs

// CreateWidgetRequest contains parameters for creating a new widget
type CreateWidgetRequest struct {
	OwnerID    uuid.UUID
	Title      string
	Slug       string // optional; validated and reserved-word checked when set
	ConfigData ConfigData
}

// UpdateWidgetRequest contains parameters for updating a widget. Nil
// fields are left unchanged.
type UpdateWidgetRequest struct {
	WidgetID   uuid.UUID
	OwnerID    uuid.UUID
	Title      *string
	ConfigData *ConfigData
	AssetRefs  *AssetRefs
	IsActive   *bool
}

// UploadAssetRequest contains parameters for uploading a widget image.
// When WidgetID is set the uploaded object is attached to that widget's
// asset slot and the replaced object is removed.
type UploadAssetRequest struct {
	OwnerID   uuid.UUID
	WidgetID  uuid.UUID // optional
	AssetType AssetType
	FileName  string
	MimeType  string
	Size      int64
	Reader    io.Reader
}
