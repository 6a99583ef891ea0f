package simplewidget

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the simple-widget library
type Service interface {
	// Widget operations
	CreateWidget(ctx context.Context, req CreateWidgetRequest) (*Widget, error)
	GetWidget(ctx context.Context, ownerID, id uuid.UUID) (*Widget, error)
	ListWidgets(ctx context.Context, ownerID uuid.UUID) ([]*Widget, error)
	UpdateWidget(ctx context.Context, req UpdateWidgetRequest) (*Widget, error)
	DeleteWidget(ctx context.Context, ownerID, id uuid.UUID) error

	// Link operations
	GenerateLink(ctx context.Context, ownerID, id uuid.UUID) (*GeneratedLink, error)

	// Public operations
	GetPublicWidget(ctx context.Context, slug string) (*PublicWidget, error)
	RefreshAssets(ctx context.Context, slug string) (map[string]string, error)

	// Asset operations
	UploadAsset(ctx context.Context, req UploadAssetRequest) (*UploadedAsset, error)

	// Storage backend operations
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}
