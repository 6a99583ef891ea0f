package simplewidget

import (
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-widget/pkg/simplewidget/embed"
)

// Widget represents a hosted profile widget
type Widget struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	Slug       string     `json:"slug"`
	Title      string     `json:"title"`
	ConfigData ConfigData `json:"config_data"`
	AssetRefs  AssetRefs  `json:"asset_refs"`
	Version    int        `json:"version"`
	IsActive   bool       `json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// ConfigData holds the rendered widget content supplied by its owner
type ConfigData struct {
	Nickname    string `json:"nickname,omitempty"`
	Tagline     string `json:"tagline,omitempty"`
	LinkURL     string `json:"link_url,omitempty"`
	ButtonColor string `json:"button_color,omitempty"`
	CustomText1 string `json:"custom_text_1,omitempty"`
	CustomText2 string `json:"custom_text_2,omitempty"`
}

// AssetRefs holds storage keys for the widget's uploaded images. Keys are
// opaque object-store references, never URLs.
type AssetRefs struct {
	HeaderImage  string `json:"header_image,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// AsMap returns the non-empty refs keyed by asset type name.
func (r AssetRefs) AsMap() map[string]string {
	refs := make(map[string]string, 2)
	if r.HeaderImage != "" {
		refs["header_image"] = r.HeaderImage
	}
	if r.ProfileImage != "" {
		refs["profile_image"] = r.ProfileImage
	}
	return refs
}

// AssetType identifies which widget image slot an upload targets
type AssetType string

const (
	AssetTypeHeader  AssetType = "header"
	AssetTypeProfile AssetType = "profile"
)

// Valid reports whether the asset type is a known image slot
func (t AssetType) Valid() bool {
	return t == AssetTypeHeader || t == AssetTypeProfile
}

// GeneratedLink is the result of a link generation request: the embed
// artifacts for the slug plus the widget's publish state.
type GeneratedLink struct {
	embed.LinkPreview
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// PublicWidget is the read-only projection served to anonymous viewers.
// Asset refs are replaced with signed URLs and owner identifiers are
// stripped.
type PublicWidget struct {
	Slug       string            `json:"slug"`
	Title      string            `json:"title"`
	ConfigData ConfigData        `json:"config_data"`
	AssetURLs  map[string]string `json:"asset_urls"`
	Version    int               `json:"version"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// UploadedAsset describes a stored upload
type UploadedAsset struct {
	Key       string    `json:"key"`
	AssetType AssetType `json:"asset_type"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	SignedURL string    `json:"signed_url,omitempty"`
}
