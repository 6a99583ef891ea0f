package simplewidget

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tendant/simple-widget/pkg/simplewidget/assets"
	"github.com/tendant/simple-widget/pkg/simplewidget/embed"
	"github.com/tendant/simple-widget/pkg/simplewidget/objectkey"
	"github.com/tendant/simple-widget/pkg/simplewidget/slug"
)

// Upload constraints for widget images.
const (
	// MaxUploadSize caps widget image uploads at 5 MiB.
	MaxUploadSize = 5 * 1024 * 1024

	// DefaultBackendName is the backend used when none is configured.
	DefaultBackendName = "default"
)

// Text field limits applied during sanitization.
const (
	maxTitleLength      = 100
	maxNicknameLength   = 50
	maxTaglineLength    = 150
	maxCustomTextLength = 200
)

// allowedImageTypes maps accepted MIME types to stored file extensions.
var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// service implements the Service interface
type service struct {
	repository     Repository
	blobStores     map[string]BlobStore
	defaultBackend string
	publicBaseURL  string
	signedURLTTL   time.Duration
	keyGenerator   objectkey.Generator
	logger         *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
	}
}

// WithDefaultBackend names the backend used for uploads and signing
func WithDefaultBackend(name string) Option {
	return func(s *service) {
		s.defaultBackend = name
	}
}

// WithPublicBaseURL sets the base URL embedded in generated links
func WithPublicBaseURL(baseURL string) Option {
	return func(s *service) {
		s.publicBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithSignedURLTTL overrides the lifetime of signed asset URLs
func WithSignedURLTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.signedURLTTL = ttl
		}
	}
}

// WithObjectKeyGenerator overrides the asset key generation strategy
func WithObjectKeyGenerator(generator objectkey.Generator) Option {
	return func(s *service) {
		if generator != nil {
			s.keyGenerator = generator
		}
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores:     make(map[string]BlobStore),
		defaultBackend: DefaultBackendName,
		publicBaseURL:  "http://localhost:8080",
		signedURLTTL:   assets.DefaultTTL,
		keyGenerator:   objectkey.NewOwnerScopedGenerator(),
		logger:         slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// Widget operations

func (s *service) CreateWidget(ctx context.Context, req CreateWidgetRequest) (*Widget, error) {
	allocated, err := s.allocateSlug(ctx, req.Slug, req.Title)
	if err != nil {
		return nil, err
	}

	config, err := sanitizeConfig(req.ConfigData)
	if err != nil {
		return nil, err
	}

	// Widgets start unpublished; generating a share link flips them live.
	now := time.Now().UTC()
	widget := &Widget{
		ID:         uuid.New(),
		OwnerID:    req.OwnerID,
		Slug:       allocated,
		Title:      sanitizeText(req.Title, maxTitleLength),
		ConfigData: config,
		Version:    1,
		IsActive:   false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repository.CreateWidget(ctx, widget); err != nil {
		return nil, &WidgetError{WidgetID: widget.ID, Op: "create", Err: err}
	}

	return widget, nil
}

func (s *service) GetWidget(ctx context.Context, ownerID, id uuid.UUID) (*Widget, error) {
	widget, err := s.repository.GetWidget(ctx, id)
	if err != nil {
		return nil, err
	}
	if widget.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return widget, nil
}

func (s *service) ListWidgets(ctx context.Context, ownerID uuid.UUID) ([]*Widget, error) {
	return s.repository.ListWidgets(ctx, ownerID)
}

func (s *service) UpdateWidget(ctx context.Context, req UpdateWidgetRequest) (*Widget, error) {
	widget, err := s.GetWidget(ctx, req.OwnerID, req.WidgetID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		widget.Title = sanitizeText(*req.Title, maxTitleLength)
	}
	if req.ConfigData != nil {
		config, err := sanitizeConfig(*req.ConfigData)
		if err != nil {
			return nil, err
		}
		widget.ConfigData = config
	}
	if req.AssetRefs != nil {
		widget.AssetRefs = *req.AssetRefs
	}
	if req.IsActive != nil {
		widget.IsActive = *req.IsActive
	}

	// Every successful mutation bumps the version; viewers use it as an
	// ETag to detect stale caches.
	widget.Version++
	widget.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateWidget(ctx, widget); err != nil {
		return nil, &WidgetError{WidgetID: widget.ID, Op: "update", Err: err}
	}

	return widget, nil
}

func (s *service) DeleteWidget(ctx context.Context, ownerID, id uuid.UUID) error {
	widget, err := s.GetWidget(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repository.DeleteWidget(ctx, id); err != nil {
		return &WidgetError{WidgetID: id, Op: "delete", Err: err}
	}
	s.cleanupAssets(ctx, widget)
	return nil
}

// Link operations

func (s *service) GenerateLink(ctx context.Context, ownerID, id uuid.UUID) (*GeneratedLink, error) {
	widget, err := s.GetWidget(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	dirty := false
	if widget.Slug == "" {
		allocated, err := s.allocateSlug(ctx, "", widget.Title)
		if err != nil {
			return nil, err
		}
		widget.Slug = allocated
		dirty = true
	}

	// Sharing implies publishing: an inactive widget goes live when its
	// link is generated.
	if !widget.IsActive {
		widget.IsActive = true
		dirty = true
	}

	if dirty {
		widget.Version++
		widget.UpdatedAt = time.Now().UTC()
		if err := s.repository.UpdateWidget(ctx, widget); err != nil {
			return nil, &WidgetError{WidgetID: widget.ID, Op: "generate link", Err: err}
		}
	}

	return &GeneratedLink{
		LinkPreview: embed.Preview(s.publicBaseURL, widget.Slug),
		IsActive:    widget.IsActive,
		ExpiresAt:   widget.ExpiresAt,
	}, nil
}

// Public operations

func (s *service) GetPublicWidget(ctx context.Context, slugValue string) (*PublicWidget, error) {
	widget, err := s.visibleWidget(ctx, slugValue)
	if err != nil {
		return nil, err
	}

	return &PublicWidget{
		Slug:       widget.Slug,
		Title:      widget.Title,
		ConfigData: widget.ConfigData,
		AssetURLs:  s.resolveAssets(ctx, widget),
		Version:    widget.Version,
		UpdatedAt:  widget.UpdatedAt,
	}, nil
}

func (s *service) RefreshAssets(ctx context.Context, slugValue string) (map[string]string, error) {
	widget, err := s.visibleWidget(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	return s.resolveAssets(ctx, widget), nil
}

// Asset operations

func (s *service) UploadAsset(ctx context.Context, req UploadAssetRequest) (*UploadedAsset, error) {
	if !req.AssetType.Valid() {
		return nil, fmt.Errorf("%w: unknown asset type %q", ErrInvalidUpload, req.AssetType)
	}
	if req.Size <= 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidUpload)
	}
	if req.Size > MaxUploadSize {
		return nil, ErrUploadTooLarge
	}
	ext, ok := allowedImageTypes[strings.ToLower(req.MimeType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, req.MimeType)
	}

	backend, err := s.GetBackend(s.defaultBackend)
	if err != nil {
		return nil, err
	}

	key := s.keyGenerator.GenerateKey(req.OwnerID, string(req.AssetType), ext)
	if err := backend.UploadWithParams(ctx, req.Reader, UploadParams{
		ObjectKey: key,
		MimeType:  req.MimeType,
	}); err != nil {
		return nil, &StorageError{Backend: s.defaultBackend, Key: key, Op: "upload", Err: err}
	}

	if req.WidgetID != uuid.Nil {
		if err := s.attachAsset(ctx, req.OwnerID, req.WidgetID, req.AssetType, key); err != nil {
			return nil, err
		}
	}

	asset := &UploadedAsset{
		Key:       key,
		AssetType: req.AssetType,
		Size:      req.Size,
		MimeType:  req.MimeType,
	}

	// Signing the fresh upload is best effort; the key alone is enough
	// for the client to attach the asset to a widget.
	resolver := assets.NewResolver(backend, assets.WithTTL(s.signedURLTTL), assets.WithLogger(s.logger))
	asset.SignedURL = resolver.ResolveOne(ctx, key)

	return asset, nil
}

// Storage backend operations

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	backend, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("storage backend not found: %s", name)
	}
	return backend, nil
}

// Helpers

// allocateSlug validates an explicitly requested slug or derives a unique
// one from the widget title.
func (s *service) allocateSlug(ctx context.Context, requested, title string) (string, error) {
	if requested != "" {
		if !slug.Validate(requested) {
			return "", fmt.Errorf("%w: %s", ErrInvalidSlug, requested)
		}
		exists, err := s.repository.SlugExists(ctx, requested)
		if err != nil {
			return "", err
		}
		if exists {
			return "", fmt.Errorf("%w: %s", ErrSlugTaken, requested)
		}
		return requested, nil
	}

	return slug.GenerateUnique(ctx, title, func(ctx context.Context, candidate string) (bool, error) {
		exists, err := s.repository.SlugExists(ctx, candidate)
		return !exists, err
	})
}

// attachAsset points a widget's asset slot at a freshly uploaded object
// and removes the object it replaced.
func (s *service) attachAsset(ctx context.Context, ownerID, widgetID uuid.UUID, assetType AssetType, key string) error {
	widget, err := s.GetWidget(ctx, ownerID, widgetID)
	if err != nil {
		return err
	}

	var previous string
	switch assetType {
	case AssetTypeHeader:
		previous = widget.AssetRefs.HeaderImage
		widget.AssetRefs.HeaderImage = key
	case AssetTypeProfile:
		previous = widget.AssetRefs.ProfileImage
		widget.AssetRefs.ProfileImage = key
	}

	widget.Version++
	widget.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateWidget(ctx, widget); err != nil {
		return &WidgetError{WidgetID: widget.ID, Op: "attach asset", Err: err}
	}

	// Removing the replaced object is best effort; an orphaned blob is
	// harmless.
	if previous != "" && previous != key {
		if backend, err := s.GetBackend(s.defaultBackend); err == nil {
			if err := backend.Delete(ctx, previous); err != nil {
				s.logger.WarnContext(ctx, "failed to delete replaced asset",
					"widget_id", widget.ID, "key", previous, "error", err)
			}
		}
	}

	return nil
}

// cleanupAssets removes a deleted widget's stored images. Failures are
// logged only; the widget record is already gone.
func (s *service) cleanupAssets(ctx context.Context, widget *Widget) {
	refs := widget.AssetRefs.AsMap()
	if len(refs) == 0 {
		return
	}
	backend, err := s.GetBackend(s.defaultBackend)
	if err != nil {
		return
	}
	for name, key := range refs {
		if err := backend.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete widget asset",
				"widget_id", widget.ID, "asset", name, "key", key, "error", err)
		}
	}
}

// visibleWidget fetches a widget by slug and applies public visibility
// rules: inactive widgets are reported inactive, expired widgets expired.
func (s *service) visibleWidget(ctx context.Context, slugValue string) (*Widget, error) {
	if !slug.ValidFormat(slugValue) {
		return nil, ErrWidgetNotFound
	}
	widget, err := s.repository.GetWidgetBySlug(ctx, slugValue)
	if err != nil {
		return nil, err
	}
	if !widget.IsActive {
		return nil, ErrWidgetInactive
	}
	if widget.ExpiresAt != nil && time.Now().After(*widget.ExpiresAt) {
		return nil, ErrWidgetExpired
	}
	return widget, nil
}

func (s *service) resolveAssets(ctx context.Context, widget *Widget) map[string]string {
	backend, err := s.GetBackend(s.defaultBackend)
	if err != nil {
		s.logger.WarnContext(ctx, "no storage backend for asset signing",
			"backend", s.defaultBackend, "widget_id", widget.ID)
		return map[string]string{}
	}
	resolver := assets.NewResolver(backend, assets.WithTTL(s.signedURLTTL), assets.WithLogger(s.logger))
	return resolver.Resolve(ctx, widget.AssetRefs.AsMap())
}

// sanitizeText strips markup and control characters from user-supplied
// text and enforces a length cap.
func sanitizeText(input string, maxLen int) string {
	var b strings.Builder
	inTag := false
	for _, ch := range input {
		switch {
		case ch == '<':
			inTag = true
		case ch == '>':
			inTag = false
		case inTag:
		case unicode.IsControl(ch):
		default:
			b.WriteRune(ch)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if len(cleaned) > maxLen {
		// Truncate on a rune boundary so the cap never splits a
		// multibyte character.
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = cleaned[:cut]
	}
	return cleaned
}

// sanitizeConfig sanitizes every text field and validates the link URL.
func sanitizeConfig(config ConfigData) (ConfigData, error) {
	config.Nickname = sanitizeText(config.Nickname, maxNicknameLength)
	config.Tagline = sanitizeText(config.Tagline, maxTaglineLength)
	config.CustomText1 = sanitizeText(config.CustomText1, maxCustomTextLength)
	config.CustomText2 = sanitizeText(config.CustomText2, maxCustomTextLength)
	config.ButtonColor = sanitizeText(config.ButtonColor, 32)

	if config.LinkURL != "" {
		parsed, err := url.Parse(config.LinkURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return ConfigData{}, fmt.Errorf("%w: link URL must be http or https", ErrInvalidConfig)
		}
	}

	return config, nil
}
