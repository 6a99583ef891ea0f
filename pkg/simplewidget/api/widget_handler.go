package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-widget/pkg/simplewidget"
	"github.com/tendant/simple-widget/pkg/simplewidget/ratelimit"
)

// Dashboard route rate limits, keyed by authenticated user.
const (
	createLimit       = 10
	updateLimit       = 30
	deleteLimit       = 10
	generateLinkLimit = 20
	uploadLimit       = 20

	dashboardLimitWindow = time.Minute
	uploadLimitWindow    = time.Hour
)

// CreateWidgetRequest is the request body for creating a widget
type CreateWidgetRequest struct {
	Title      string                  `json:"title"`
	Slug       string                  `json:"slug,omitempty"`
	ConfigData simplewidget.ConfigData `json:"config_data"`
}

// UpdateWidgetRequest is the request body for updating a widget
type UpdateWidgetRequest struct {
	Title      *string                  `json:"title,omitempty"`
	ConfigData *simplewidget.ConfigData `json:"config_data,omitempty"`
	AssetRefs  *simplewidget.AssetRefs  `json:"asset_refs,omitempty"`
	IsActive   *bool                    `json:"is_active,omitempty"`
}

// DashboardHandler handles authenticated widget management requests
type DashboardHandler struct {
	service   simplewidget.Service
	tokenAuth *jwtauth.JWTAuth
	limiter   ratelimit.Limiter
	logger    *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service simplewidget.Service, tokenAuth *jwtauth.JWTAuth, limiter ratelimit.Limiter, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		service:   service,
		tokenAuth: tokenAuth,
		limiter:   limiter,
		logger:    logger,
	}
}

// Routes returns the authenticated dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(jwtauth.Verifier(h.tokenAuth))
	r.Use(jwtauth.Authenticator)

	r.Route("/widgets", func(r chi.Router) {
		r.Get("/", h.ListWidgets)
		r.With(h.limit("create", createLimit, dashboardLimitWindow)).Post("/", h.CreateWidget)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetWidget)
			r.With(h.limit("update", updateLimit, dashboardLimitWindow)).Put("/", h.UpdateWidget)
			r.With(h.limit("delete", deleteLimit, dashboardLimitWindow)).Delete("/", h.DeleteWidget)
			r.With(h.limit("generate-link", generateLinkLimit, dashboardLimitWindow)).Post("/generate-link", h.GenerateLink)
		})
	})

	r.With(h.limit("upload", uploadLimit, uploadLimitWindow)).Post("/upload", h.UploadAsset)

	return r
}

// limit builds a rate limit middleware keyed by the authenticated user,
// falling back to the client IP when the token is missing a subject.
func (h *DashboardHandler) limit(scope string, max int, window time.Duration) func(http.Handler) http.Handler {
	return RateLimit(h.limiter, scope, max, window, func(r *http.Request) string {
		if ownerID, err := ownerFromContext(r); err == nil {
			return ownerID.String()
		}
		return ClientIP(r)
	})
}

// ownerFromContext extracts the caller's user ID from the verified JWT
func ownerFromContext(r *http.Request) (uuid.UUID, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return uuid.Nil, err
	}
	sub, _ := claims["sub"].(string)
	return uuid.Parse(sub)
}

// ListWidgets lists the caller's widgets
func (h *DashboardHandler) ListWidgets(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	widgets, err := h.service.ListWidgets(r.Context(), ownerID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list widgets", "owner_id", ownerID, "error", err)
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"widgets": widgets,
	})
}

// CreateWidget creates a new widget for the caller
func (h *DashboardHandler) CreateWidget(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateWidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}

	widget, err := h.service.CreateWidget(r.Context(), simplewidget.CreateWidgetRequest{
		OwnerID:    ownerID,
		Title:      req.Title,
		Slug:       req.Slug,
		ConfigData: req.ConfigData,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create widget", "owner_id", ownerID, "error", err)
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, widget)
}

// GetWidget returns one of the caller's widgets
func (h *DashboardHandler) GetWidget(w http.ResponseWriter, r *http.Request) {
	ownerID, widgetID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	widget, err := h.service.GetWidget(r.Context(), ownerID, widgetID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, widget)
}

// UpdateWidget applies a partial update to one of the caller's widgets
func (h *DashboardHandler) UpdateWidget(w http.ResponseWriter, r *http.Request) {
	ownerID, widgetID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	var req UpdateWidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, "invalid request body")
		return
	}

	widget, err := h.service.UpdateWidget(r.Context(), simplewidget.UpdateWidgetRequest{
		WidgetID:   widgetID,
		OwnerID:    ownerID,
		Title:      req.Title,
		ConfigData: req.ConfigData,
		AssetRefs:  req.AssetRefs,
		IsActive:   req.IsActive,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to update widget", "widget_id", widgetID, "error", err)
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, widget)
}

// DeleteWidget soft deletes one of the caller's widgets
func (h *DashboardHandler) DeleteWidget(w http.ResponseWriter, r *http.Request) {
	ownerID, widgetID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteWidget(r.Context(), ownerID, widgetID); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to delete widget", "widget_id", widgetID, "error", err)
		renderError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateLink builds the shareable link artifacts for a widget
func (h *DashboardHandler) GenerateLink(w http.ResponseWriter, r *http.Request) {
	ownerID, widgetID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	preview, err := h.service.GenerateLink(r.Context(), ownerID, widgetID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, preview)
}

// UploadAsset accepts a multipart image upload for the caller
func (h *DashboardHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, simplewidget.MaxUploadSize+4096)
	if err := r.ParseMultipartForm(simplewidget.MaxUploadSize); err != nil {
		renderError(w, r, simplewidget.ErrUploadTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		renderBadRequest(w, r, "missing file field")
		return
	}
	defer file.Close()

	var widgetID uuid.UUID
	if raw := r.FormValue("widget_id"); raw != "" {
		widgetID, err = uuid.Parse(raw)
		if err != nil {
			renderBadRequest(w, r, "invalid widget ID")
			return
		}
	}

	asset, err := h.service.UploadAsset(r.Context(), simplewidget.UploadAssetRequest{
		OwnerID:   ownerID,
		WidgetID:  widgetID,
		AssetType: simplewidget.AssetType(r.FormValue("asset_type")),
		FileName:  header.Filename,
		MimeType:  header.Header.Get("Content-Type"),
		Size:      header.Size,
		Reader:    file,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to upload asset", "owner_id", ownerID, "error", err)
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, asset)
}

func (h *DashboardHandler) requestIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	ownerID, err := ownerFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	widgetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderBadRequest(w, r, "invalid widget ID")
		return uuid.Nil, uuid.Nil, false
	}
	return ownerID, widgetID, true
}
