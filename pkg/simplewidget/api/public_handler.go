package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-widget/pkg/simplewidget"
	"github.com/tendant/simple-widget/pkg/simplewidget/ratelimit"
)

// Public route rate limits, keyed by client IP.
const (
	publicReadLimit    = 100
	refreshLimit       = 10
	publicLimitWindow  = time.Minute
	publicCacheMaxAge  = 3600
	refreshCacheMaxAge = 300
)

// PublicHandler serves anonymous widget reads
type PublicHandler struct {
	service simplewidget.Service
	limiter ratelimit.Limiter
	logger  *slog.Logger
}

// NewPublicHandler creates a new public widget handler
func NewPublicHandler(service simplewidget.Service, limiter ratelimit.Limiter, logger *slog.Logger) *PublicHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublicHandler{
		service: service,
		limiter: limiter,
		logger:  logger,
	}
}

// Routes returns the routes for public widget access
func (h *PublicHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(EmbedHeaders)

	r.With(RateLimit(h.limiter, "public-read", publicReadLimit, publicLimitWindow, ClientIP)).
		Get("/{slug}", h.GetWidget)
	r.With(RateLimit(h.limiter, "refresh", refreshLimit, publicLimitWindow, ClientIP)).
		Get("/{slug}/refresh", h.RefreshAssets)

	return r
}

// GetWidget serves the public widget payload. Responses carry the widget
// version as an ETag so embedders can revalidate cheaply.
func (h *PublicHandler) GetWidget(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	widget, err := h.service.GetPublicWidget(r.Context(), slug)
	if err != nil {
		h.logger.InfoContext(r.Context(), "public widget fetch failed", "slug", slug, "error", err)
		renderError(w, r, err)
		return
	}

	etag := fmt.Sprintf(`"v%d"`, widget.Version)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", publicCacheMaxAge))
	w.Header().Set("ETag", etag)
	render.JSON(w, r, widget)
}

// RefreshAssets re-signs the widget's asset URLs. Clients call this when
// a cached payload's signed URLs have gone stale.
func (h *PublicHandler) RefreshAssets(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	urls, err := h.service.RefreshAssets(r.Context(), slug)
	if err != nil {
		h.logger.InfoContext(r.Context(), "asset refresh failed", "slug", slug, "error", err)
		renderError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", refreshCacheMaxAge))
	render.JSON(w, r, map[string]interface{}{
		"asset_urls": urls,
	})
}
