package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-widget/pkg/simplewidget"
)

// statusForError maps service errors to HTTP status codes
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, simplewidget.ErrWidgetNotFound),
		errors.Is(err, simplewidget.ErrWidgetInactive):
		return http.StatusNotFound, "widget_not_found"
	case errors.Is(err, simplewidget.ErrWidgetExpired):
		return http.StatusGone, "widget_expired"
	case errors.Is(err, simplewidget.ErrNotOwner):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, simplewidget.ErrSlugTaken):
		return http.StatusConflict, "slug_taken"
	case errors.Is(err, simplewidget.ErrInvalidSlug),
		errors.Is(err, simplewidget.ErrInvalidConfig),
		errors.Is(err, simplewidget.ErrInvalidUpload):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, simplewidget.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge, "upload_too_large"
	case errors.Is(err, simplewidget.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs
		message = "An internal server error occurred"
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func renderBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    "invalid_request",
			"message": message,
		},
	})
}
