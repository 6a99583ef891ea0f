// Package embed builds the public-facing link artifacts for a widget:
// its public URL, iframe embed snippets and a QR code URL. The markup is
// a compatibility contract with embedding hosts (Notion in particular)
// and must keep lazy loading, a title attribute and a borderless frame.
package embed

import (
	"fmt"
	"net/url"
)

// Default iframe dimensions match the widget card's designed aspect.
const (
	DefaultWidth  = 400
	DefaultHeight = 600
	DefaultTitle  = "Profile Widget"

	// DefaultQRSize is the rendered QR image edge in pixels.
	DefaultQRSize = 200

	qrServiceURL = "https://chart.googleapis.com/chart"
)

// Options control the generated embed snippet.
type Options struct {
	Width      int
	Height     int
	Responsive bool
	Title      string
}

// LinkPreview bundles every public artifact derived from a slug.
type LinkPreview struct {
	PublicURL           string `json:"public_url"`
	EmbedCode           string `json:"embed_code"`
	ResponsiveEmbedCode string `json:"responsive_embed_code"`
	QRCodeURL           string `json:"qr_code_url"`
	Slug                string `json:"slug"`
}

// WidgetURL returns the public viewer URL for a slug.
func WidgetURL(baseURL, slug string) string {
	return fmt.Sprintf("%s/widget/%s", baseURL, slug)
}

// Code renders an iframe snippet for the widget. With Responsive set it
// wraps the iframe in an aspect-ratio div sized via percentages;
// otherwise the iframe has fixed pixel dimensions.
func Code(baseURL, slug string, opts Options) string {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	height := opts.Height
	if height <= 0 {
		height = DefaultHeight
	}
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}

	widgetURL := WidgetURL(baseURL, slug)

	if opts.Responsive {
		return fmt.Sprintf(`<div style="position: relative; width: 100%%; max-width: %dpx; aspect-ratio: %d/%d;">
  <iframe
    src="%s"
    style="position: absolute; top: 0; left: 0; width: 100%%; height: 100%%; border: none; border-radius: 12px;"
    loading="lazy"
    title="%s">
  </iframe>
</div>`, width, width, height, widgetURL, title)
	}

	return fmt.Sprintf(`<iframe
  src="%s"
  width="%d"
  height="%d"
  frameborder="0"
  scrolling="no"
  style="border: none; border-radius: 12px;"
  loading="lazy"
  title="%s">
</iframe>`, widgetURL, width, height, title)
}

// QRCodeURL builds a request URL against the QR rendering service for the
// widget's public URL. size is the square edge in pixels; values <= 0 use
// the default.
func QRCodeURL(baseURL, slug string, size int) string {
	if size <= 0 {
		size = DefaultQRSize
	}
	encoded := url.QueryEscape(WidgetURL(baseURL, slug))
	return fmt.Sprintf("%s?chs=%dx%d&cht=qr&chl=%s", qrServiceURL, size, size, encoded)
}

// Preview composes the full set of link artifacts for a slug.
func Preview(baseURL, slug string) LinkPreview {
	return LinkPreview{
		PublicURL:           WidgetURL(baseURL, slug),
		EmbedCode:           Code(baseURL, slug, Options{}),
		ResponsiveEmbedCode: Code(baseURL, slug, Options{Responsive: true}),
		QRCodeURL:           QRCodeURL(baseURL, slug, DefaultQRSize),
		Slug:                slug,
	}
}
