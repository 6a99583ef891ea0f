// Package assets resolves stored asset keys into time-limited signed
// URLs for public widget rendering.
package assets

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTTL is how long resolved asset URLs stay valid. Public widget
// responses are cacheable for up to an hour, so the signing TTL must
// comfortably outlive the cache.
const DefaultTTL = 24 * time.Hour

// URLSigner produces a presigned, time-limited URL for a stored object.
type URLSigner interface {
	GetSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Resolver signs asset keys in bulk, tolerating per-key failures.
type Resolver struct {
	signer URLSigner
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL overrides the signing TTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLogger sets the logger for per-key signing failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver backed by the given signer.
func NewResolver(signer URLSigner, opts ...Option) *Resolver {
	r := &Resolver{
		signer: signer,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve signs every non-empty key in refs and returns a map from the
// same ref names to signed URLs. Signing is best effort: keys that fail
// to sign are logged and omitted so one broken asset cannot take a whole
// widget offline. The result only ever contains names present in refs.
func (r *Resolver) Resolve(ctx context.Context, refs map[string]string) map[string]string {
	resolved := make(map[string]string, len(refs))
	for name, key := range refs {
		if key == "" {
			continue
		}
		signedURL, err := r.signer.GetSignedURL(ctx, key, r.ttl)
		if err != nil {
			r.logger.WarnContext(ctx, "failed to sign asset URL",
				"asset", name, "key", key, "error", err)
			continue
		}
		resolved[name] = signedURL
	}
	return resolved
}

// ResolveOne signs a single key, returning an empty string when signing
// fails or the key is empty.
func (r *Resolver) ResolveOne(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	signedURL, err := r.signer.GetSignedURL(ctx, key, r.ttl)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to sign asset URL", "key", key, "error", err)
		return ""
	}
	return signedURL
}

// TTL reports the resolver's signing lifetime, for callers that surface
// expiry hints to clients.
func (r *Resolver) TTL() time.Duration {
	return r.ttl
}
