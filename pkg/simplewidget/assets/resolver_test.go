package assets_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-widget/pkg/simplewidget/assets"
)

type stubSigner struct {
	failKeys map[string]bool
	lastTTL  time.Duration
}

func (s *stubSigner) GetSignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.lastTTL = ttl
	if s.failKeys[key] {
		return "", errors.New("signing backend unavailable")
	}
	return fmt.Sprintf("https://cdn.example.com/%s?sig=abc", key), nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("SignsAllKeys", func(t *testing.T) {
		r := assets.NewResolver(&stubSigner{})
		got := r.Resolve(ctx, map[string]string{
			"header_image":  "users/u1/headers/header_1.png",
			"profile_image": "users/u1/profiles/profile_1.png",
		})

		assert.Len(t, got, 2)
		assert.Equal(t, "https://cdn.example.com/users/u1/headers/header_1.png?sig=abc", got["header_image"])
		assert.Equal(t, "https://cdn.example.com/users/u1/profiles/profile_1.png?sig=abc", got["profile_image"])
	})

	t.Run("OmitsFailedKeys", func(t *testing.T) {
		signer := &stubSigner{failKeys: map[string]bool{"broken.png": true}}
		r := assets.NewResolver(signer)
		got := r.Resolve(ctx, map[string]string{
			"header_image":  "broken.png",
			"profile_image": "ok.png",
		})

		assert.Len(t, got, 1)
		assert.Contains(t, got, "profile_image")
		assert.NotContains(t, got, "header_image")
	})

	t.Run("SkipsEmptyKeys", func(t *testing.T) {
		r := assets.NewResolver(&stubSigner{})
		got := r.Resolve(ctx, map[string]string{"header_image": ""})
		assert.Empty(t, got)
	})

	t.Run("UsesConfiguredTTL", func(t *testing.T) {
		signer := &stubSigner{}
		r := assets.NewResolver(signer, assets.WithTTL(time.Hour))
		r.Resolve(ctx, map[string]string{"header_image": "a.png"})
		assert.Equal(t, time.Hour, signer.lastTTL)
		assert.Equal(t, time.Hour, r.TTL())
	})

	t.Run("DefaultTTL", func(t *testing.T) {
		signer := &stubSigner{}
		r := assets.NewResolver(signer)
		r.Resolve(ctx, map[string]string{"header_image": "a.png"})
		assert.Equal(t, assets.DefaultTTL, signer.lastTTL)
	})
}

func TestResolveOne(t *testing.T) {
	ctx := context.Background()
	signer := &stubSigner{failKeys: map[string]bool{"broken.png": true}}
	r := assets.NewResolver(signer)

	assert.Equal(t, "https://cdn.example.com/ok.png?sig=abc", r.ResolveOne(ctx, "ok.png"))
	assert.Empty(t, r.ResolveOne(ctx, "broken.png"))
	assert.Empty(t, r.ResolveOne(ctx, ""))
}
