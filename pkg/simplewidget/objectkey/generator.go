// Package objectkey provides key generation strategies for stored widget
// assets.
package objectkey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for asset key generation strategies
type Generator interface {
	// GenerateKey creates an object key for storage backends
	GenerateKey(ownerID uuid.UUID, assetType, ext string) string
}

// OwnerScopedGenerator buckets assets per owner and asset type:
// users/{owner}/{type}s/{type}_{unix}_{random}.{ext}. The timestamp and
// random suffix keep repeated uploads from clobbering each other.
type OwnerScopedGenerator struct {
	now func() time.Time
}

func NewOwnerScopedGenerator() *OwnerScopedGenerator {
	return &OwnerScopedGenerator{now: time.Now}
}

func (g *OwnerScopedGenerator) GenerateKey(ownerID uuid.UUID, assetType, ext string) string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand never fails on supported platforms; a broken
		// entropy source is not recoverable here.
		panic(fmt.Sprintf("objectkey: reading random source: %v", err))
	}
	name := fmt.Sprintf("%s_%d_%s.%s",
		assetType, g.now().Unix(), hex.EncodeToString(suffix), sanitizePathComponent(ext))
	return fmt.Sprintf("users/%s/%ss/%s", ownerID, assetType, name)
}

// CustomFuncGenerator allows users to provide their own key generation function
type CustomFuncGenerator struct {
	GenerateFunc func(ownerID uuid.UUID, assetType, ext string) string
}

func NewCustomFuncGenerator(fn func(ownerID uuid.UUID, assetType, ext string) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{GenerateFunc: fn}
}

func (g *CustomFuncGenerator) GenerateKey(ownerID uuid.UUID, assetType, ext string) string {
	return g.GenerateFunc(ownerID, assetType, ext)
}

func sanitizePathComponent(component string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return strings.ToLower(replacer.Replace(component))
}
