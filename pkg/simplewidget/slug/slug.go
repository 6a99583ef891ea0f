// Package slug provides generation, validation and collision-safe
// allocation of public widget identifiers.
package slug

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// GeneratedLength is the length of every generator-emitted slug.
	GeneratedLength = 24

	// MinLength and MaxLength bound user-supplied slugs.
	MinLength = 10
	MaxLength = 24

	// minFriendlyLength is the floor for user-derived slugs; shorter
	// inputs are padded with secure random characters.
	minFriendlyLength = 6

	// maxAllocationAttempts bounds the availability-check retry loop.
	maxAllocationAttempts = 10

	// randomBytes per draw: 18 bytes = 144 bits of entropy.
	randomBytes = 18
)

// reservedWords may not be used as slugs (case-insensitive). They collide
// with route prefixes or invite confusion with internal surfaces.
var reservedWords = map[string]struct{}{
	"api": {}, "admin": {}, "dashboard": {}, "login": {}, "logout": {},
	"signup": {}, "signin": {}, "widget": {}, "public": {}, "private": {},
	"secure": {}, "auth": {}, "user": {}, "profile": {}, "notion": {},
	"embed": {}, "iframe": {}, "www": {}, "mail": {}, "ftp": {},
	"http": {}, "https": {},
}

// GenerateSecure returns a 24-character alphanumeric slug drawn from a
// cryptographically secure random source. Base64 padding and URL-unsafe
// characters are stripped; additional bytes are drawn until the slug
// reaches its full length, so the output is always exactly 24 characters.
func GenerateSecure() string {
	var b strings.Builder
	b.Grow(GeneratedLength)

	for b.Len() < GeneratedLength {
		buf := make([]byte, randomBytes)
		if _, err := rand.Read(buf); err != nil {
			// crypto/rand never fails on supported platforms; a
			// broken entropy source is not recoverable here.
			panic(fmt.Sprintf("slug: reading random source: %v", err))
		}
		encoded := base64.StdEncoding.WithPadding(base64.NoPadding).EncodeToString(buf)
		for _, ch := range encoded {
			if ch == '+' || ch == '/' {
				continue
			}
			b.WriteRune(ch)
			if b.Len() == GeneratedLength {
				break
			}
		}
	}

	return b.String()
}

// Validate reports whether candidate is an acceptable slug: 10-24
// characters, alphanumeric only, and not a reserved word.
func Validate(candidate string) bool {
	if len(candidate) < MinLength || len(candidate) > MaxLength {
		return false
	}
	for _, ch := range candidate {
		if !isAlphanumeric(ch) {
			return false
		}
	}
	if _, reserved := reservedWords[strings.ToLower(candidate)]; reserved {
		return false
	}
	return true
}

// ValidFormat reports whether candidate has the shape of an issued slug:
// 6 to 24 alphanumeric characters. Unlike Validate it admits short
// user-friendly slugs and reserved words, which are only rejected at
// registration time.
func ValidFormat(candidate string) bool {
	if len(candidate) < minFriendlyLength || len(candidate) > MaxLength {
		return false
	}
	for _, ch := range candidate {
		if !isAlphanumeric(ch) {
			return false
		}
	}
	return true
}

// Normalize lowercases the input, strips every non-alphanumeric character
// and truncates the result to the maximum slug length.
func Normalize(input string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(input) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
			if b.Len() == MaxLength {
				break
			}
		}
	}
	return b.String()
}

// UserFriendly derives a slug from user input. Inputs that normalize to at
// least six characters are used as-is; shorter results are padded with
// characters from a freshly generated secure slug.
func UserFriendly(input string) string {
	normalized := Normalize(input)
	if len(normalized) >= minFriendlyLength {
		return normalized
	}
	return normalized + GenerateSecure()[:minFriendlyLength-len(normalized)]
}

// CheckFunc reports whether a candidate slug is free to use. The
// authoritative uniqueness guarantee lives in the data store's unique
// constraint; this check only steers the allocator away from collisions.
type CheckFunc func(ctx context.Context, candidate string) (bool, error)

// GenerateUnique allocates a slug, preferring a user-friendly slug derived
// from baseSlug when one is given. When isAvailable is non-nil the
// candidate is checked and regenerated up to ten times; once the attempts
// are exhausted a timestamp-suffixed fallback is returned without a
// further check. The residual collision odds on the fallback are
// negligible (128 bits of fresh entropy plus a millisecond timestamp).
//
// Errors from isAvailable abort allocation and are returned unwrapped.
func GenerateUnique(ctx context.Context, baseSlug string, isAvailable CheckFunc) (string, error) {
	var candidate string
	if baseSlug != "" {
		candidate = UserFriendly(baseSlug)
	} else {
		candidate = GenerateSecure()
	}

	if isAvailable == nil {
		return candidate, nil
	}

	for attempt := 0; attempt < maxAllocationAttempts; attempt++ {
		free, err := isAvailable(ctx, candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
		candidate = GenerateSecure()
	}

	return fallbackSlug(time.Now()), nil
}

// fallbackSlug builds the post-exhaustion slug: 16 secure characters plus
// an 8-character base-36 millisecond timestamp, 24 characters total.
func fallbackSlug(now time.Time) string {
	ts := strconv.FormatInt(now.UnixMilli(), 36)
	if len(ts) > 8 {
		ts = ts[:8]
	}
	return GenerateSecure()[:GeneratedLength-len(ts)] + ts
}

func isAlphanumeric(ch rune) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9')
}
