// Package naming derives backend resource names and endpoints from a
// tenant's slug. All names share the gw- prefix so backend resources
// belonging to the orchestrator are identifiable and cleanable.
package naming

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

const (
	prefix = "gw"

	// maxSlugBase keeps derived resource names inside common backend
	// name limits (63 chars for DNS labels) with room for suffixes.
	maxSlugBase = 24
)

// Slug derives a URL-safe slug from an owner-supplied base name, with a
// short random suffix so slugs stay unique across the lifetime of the
// system (destroyed tenants never release theirs).
func Slug(base string) string {
	cleaned := sanitize(base)
	if cleaned == "" {
		cleaned = "tenant"
	}
	if len(cleaned) > maxSlugBase {
		cleaned = cleaned[:maxSlugBase]
	}
	return cleaned + "-" + randomSuffix(4)
}

// ValidSlug reports whether s is usable as a slug: lowercase
// alphanumerics and hyphens, starting with a letter, no trailing hyphen.
func ValidSlug(s string) bool {
	if s == "" || len(s) > maxSlugBase+5 {
		return false
	}
	if !unicode.IsLower(rune(s[0])) {
		return false
	}
	if s[len(s)-1] == '-' {
		return false
	}
	for _, r := range s {
		if !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

// ComputeUnit returns the backend name of the tenant's compute unit.
func ComputeUnit(slug string) string {
	return fmt.Sprintf("%s-%s", prefix, slug)
}

// Volume returns the backend name of the tenant's state volume.
func Volume(slug string) string {
	return fmt.Sprintf("%s-%s-data", prefix, slug)
}

// Hostname returns the DNS name of the tenant's endpoint.
func Hostname(slug, baseDomain string) string {
	return fmt.Sprintf("%s.%s", slug, baseDomain)
}

// Endpoint returns the canonical endpoint URL for a slug. Deterministic:
// stored endpoints are a cache of this value, never the source of truth.
func Endpoint(slug, baseDomain string) string {
	return "https://" + Hostname(slug, baseDomain)
}

func sanitize(s string) string {
	var b strings.Builder
	lastHyphen := true // strip leading hyphens
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLower(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)[:n]
}
