package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL-friendly slug from the given name.
//
// Examples:
//   - "Wireless Mouse" → "wireless-mouse"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))

	// Transliterate common accented characters to ASCII
	replacer := strings.NewReplacer(
		"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
		"é", "e", "è", "e", "ê", "e", "à", "a", "â", "a", "î", "i",
		"ô", "o", "û", "u", "ñ", "n",
	)
	slug = replacer.Replace(slug)

	// Replace any non-alphanumeric characters with hyphens
	slug = slugRegexp.ReplaceAllString(slug, "-")

	// Trim leading and trailing hyphens
	slug = strings.Trim(slug, "-")

	// Collapse consecutive hyphens into single hyphens
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return slug
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// maxSuffixAttempts bounds the numeric-suffix search before falling back
// to a timestamp suffix.
const maxSuffixAttempts = 50

// Unique generates a slug from name and appends a numeric suffix
// (-1, -2, ...) until exists reports it free. After maxSuffixAttempts a
// timestamp suffix guarantees uniqueness for pathological names.
func Unique(ctx context.Context, name string, exists ExistsFunc) (string, error) {
	base := Generate(name)
	candidate := base

	for i := 1; i <= maxSuffixAttempts; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	return fmt.Sprintf("%s-%d", base, time.Now().UnixMilli()), nil
}
