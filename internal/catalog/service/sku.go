package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateSKU produces a SKU of the form PRE-TTTTT-RRRR: a category
// prefix, the last five base-36 digits of the current unix time, and a
// four-character random suffix.
func GenerateSKU(prefix string) string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().Unix(), 36))
	if len(ts) > 5 {
		ts = ts[len(ts)-5:]
	}

	rnd := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:4]

	return fmt.Sprintf("%s-%s-%s", prefix, ts, rnd)
}

// DeriveVariantSKU appends attribute codes to the parent SKU, sorted by
// attribute key for determinism. Without attributes the variant name codes
// the suffix.
func DeriveVariantSKU(parentSKU, name string, attributes map[string]string) string {
	if len(attributes) == 0 {
		return parentSKU + "-" + skuCode(name, 4, "VAR")
	}

	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, parentSKU)
	for _, k := range keys {
		parts = append(parts, skuCode(attributes[k], 3, "X"))
	}

	return strings.Join(parts, "-")
}

// skuCode reduces a human name to an uppercase alphanumeric code of at
// most n characters, falling back when nothing usable remains.
func skuCode(name string, n int, fallback string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == n {
				break
			}
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
