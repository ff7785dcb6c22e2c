package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacritics folds accented characters to their base form so "château.PNG"
// sanitizes to "chateau" instead of being stripped entirely.
var diacritics = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeBaseName lower-cases the original file name (extension removed)
// and strips every character that is not alphanumeric, '-' or '_'.
// Returns "image" when nothing survives.
func SanitizeBaseName(originalName string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	if folded, _, err := transform.String(diacritics, base); err == nil {
		base = folded
	}
	base = strings.ToLower(base)

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "image"
	}
	return b.String()
}

// DeriveFileName builds a collision-resistant variant file name:
// sanitized base, preset, optional suffix, coarse UTC timestamp, and an
// 8-char random fragment. Two uploads sharing an original name in the same
// process tick still get distinct names from the random fragment.
func DeriveFileName(originalName, preset, suffix, ext string, now time.Time) string {
	parts := []string{SanitizeBaseName(originalName)}
	if preset != "" {
		parts = append(parts, preset)
	}
	if suffix != "" {
		parts = append(parts, SanitizeBaseName(suffix))
	}
	parts = append(parts,
		now.UTC().Format("20060102t150405"),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
	)
	return fmt.Sprintf("%s.%s", strings.Join(parts, "-"), strings.TrimPrefix(ext, "."))
}
