// Package pipeline composes the upload-to-manifest workflow: validation,
// metadata probing, the size×format transcode fan-out, the budgeted
// compression search, and variant persistence.
package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cobalthq/respimg/core"
)

// Validator checks a candidate upload against the byte ceiling, the declared
// MIME type and the extension allow list. It never decodes pixel data, so it
// is cheap enough to run before any expensive work.
type Validator struct {
	MaxBytes          int64
	AllowedMIMETypes  []string
	AllowedExtensions []string // with leading dot, lower case
}

// NewValidator builds a Validator from the configured limits.
func NewValidator(maxBytes int64, mimeTypes, extensions []string) *Validator {
	return &Validator{
		MaxBytes:          maxBytes,
		AllowedMIMETypes:  mimeTypes,
		AllowedExtensions: extensions,
	}
}

// Validate returns every violated rule, not just the first, so a caller can
// report all problems at once. A nil result means the asset is acceptable.
func (v *Validator) Validate(asset core.SourceAsset) []string {
	var violations []string

	if len(asset.Data) == 0 {
		violations = append(violations, "file buffer is empty")
	}
	if v.MaxBytes > 0 && asset.ByteLength > v.MaxBytes {
		violations = append(violations, fmt.Sprintf(
			"file size %d bytes exceeds the maximum of %d bytes", asset.ByteLength, v.MaxBytes))
	}
	// The declared MIME is advisory; content sniffing decides the real format
	// later. An absent declaration (file-sourced assets) is not a violation,
	// but a declared type outside the allow list is.
	if asset.MIMEType != "" && !contains(v.AllowedMIMETypes, strings.ToLower(asset.MIMEType)) {
		violations = append(violations, fmt.Sprintf("mime type %q is not an allowed image type", asset.MIMEType))
	}
	ext := strings.ToLower(filepath.Ext(asset.OriginalName))
	if !contains(v.AllowedExtensions, ext) {
		violations = append(violations, fmt.Sprintf("file extension %q is not supported", ext))
	}

	return violations
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
