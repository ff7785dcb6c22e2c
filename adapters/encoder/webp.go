package encoder

import (
	"context"
	"image"

	"github.com/chai2010/webp"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
	"github.com/cobalthq/respimg/utils"
)

// WebP encodes images to WebP, the modern lossy delivery format.
// Backed by github.com/chai2010/webp (bundled libwebp). The Effort profile
// scalar maps to libvips' effort knob and is ignored here; quality is the
// single size/fidelity control.
type WebP struct {
	DefaultQuality int
}

// NewWebP returns a WebP encoder with the given default quality.
func NewWebP(defaultQuality int) *WebP {
	if defaultQuality <= 0 {
		defaultQuality = 82
	}
	return &WebP{DefaultQuality: defaultQuality}
}

func (w *WebP) CanEncode(format core.Format) bool { return format == core.FormatWebP }

func (w *WebP) Encode(ctx context.Context, img image.Image, profile core.EncodeProfile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode", err)
	}
	if img == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "webp.encode", apperrors.ErrEmptyInput)
	}

	quality := profile.Quality
	if quality <= 0 {
		quality = w.DefaultQuality
	}

	opts := &webp.Options{
		Lossless: profile.Lossless,
		Quality:  float32(quality),
	}

	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	if err := webp.Encode(buf, img, opts); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode", err)
	}
	return utils.CloneBytes(buf.Bytes()), nil
}
