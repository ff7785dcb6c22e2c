// Package encoder provides format-specific image encoders.
package encoder

import (
	"context"
	"image"
	"image/jpeg"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
	"github.com/cobalthq/respimg/utils"
)

// JPEG encodes images to JPEG, the broadly-compatible delivery fallback.
// The standard library emits baseline JPEG only; the Progressive profile
// flag is honoured by the libvips backend when that is registered instead.
type JPEG struct {
	DefaultQuality int // used when the profile quality is 0
}

// NewJPEG returns a JPEG encoder with the given default quality.
func NewJPEG(defaultQuality int) *JPEG {
	if defaultQuality <= 0 {
		defaultQuality = 85
	}
	return &JPEG{DefaultQuality: defaultQuality}
}

func (j *JPEG) CanEncode(format core.Format) bool { return format == core.FormatJPEG }

func (j *JPEG) Encode(ctx context.Context, img image.Image, profile core.EncodeProfile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "jpeg.encode", err)
	}
	if img == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "jpeg.encode", apperrors.ErrEmptyInput)
	}

	quality := profile.Quality
	if quality <= 0 {
		quality = j.DefaultQuality
	}

	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "jpeg.encode", err)
	}
	return utils.CloneBytes(buf.Bytes()), nil
}
