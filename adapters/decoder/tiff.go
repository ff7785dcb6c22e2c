package decoder

import (
	"context"
	"image"
	"io"

	"golang.org/x/image/tiff"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
)

// TIFF decodes TIFF images via golang.org/x/image/tiff. Multi-page sources
// collapse to their first directory.
type TIFF struct{}

// NewTIFF returns an initialised TIFF decoder.
func NewTIFF() *TIFF { return &TIFF{} }

func (t *TIFF) CanDecode(format core.Format) bool { return format == core.FormatTIFF }

func (t *TIFF) Decode(ctx context.Context, r io.Reader) (image.Image, core.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "tiff.decode", err)
	}

	img, err := tiff.Decode(r)
	if err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "tiff.decode", err)
	}

	bounds := img.Bounds()
	meta := core.Metadata{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     core.FormatTIFF,
		ColorSpace: colorSpaceOf(img),
		HasAlpha:   hasAlpha(img),
	}
	return img, meta, nil
}
