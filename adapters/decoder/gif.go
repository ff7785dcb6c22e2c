package decoder

import (
	"context"
	"image"
	"image/gif"
	"io"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
)

// GIF decodes GIF images. Animated sources collapse to their first frame;
// the pipeline produces still variants only.
type GIF struct{}

// NewGIF returns an initialised GIF decoder.
func NewGIF() *GIF { return &GIF{} }

func (g *GIF) CanDecode(format core.Format) bool { return format == core.FormatGIF }

func (g *GIF) Decode(ctx context.Context, r io.Reader) (image.Image, core.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "gif.decode", err)
	}

	img, err := gif.Decode(r)
	if err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "gif.decode", err)
	}

	bounds := img.Bounds()
	meta := core.Metadata{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     core.FormatGIF,
		ColorSpace: colorSpaceOf(img),
		HasAlpha:   hasAlpha(img),
	}
	return img, meta, nil
}
