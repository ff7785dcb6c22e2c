package decoder

import (
	"context"
	"image"
	"io"

	"golang.org/x/image/bmp"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
)

// BMP decodes Windows bitmap images via golang.org/x/image/bmp.
type BMP struct{}

// NewBMP returns an initialised BMP decoder.
func NewBMP() *BMP { return &BMP{} }

func (b *BMP) CanDecode(format core.Format) bool { return format == core.FormatBMP }

func (b *BMP) Decode(ctx context.Context, r io.Reader) (image.Image, core.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "bmp.decode", err)
	}

	img, err := bmp.Decode(r)
	if err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "bmp.decode", err)
	}

	bounds := img.Bounds()
	meta := core.Metadata{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     core.FormatBMP,
		ColorSpace: colorSpaceOf(img),
		HasAlpha:   hasAlpha(img),
	}
	return img, meta, nil
}
